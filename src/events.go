package skysched

// Transition selects how a parameter event takes effect. A soft transition
// lets an in-progress scan finish under the old parameters; a hard
// transition applies immediately. The core never rolls back past events, it
// only advances the cursor, per spec.md §9 design note on parameter events.
type Transition int

const (
	TransitionSoft Transition = iota
	TransitionHard
)

// ParamEvent is one (time, transition, Parameters) tuple in an entity's
// time-sorted event list. T is the generic payload type: Station.Parameters,
// Source.Parameters or Baseline.Parameters.
type ParamEvent[T any] struct {
	At         int
	Transition Transition
	Parameters T
}

// EventTimeline is a per-entity, time-sorted vector of parameter events plus
// a monotonically advancing cursor, replacing the mutable-singleton design
// the original scheduler used (spec.md §9). Rollback is unnecessary because
// the scheduler only moves current time forward.
type EventTimeline[T any] struct {
	events []ParamEvent[T]
	cursor int
	active T
}

// NewEventTimeline builds a timeline from a sorted event list and an
// initial (t=0) parameter set. Events must be strictly increasing in time;
// a violation is a ParameterEventOrdering configuration error, fatal at
// load per spec.md §7.
func NewEventTimeline[T any](entity string, initial T, events []ParamEvent[T]) (*EventTimeline[T], error) {
	for i := 1; i < len(events); i++ {
		if events[i].At <= events[i-1].At {
			return nil, &ParameterEventOrdering{Entity: entity, At: events[i].At}
		}
	}
	return &EventTimeline[T]{events: events, active: initial}, nil
}

// Active returns the currently active parameter set.
func (e *EventTimeline[T]) Active() T {
	return e.active
}

// Fire advances the cursor past every event whose effective time is <= t.
// A hard event's effective time is its own At; a soft event's effective
// time is pushed out to busyUntil when a scan already in progress at At
// would otherwise be cut short (busyUntil is 0, or any time <= At, when the
// entity is idle). Applies each fired event in turn so the final active set
// reflects the last one fired. Returns true if any event fired.
func (e *EventTimeline[T]) Fire(t int, busyUntil int) bool {
	fired := false
	for e.cursor < len(e.events) {
		ev := e.events[e.cursor]
		effectiveAt := ev.At
		if ev.Transition == TransitionSoft && busyUntil > effectiveAt {
			effectiveAt = busyUntil
		}
		if effectiveAt > t {
			break
		}
		e.active = ev.Parameters
		e.cursor++
		fired = true
	}
	return fired
}

// NextEventAt returns the time of the next pending event and true, or
// (0, false) if the timeline is exhausted.
func (e *EventTimeline[T]) NextEventAt() (int, bool) {
	if e.cursor >= len(e.events) {
		return 0, false
	}
	return e.events[e.cursor].At, true
}
