package skysched

import "fmt"

// BaselineParameters is a baseline's scheduling-knob set, per spec.md §3.
type BaselineParameters struct {
	Ignore  bool
	MinScan float64
	MaxScan float64
	MinSNR  map[string]float64
	Weight  float64
}

// Baseline is a canonical (station1 < station2) pair carrying its own
// parameter timeline and observation counter, independent of either
// station's own parameters. Grounded on
// original_source/Station/Baseline.cpp.
type Baseline struct {
	station1, station2 int // station IDs, station1 < station2
	params             *EventTimeline[BaselineParameters]
	numObs             int

	// busyUntil is the end of the baseline's last recorded observation,
	// consulted by FireEvents to defer a soft parameter transition until
	// that observation finishes.
	busyUntil int
}

// NewBaseline builds a baseline from two station IDs, reordering them into
// canonical order if needed.
func NewBaseline(station1, station2 int, initial BaselineParameters, events []ParamEvent[BaselineParameters]) (*Baseline, error) {
	if station1 == station2 {
		return nil, &ConfigurationError{Reason: "baseline cannot connect a station to itself"}
	}
	if station1 > station2 {
		station1, station2 = station2, station1
	}
	timeline, err := NewEventTimeline(fmt.Sprintf("baseline:%d-%d", station1, station2), initial, events)
	if err != nil {
		return nil, err
	}
	return &Baseline{station1: station1, station2: station2, params: timeline}, nil
}

// Stations returns the canonical (station1 < station2) station ID pair.
func (b *Baseline) Stations() (int, int) {
	return b.station1, b.station2
}

// Parameters returns the currently active parameter set.
func (b *Baseline) Parameters() BaselineParameters {
	return b.params.Active()
}

// FireEvents advances the baseline's parameter timeline to session time t.
func (b *Baseline) FireEvents(t int) bool {
	return b.params.Fire(t, b.busyUntil)
}

// RecordObservation increments the baseline's observation counter.
func (b *Baseline) RecordObservation() {
	b.numObs++
}

// SetBusyUntil records the end time of the baseline's most recently
// recorded observation.
func (b *Baseline) SetBusyUntil(t int) {
	b.busyUntil = t
}

// NumObservations returns the number of observations recorded so far.
func (b *Baseline) NumObservations() int {
	return b.numObs
}

// BaselineKey canonicalizes a (station1, station2) pair for map lookup.
type BaselineKey struct {
	Station1, Station2 int
}

// NewBaselineKey builds a canonical key with station1 < station2.
func NewBaselineKey(a, b int) BaselineKey {
	if a > b {
		a, b = b, a
	}
	return BaselineKey{Station1: a, Station2: b}
}

// BaselineSet is the catalog-wide collection of baselines, keyed
// canonically, grounded on original_source/VLBI_baseline.cpp.
type BaselineSet struct {
	byKey map[BaselineKey]*Baseline
}

// NewBaselineSet builds a set from a slice of baselines.
func NewBaselineSet(baselines []*Baseline) (*BaselineSet, error) {
	bs := &BaselineSet{byKey: make(map[BaselineKey]*Baseline, len(baselines))}
	for _, b := range baselines {
		key := NewBaselineKey(b.station1, b.station2)
		if _, dup := bs.byKey[key]; dup {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate baseline %d-%d", key.Station1, key.Station2)}
		}
		bs.byKey[key] = b
	}
	return bs, nil
}

// Lookup returns the baseline for the (possibly unordered) station pair.
func (bs *BaselineSet) Lookup(s1, s2 int) (*Baseline, bool) {
	b, ok := bs.byKey[NewBaselineKey(s1, s2)]
	return b, ok
}

// All returns every baseline in the set, in no particular order.
func (bs *BaselineSet) All() []*Baseline {
	out := make([]*Baseline, 0, len(bs.byKey))
	for _, b := range bs.byKey {
		out = append(out, b)
	}
	return out
}
