package skysched

import (
	"github.com/sirupsen/logrus"
)

// SchedulerState is the top-level lifecycle of spec.md §4.9:
// Init -> Planning <-> Committing -> Finalizing.
type SchedulerState int

const (
	SchedulerInit SchedulerState = iota
	SchedulerPlanning
	SchedulerCommitting
	SchedulerFinalizing
)

// Session is the per-run configuration spec.md §6 groups under "Session
// window": the absolute clock, the cadence of the outer loop, and the
// scan-alignment/feature switches that apply for the whole run.
type Session struct {
	Clock *SessionClock

	Anchor            AlignAnchor
	SubnettingEnabled bool
	FillinEnabled     bool

	TimeSliceSeconds int // quantum to advance by when a subcon comes up empty
	MaxEmptySlices   int // consecutive empty subcons before early termination

	MinAngleBetweenSubnetting float64 // rad

	CustomSequence CustomScanSequence
}

// CustomScanSequence is a fixed-length cadence of scan slots, each naming
// the sources that should score favorably in that slot: scans targeting
// the bucket's sources are boosted, everything else is suppressed, so a
// greedy scheduler still follows an operator-authored observing pattern.
// Grounded on original_source/Scan/Scan.h's ScanSequence struct
// (cadence/moduloScanSelctions/targetSources).
type CustomScanSequence struct {
	Cadence       int
	TargetSources map[int][]int // bucket index (0..Cadence-1) -> source IDs
}

// Enabled reports whether a custom sequence is configured at all.
func (c CustomScanSequence) Enabled() bool {
	return c.Cadence > 0
}

// SchedulerStats accumulates the running counters the scheduler reports
// at the end of a run, the in-memory analogue of the teacher's solution
// write-out counters in rtksvr.go.
type SchedulerStats struct {
	ScansCommitted  int
	ScansDiscarded  int
	FillinCommitted int
	EmptySubcons    int
}

// Scheduler drives the greedy scan-selection loop of spec.md §4.7 over a
// fixed catalog (Network, SourceList, BaselineSet, Mode) and session
// configuration. It owns no state beyond what RigorousUpdate/Commit
// already mutate on the catalog entities themselves, plus the
// per-source scheduling bookkeeping (last-scan time, scan count) spec.md
// §9 assigns to the scheduler rather than Source. Grounded on
// rtksvr.go's rtksvrthread cycle loop: event firing replaces raw-stream
// decode, commit replaces solution write, the empty-subcon quantum retry
// replaces the "no solution this cycle" branch.
type Scheduler struct {
	net        *Network
	sources    *SourceList
	baselines  *BaselineSet
	mode       Mode
	session    Session
	skyCluster *SkyCoverageClusters
	weights    WeightFactors

	sourceState map[int]SourceSchedulingState
	state       SchedulerState
	stats       SchedulerStats
	log         *logrus.Entry

	// sequenceBucket is the current slot in session.CustomSequence's
	// cadence, advanced once per committed group.
	sequenceBucket int
}

// NewScheduler builds a scheduler over a fully loaded catalog.
func NewScheduler(net *Network, sources *SourceList, baselines *BaselineSet, mode Mode, session Session, skyCluster *SkyCoverageClusters, weights WeightFactors, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.New()
	}
	return &Scheduler{
		net:         net,
		sources:     sources,
		baselines:   baselines,
		mode:        mode,
		session:     session,
		skyCluster:  skyCluster,
		weights:     weights,
		sourceState: make(map[int]SourceSchedulingState),
		state:       SchedulerInit,
		log:         log.WithField("component", "scheduler"),
	}
}

// Stats returns the scheduler's accumulated run counters.
func (sch *Scheduler) Stats() SchedulerStats { return sch.stats }

// State returns the scheduler's current lifecycle state.
func (sch *Scheduler) State() SchedulerState { return sch.state }

// Run executes the scheduling loop from startT to the session clock's
// duration, returning the ordered list of committed scans. It never
// panics: infeasible candidates are dropped and logged, and a run of
// MaxEmptySlices consecutive empty subcons ends the session early
// (spec.md §4.10) rather than erroring.
func (sch *Scheduler) Run(startT int) []*Scan {
	sch.state = SchedulerPlanning
	current := startT
	end := sch.session.Clock.Duration()
	emptyStreak := 0
	var committed []*Scan

	quantum := sch.session.TimeSliceSeconds
	if quantum <= 0 {
		quantum = 60
	}
	maxEmpty := sch.session.MaxEmptySlices
	if maxEmpty <= 0 {
		maxEmpty = 10
	}

	for current < end {
		sch.fireEvents(current)

		cfg := EnumerationConfig{
			Net:                       sch.net,
			Sources:                   sch.sources,
			Clock:                     sch.session.Clock,
			MinAngleBetweenSubnetting: sch.session.MinAngleBetweenSubnetting,
			SubnettingEnabled:         sch.session.SubnettingEnabled,
		}
		singles := EnumerateCandidates(cfg, current, sch.sourceState)

		sub := &Subcon{Singles: singles}
		if sch.session.SubnettingEnabled {
			pairs := EnumerateSubnettingPairs(cfg, singles)
			sub.Pairs = sch.buildSubnettingScans(singles, pairs)
		}

		updated := sch.rigorouslyUpdateAndScore(sub, current)
		if len(updated) == 0 {
			sch.stats.EmptySubcons++
			emptyStreak++
			sch.log.WithField("t", current).Debug("empty subcon, advancing by quantum")
			if emptyStreak >= maxEmpty {
				sch.log.WithField("t", current).Warn("too many consecutive empty subcons, ending session early")
				break
			}
			current += quantum
			continue
		}
		emptyStreak = 0

		best := pickBest(updated)
		sch.commitGroup(best, current)
		committed = append(committed, best...)

		if sch.session.FillinEnabled {
			fillinScans := sch.runFillin(committed, current)
			committed = append(committed, fillinScans...)
		}

		current = sch.advanceTime(current, quantum)
	}

	sch.state = SchedulerFinalizing
	return committed
}

func (sch *Scheduler) fireEvents(t int) {
	for _, st := range sch.net.All() {
		st.FireEvents(t)
	}
	for _, src := range sch.sources.All() {
		src.FireEvents(t)
	}
	for _, bl := range sch.baselines.All() {
		bl.FireEvents(t)
	}
}

// scanGroup is one candidate or committed unit of selection: a single
// scan, or both halves of a subnetting pair that must be committed
// together.
type scanGroup []*Scan

func (g scanGroup) totalScore() float64 {
	total := 0.0
	for _, s := range g {
		total += s.Score()
	}
	return total
}

func (g scanGroup) minSourceID() int {
	min := -1
	for _, s := range g {
		if min == -1 || s.SourceID() < min {
			min = s.SourceID()
		}
	}
	return min
}

func (g scanGroup) maxEndOfObserving() int {
	max := 0
	for _, s := range g {
		if t := s.EndOfObserving(); t > max {
			max = t
		}
	}
	return max
}

// rigorouslyUpdateAndScore runs RigorousUpdate + ComputeScore on every
// single candidate and every subnetting pair, dropping anything that
// fails, and returns every surviving group.
func (sch *Scheduler) rigorouslyUpdateAndScore(sub *Subcon, scanStart int) []scanGroup {
	ctx := sch.scoreContext()
	var groups []scanGroup

	for _, scan := range sub.Singles {
		if err := scan.RigorousUpdate(sch.net, sch.sources, sch.baselines, sch.mode, sch.session.Clock, sch.session.Anchor, scanStart); err != nil {
			sch.stats.ScansDiscarded++
			sch.log.WithError(err).WithField("source", scan.SourceID()).Debug("candidate discarded")
			continue
		}
		scan.ComputeScore(ctx, sch.net, sch.sources)
		groups = append(groups, scanGroup{scan})
	}

	for _, pair := range sub.Pairs {
		a, b := pair[0], pair[1]
		okA := a.RigorousUpdate(sch.net, sch.sources, sch.baselines, sch.mode, sch.session.Clock, sch.session.Anchor, scanStart) == nil
		okB := b.RigorousUpdate(sch.net, sch.sources, sch.baselines, sch.mode, sch.session.Clock, sch.session.Anchor, scanStart) == nil
		if !okA || !okB {
			sch.stats.ScansDiscarded++
			continue
		}
		a.ComputeScore(ctx, sch.net, sch.sources)
		b.ComputeScore(ctx, sch.net, sch.sources)
		groups = append(groups, scanGroup{a, b})
	}

	return groups
}

// pickBest implements spec.md §5's tie-break chain over whole groups:
// higher total score wins; on tie, lower (minimum) source ID wins; on
// further tie, earlier endOfObserving wins.
func pickBest(groups []scanGroup) scanGroup {
	best := groups[0]
	for _, g := range groups[1:] {
		switch {
		case g.totalScore() > best.totalScore():
			best = g
		case g.totalScore() == best.totalScore() && g.minSourceID() < best.minSourceID():
			best = g
		case g.totalScore() == best.totalScore() && g.minSourceID() == best.minSourceID() && g.maxEndOfObserving() < best.maxEndOfObserving():
			best = g
		}
	}
	return best
}

func (sch *Scheduler) commitGroup(group scanGroup, t int) {
	for _, s := range group {
		s.Commit(sch.net, sch.sources, sch.baselines, sch.skyCluster, sch.mode)
		sch.stats.ScansCommitted++
		state := sch.sourceState[s.SourceID()]
		state.HasScanned = true
		state.LastScanTime = t
		state.NumScans++
		sch.sourceState[s.SourceID()] = state
		sch.log.WithField("source", s.SourceID()).WithField("score", s.Score()).Debug("scan committed")
	}
	if seq := sch.session.CustomSequence; seq.Enabled() {
		sch.sequenceBucket = (sch.sequenceBucket + 1) % seq.Cadence
	}
}

// buildSubnettingScans turns pre-filtered source pairs into concrete
// station-partitioned scan pairs, dropping any pair that cannot be split
// while each half keeps its source's minStations.
func (sch *Scheduler) buildSubnettingScans(singles []*Scan, pairs []SourcePairCandidate) [][2]*Scan {
	bySource := make(map[int]*Scan, len(singles))
	for _, s := range singles {
		bySource[s.SourceID()] = s
	}
	var out [][2]*Scan
	for _, p := range pairs {
		candA, okA := bySource[p.SourceA]
		candB, okB := bySource[p.SourceB]
		if !okA || !okB {
			continue
		}
		srcA, okSA := sch.sources.ByID(p.SourceA)
		srcB, okSB := sch.sources.ByID(p.SourceB)
		if !okSA || !okSB {
			continue
		}
		scanA, scanB, ok := BuildSubnettingScan(candA, candB, srcA.Parameters().MinStations, srcB.Parameters().MinStations)
		if !ok {
			continue
		}
		out = append(out, [2]*Scan{scanA, scanB})
	}
	return out
}

// advanceTime moves current_time to the minimum, over all stations with a
// recorded pointing, of that pointing's time + postob, counting only
// values later than current, per spec.md §4.7. If no station yields such
// a value the quantum is used as a fallback to guarantee progress.
func (sch *Scheduler) advanceTime(current, quantum int) int {
	min := -1
	for _, st := range sch.net.All() {
		pv, ok := st.CurrentPointing()
		if !ok {
			continue
		}
		end := pv.T + int(st.Parameters().PostobTime)
		if end <= current {
			continue
		}
		if min == -1 || end < min {
			min = end
		}
	}
	if min == -1 || min <= current {
		return current + quantum
	}
	return min
}

// runFillin executes spec.md §4.8's loop: compute fill-in state from the
// just-committed scan set, generate candidates restricted to
// availableForFillin sources and eligible stations, commit the highest
// scoring one, and repeat until no candidate remains.
func (sch *Scheduler) runFillin(upcoming []*Scan, now int) []*Scan {
	var committed []*Scan
	ctx := sch.scoreContext()

	for {
		fillin := NewFillinState(sch.net, upcoming, now)
		if fillin.NumPossible() == 0 {
			return committed
		}

		cfg := EnumerationConfig{
			Net:                       sch.net,
			Sources:                   sch.sources,
			Clock:                     sch.session.Clock,
			MinAngleBetweenSubnetting: sch.session.MinAngleBetweenSubnetting,
		}
		candidates := GenerateFillinCandidates(cfg, now, sch.sourceState, fillin)
		if len(candidates) == 0 {
			return committed
		}

		var groups []scanGroup
		for _, scan := range candidates {
			if err := scan.RigorousUpdate(sch.net, sch.sources, sch.baselines, sch.mode, sch.session.Clock, sch.session.Anchor, now); err != nil {
				sch.stats.ScansDiscarded++
				continue
			}
			scan.ComputeScore(ctx, sch.net, sch.sources)
			groups = append(groups, scanGroup{scan})
		}
		if len(groups) == 0 {
			return committed
		}

		best := pickBest(groups)
		sch.commitGroup(best, now)
		sch.stats.FillinCommitted += len(best)
		committed = append(committed, best...)
		upcoming = append(upcoming, best...)
	}
}

// scoreContext assembles a fresh ScoreContext from the scheduler's
// weights and catalog-wide running aggregates. The aggregates
// (NObsMax, per-source/station/baseline averages) are recomputed once
// per subcon iteration from current station/source statistics; IdleScore
// is left empty, so the idle term contributes nothing. This mirrors spec.md §4.6's description of "running maxima
// tracked by the scheduler".
func (sch *Scheduler) scoreContext() ScoreContext {
	ctx := ScoreContext{
		Weights:          sch.weights,
		AvgSourceScore:   make(map[int]float64),
		AvgStationScore:  make(map[int]float64),
		AvgBaselineScore: make(map[BaselineKey]float64),
		IdleScore:        make(map[int]float64),
		SourceWeight:     make(map[int]float64),
		StationWeight:    make(map[int]float64),
		BaselineWeight:   make(map[BaselineKey]float64),
		TryToFocusActive: make(map[int]bool),
		SkyCoverage:      sch.skyCluster,
	}

	stations := sch.net.All()
	ctx.NStaMax = len(stations)
	for _, st := range stations {
		ctx.StationWeight[st.ID()] = st.Parameters().Weight
		stats := st.Stats()
		if stats.NumScans > 0 {
			ctx.AvgStationScore[st.ID()] = float64(stats.NumObs) / float64(stats.NumScans)
		}
	}

	maxObs := 0
	for _, src := range sch.sources.All() {
		stats := src.Stats()
		if stats.NumScans > maxObs {
			maxObs = stats.NumScans
		}
	}
	ctx.NObsMax = maxObs + 1

	for _, src := range sch.sources.All() {
		ctx.SourceWeight[src.ID()] = src.Parameters().Weight
		state := sch.sourceState[src.ID()]
		occurrence := src.Parameters().TryToFocusOccurrence
		if occurrence <= 0 {
			ctx.TryToFocusActive[src.ID()] = state.HasScanned
		} else {
			ctx.TryToFocusActive[src.ID()] = state.NumScans >= occurrence
		}
		if stats := src.Stats(); stats.NumScans > 0 {
			ctx.AvgSourceScore[src.ID()] = 1.0 / float64(stats.NumScans)
		} else {
			ctx.AvgSourceScore[src.ID()] = 1.0
		}
	}

	if seq := sch.session.CustomSequence; seq.Enabled() {
		ctx.CustomSequenceActive = true
		ctx.CustomSequenceTarget = make(map[int]bool, len(seq.TargetSources[sch.sequenceBucket]))
		for _, id := range seq.TargetSources[sch.sequenceBucket] {
			ctx.CustomSequenceTarget[id] = true
		}
	}

	for _, bl := range sch.baselines.All() {
		s1, s2 := bl.Stations()
		key := NewBaselineKey(s1, s2)
		ctx.BaselineWeight[key] = bl.Parameters().Weight
		if n := bl.NumObservations(); n > 0 {
			ctx.AvgBaselineScore[key] = 1.0 / float64(n)
		} else {
			ctx.AvgBaselineScore[key] = 1.0
		}
	}

	return ctx
}
