package skysched

import (
	"math"
	"sort"
)

// ScanType tags a scan's role in the schedule.
type ScanType int

const (
	ScanStandard ScanType = iota
	ScanFillin
	ScanHighImpact
	ScanCalibrator
	ScanAstroCalibrator
)

// ScanConstellation distinguishes a single-source scan from one half of a
// subnetting pair.
type ScanConstellation int

const (
	ConstellationSingle ScanConstellation = iota
	ConstellationSubnetting
)

// ScanState is the scan lifecycle, per spec.md §4.9: Draft ->
// RigorouslyUpdated -> Scored -> {Committed | Discarded}, no transitions
// back.
type ScanState int

const (
	ScanDraft ScanState = iota
	ScanRigorouslyUpdated
	ScanScored
	ScanCommitted
	ScanDiscarded
)

// AlignAnchor selects which station's observing-window boundary every
// other participating station aligns its preob/observe start to.
type AlignAnchor int

const (
	AnchorIndividual AlignAnchor = iota
	AnchorStartOfObserving
	AnchorEndOfObserving
)

// StationScanTimes holds the six ordered timestamps spec.md §3's
// ScanTimes entity requires for one participating station, in
// session-relative seconds.
type StationScanTimes struct {
	EndOfLastScan   int
	EndOfFieldSystem int
	EndOfSlew        int
	EndOfIdle        int
	EndOfPreob       int
	StartObserving   int
	EndObserving     int
}

// Observation is one baseline's realized observation inside a committed
// scan, per spec.md §3.
type Observation struct {
	Baseline          BaselineKey
	SourceID          int
	Start             int
	ObservingDuration float64
}

// Scan is a candidate or committed observation of one source by a set of
// stations. Grounded on original_source/Scan/Scan.{h,cpp}.
type Scan struct {
	sourceID      int
	stations      []int
	startPointing map[int]PointingVector
	endPointing   map[int]PointingVector
	times         map[int]StationScanTimes
	observations  []Observation

	kind          ScanType
	constellation ScanConstellation
	score         float64
	state         ScanState

	// requiredEndPosition is, for fill-in candidates, the session-second
	// deadline by which a station must be free to slew toward its next
	// committed pointing (spec.md §4.5 step 6 / §4.8).
	requiredEndPosition map[int]int
}

// NewCandidateScan builds an empty draft scan on sourceID for the given
// candidate station set (cheap az/el pass already having admitted them).
func NewCandidateScan(sourceID int, kind ScanType, stations []int) *Scan {
	cp := make([]int, len(stations))
	copy(cp, stations)
	sort.Ints(cp)
	return &Scan{
		sourceID:      sourceID,
		stations:      cp,
		startPointing: make(map[int]PointingVector, len(cp)),
		endPointing:   make(map[int]PointingVector, len(cp)),
		times:         make(map[int]StationScanTimes, len(cp)),
		kind:          kind,
		state:         ScanDraft,
	}
}

func (s *Scan) SourceID() int            { return s.sourceID }
func (s *Scan) Stations() []int          { return s.stations }
func (s *Scan) NumStations() int         { return len(s.stations) }
func (s *Scan) State() ScanState         { return s.state }
func (s *Scan) Score() float64           { return s.score }
func (s *Scan) Observations() []Observation { return s.observations }
func (s *Scan) Kind() ScanType            { return s.kind }
func (s *Scan) Constellation() ScanConstellation { return s.constellation }

// SetConstellation marks a scan as one half of a subnetting pair.
func (s *Scan) SetConstellation(c ScanConstellation) {
	s.constellation = c
}

// SetRequiredEndPosition records a fill-in deadline for a station.
func (s *Scan) SetRequiredEndPosition(stationID, deadline int) {
	if s.requiredEndPosition == nil {
		s.requiredEndPosition = make(map[int]int)
	}
	s.requiredEndPosition[stationID] = deadline
}

// removeStation drops a station from the scan's candidate set and every
// per-station map, preserving the invariant that stations stays sorted.
func (s *Scan) removeStation(stationID int) {
	out := s.stations[:0]
	for _, id := range s.stations {
		if id != stationID {
			out = append(out, id)
		}
	}
	s.stations = out
	delete(s.startPointing, stationID)
	delete(s.endPointing, stationID)
	delete(s.times, stationID)
}

const inScanVisibilityStepSeconds = 30
const maxSlewRefineIter = 30

// RigorousUpdate runs the §4.5 pipeline: slew refinement, start alignment,
// per-baseline/per-station duration computation, in-scan visibility
// stepping, and end-position reachability. It mutates the scan in place
// and returns an error only for a fully infeasible scan (nsta drops below
// the source's minStations, a required station was removed, or the
// observation list becomes empty); a scan that survives with a reduced
// station set is not an error.
func (s *Scan) RigorousUpdate(net *Network, sources *SourceList, baselines *BaselineSet, mode Mode, clock *SessionClock, anchor AlignAnchor, scanStart int) error {
	if s.state != ScanDraft {
		return &InfeasibleScan{SourceName: "", Reason: "rigorous update applied to a non-draft scan"}
	}
	src, ok := sources.ByID(s.sourceID)
	if !ok {
		return &InfeasibleScan{Reason: "unknown source"}
	}
	params := src.Parameters()
	required := make(map[string]bool, len(params.RequiredStations))
	for _, name := range params.RequiredStations {
		required[name] = true
	}

	s.refineSlew(net, src, clock, scanStart)
	s.alignStart(net, anchor, scanStart)
	s.computeDurations(net, src, baselines, mode, clock)
	s.enforceStationMaxScan(net)
	s.checkInScanVisibility(net, src, clock)
	s.checkEndPosition(net)

	if err := s.checkFeasible(net, src, params, required); err != nil {
		s.state = ScanDiscarded
		return err
	}
	s.state = ScanRigorouslyUpdated
	return nil
}

func (s *Scan) checkFeasible(net *Network, src *Source, params SourceParameters, required map[string]bool) error {
	if len(s.stations) < params.MinStations {
		return &InfeasibleScan{SourceName: src.Name(), Reason: "fewer than minStations remain"}
	}
	if len(required) > 0 {
		present := make(map[string]bool, len(s.stations))
		for _, id := range s.stations {
			if st, ok := net.ByID(id); ok {
				present[st.Name()] = true
				present[st.Code()] = true
			}
		}
		for name := range required {
			if !present[name] {
				return &InfeasibleScan{SourceName: src.Name(), Reason: "required station " + name + " removed"}
			}
		}
	}
	if len(s.observations) == 0 {
		return &InfeasibleScan{SourceName: src.Name(), Reason: "no observations survive"}
	}
	return nil
}

// refineSlew iteratively solves each station's end-of-slew time: recompute
// az/el at the current guess, unwrap near the station's reference
// azimuth, recompute slew duration, repeat to a 1-second fixed point.
// Ambiguous unwraps on two consecutive iterations ("big slew") or a
// cable-wrap/horizon violation drop the station. Grounded on spec.md
// §4.5 step 1 / original_source/VLBI_pointingVector.cpp's iterative
// slew-time solve.
func (s *Scan) refineSlew(net *Network, src *Source, clock *SessionClock, scanStart int) {
	for _, stationID := range append([]int{}, s.stations...) {
		st, ok := net.ByID(stationID)
		if !ok {
			s.removeStation(stationID)
			continue
		}
		refAz := st.ReferenceAzimuth()
		from, hasFrom := st.CurrentPointing()
		if !hasFrom {
			from = PointingVector{Az: refAz}
		}

		guess := scanStart
		ambiguousStreak := 0
		converged := false
		var finalAz, finalEl float64
		for iter := 0; iter < maxSlewRefineIter; iter++ {
			az, el, ambiguous, ok := s.resolveAzEl(st, src, clock, guess, refAz)
			if !ok {
				converged = false
				break
			}
			if ambiguous {
				ambiguousStreak++
				if ambiguousStreak >= 2 {
					break
				}
			} else {
				ambiguousStreak = 0
			}
			slew := st.Antenna().SlewTime(from, AzEl{Az: az, El: el})
			next := scanStart + int(math.Ceil(slew))
			if fd := st.FlushDeadline(); fd > next {
				next = fd
			}
			finalAz, finalEl = az, el
			if absInt(next-guess) <= 1 {
				guess = next
				converged = true
				break
			}
			guess = next
		}
		if !converged || ambiguousStreak >= 2 {
			s.removeStation(stationID)
			continue
		}
		pv := AzEl{Az: finalAz, El: finalEl}
		if st.CableWrap() != nil && !st.CableWrap().Inside(pv) {
			s.removeStation(stationID)
			continue
		}
		if st.Horizon() != nil && !st.Horizon().Visible(pv) {
			s.removeStation(stationID)
			continue
		}
		ha, dec, _ := s.hourAngleDec(st, src, clock, guess)
		s.startPointing[stationID] = PointingVector{StationID: stationID, SourceID: s.sourceID, Az: finalAz, El: finalEl, HourAngle: ha, Dec: dec, T: guess}
		s.times[stationID] = StationScanTimes{EndOfSlew: guess}
	}
}

// resolveAzEl computes the unwrapped az/el of src as seen from st at
// session time t using the cheap (simple) pass, per spec.md §4.1.
func (s *Scan) resolveAzEl(st *Station, src *Source, clock *SessionClock, t int, refAz float64) (az, el float64, ambiguous, ok bool) {
	dirGcrs, valid := src.GetSourceInCrs(t, clock, st.ECEF())
	if !valid {
		return 0, 0, false, false
	}
	gmst := clock.Gmst(t)
	losEcef := rotateGcrsToItrs(dirGcrs, gmst)
	raw := SimpleAzEl(st.Geodetic(), losEcef)
	if st.CableWrap() == nil {
		return raw.Az, raw.El, false, true
	}
	unwrapped, amb := st.CableWrap().UnwrapNear(raw.Az, refAz)
	return unwrapped, raw.El, amb, true
}

func (s *Scan) hourAngleDec(st *Station, src *Source, clock *SessionClock, t int) (ha, dec float64, ok bool) {
	ra, dec, ok := src.GetRaDec(t, clock, st.ECEF())
	if !ok {
		return 0, 0, false
	}
	ha = HourAngle(ra, clock.Gmst(t), st.Geodetic().Lon)
	return ha, dec, true
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// alignStart aligns every remaining station's preob/observe start per the
// chosen anchor; a station that cannot reach its target start within its
// max wait time is removed. AnchorIndividual leaves every station at its
// own ready time (no common start at all). AnchorStartOfObserving and
// AnchorEndOfObserving both align every station to one common clock time,
// differing only in which station's boundary defines it:
// AnchorStartOfObserving anchors to the slowest-ready station, so every
// station waits for it and observing starts together; AnchorEndOfObserving
// anchors to whichever station would finish last if it started the
// instant it was ready (using its own minScan as the duration proxy, since
// actual per-baseline durations aren't known until computeDurations),
// so every station's minimum-length observation ends together. Grounded on
// spec.md §4.5 step 2 / §3's common-start invariant.
func (s *Scan) alignStart(net *Network, anchor AlignAnchor, scanStart int) {
	if len(s.stations) == 0 {
		return
	}
	readyTimes := make(map[int]int, len(s.stations))
	for _, id := range s.stations {
		st, _ := net.ByID(id)
		times := s.times[id]
		ready := times.EndOfSlew + int(math.Ceil(st.Parameters().PreobTime))
		readyTimes[id] = ready
	}

	if anchor == AnchorIndividual {
		for _, id := range s.stations {
			ready := readyTimes[id]
			times := s.times[id]
			times.EndOfIdle = times.EndOfSlew
			times.EndOfPreob = ready
			times.StartObserving = ready
			s.times[id] = times
		}
		return
	}

	common := 0
	for id, ready := range readyTimes {
		target := ready
		if anchor == AnchorEndOfObserving {
			st, _ := net.ByID(id)
			target = ready + int(math.Ceil(st.Parameters().MinScan))
		}
		if target > common {
			common = target
		}
	}

	for _, id := range append([]int{}, s.stations...) {
		st, _ := net.ByID(id)
		start := common
		if anchor == AnchorEndOfObserving {
			start = common - int(math.Ceil(st.Parameters().MinScan))
			if start < readyTimes[id] {
				start = readyTimes[id]
			}
		}
		wait := start - readyTimes[id]
		if wait < 0 {
			wait = 0
		}
		if float64(wait) > st.Parameters().MaxWaitTime {
			s.removeStation(id)
			continue
		}
		times := s.times[id]
		times.EndOfIdle = times.EndOfSlew + wait
		times.EndOfPreob = start
		times.StartObserving = start
		s.times[id] = times
	}
}

// computeDurations fills in per-baseline observing durations (§4.3) for
// every pair of remaining stations, then sets each station's observing
// duration to the max over its baselines. Observations whose duration
// cannot be clamped within the baseline's [minScan, maxScan] are dropped
// individually, not the whole scan (spec.md §4.3/§4.5 step 3).
func (s *Scan) computeDurations(net *Network, src *Source, baselines *BaselineSet, mode Mode, clock *SessionClock) {
	if src.Parameters().FixedScanDuration > 0 {
		s.applyFixedDuration(net, src, src.Parameters().FixedScanDuration, baselines)
		return
	}

	stationObsEnd := make(map[int]int, len(s.stations))
	s.observations = s.observations[:0]
	srcIgnore := src.Parameters().IgnoreBaselines

	for i := 0; i < len(s.stations); i++ {
		for j := i + 1; j < len(s.stations); j++ {
			s1, s2 := s.stations[i], s.stations[j]
			bl, ok := baselines.Lookup(s1, s2)
			if !ok || bl.Parameters().Ignore {
				continue
			}
			st1, _ := net.ByID(s1)
			st2, _ := net.ByID(s2)
			if sourceIgnoresBaseline(srcIgnore, st1, st2) {
				continue
			}
			tau, ok := s.baselineDuration(src, st1, st2, bl, mode, clock)
			if !ok {
				continue
			}
			key := NewBaselineKey(s1, s2)
			start := s.times[s1].StartObserving
			s.observations = append(s.observations, Observation{Baseline: key, SourceID: s.sourceID, Start: start, ObservingDuration: tau})
			end := start + int(math.Ceil(tau))
			if end > stationObsEnd[s1] {
				stationObsEnd[s1] = end
			}
			if end > stationObsEnd[s2] {
				stationObsEnd[s2] = end
			}
		}
	}

	for _, id := range s.stations {
		times := s.times[id]
		times.EndObserving = stationObsEnd[id]
		s.times[id] = times
	}
}

func (s *Scan) applyFixedDuration(net *Network, src *Source, duration float64, baselines *BaselineSet) {
	s.observations = s.observations[:0]
	srcIgnore := src.Parameters().IgnoreBaselines
	for i := 0; i < len(s.stations); i++ {
		for j := i + 1; j < len(s.stations); j++ {
			s1, s2 := s.stations[i], s.stations[j]
			bl, ok := baselines.Lookup(s1, s2)
			if !ok || bl.Parameters().Ignore {
				continue
			}
			st1, _ := net.ByID(s1)
			st2, _ := net.ByID(s2)
			if sourceIgnoresBaseline(srcIgnore, st1, st2) {
				continue
			}
			key := NewBaselineKey(s1, s2)
			start := s.times[s1].StartObserving
			s.observations = append(s.observations, Observation{Baseline: key, SourceID: s.sourceID, Start: start, ObservingDuration: duration})
		}
	}
	for _, id := range s.stations {
		times := s.times[id]
		times.EndObserving = times.StartObserving + int(math.Ceil(duration))
		s.times[id] = times
	}
}

// sourceIgnoresBaseline reports whether a source's explicit per-baseline
// ignore list (station name or code pairs, either order) names the
// baseline between st1 and st2, per spec.md §3's IgnoreBaselines.
func sourceIgnoresBaseline(ignoreList [][2]string, st1, st2 *Station) bool {
	if st1 == nil || st2 == nil {
		return false
	}
	for _, pair := range ignoreList {
		matchesForward := (pair[0] == st1.Name() || pair[0] == st1.Code()) && (pair[1] == st2.Name() || pair[1] == st2.Code())
		matchesReverse := (pair[0] == st2.Name() || pair[0] == st2.Code()) && (pair[1] == st1.Name() || pair[1] == st1.Code())
		if matchesForward || matchesReverse {
			return true
		}
	}
	return false
}

// baselineDuration implements spec.md §4.3's duration formula for one
// baseline, maximizing over bands and clamping to the baseline's
// [minScan, maxScan]. ok is false when no band can produce a finite,
// in-range duration (the observation is dropped).
func (s *Scan) baselineDuration(src *Source, st1, st2 *Station, bl *Baseline, mode Mode, clock *SessionClock) (float64, bool) {
	srcP := src.Parameters()
	blP := bl.Parameters()
	maxTau := 0.0
	found := false

	pv1 := s.startPointing[st1.ID()]
	pv2 := s.startPointing[st2.ID()]

	for band, modeBand := range mode.Bands {
		sefd1, ok1 := st1.Equipment().SEFD(band, pv1.El)
		sefd2, ok2 := st2.Equipment().SEFD(band, pv2.El)
		if !ok1 || !ok2 {
			continue
		}
		dxyz := st2.ECEF().Sub(st1.ECEF())
		ra, _, _ := src.GetRaDec(pv1.T, clock, st1.ECEF())
		uv := CalcUV(ra, pv1.Dec, clock.Gmst(pv1.T), dxyz, modeBand.Wavelength)
		flux, ok := src.ObservedFlux(band, uv, mode.SourceBackup)
		if !ok || flux <= 0 {
			continue
		}
		rate := BaselineRecordingRate(mode, band, modeBand.RecordingRate, modeBand.RecordingRate)
		if rate <= 0 {
			continue
		}
		snrMax := maxSNR(srcP.MinSNR[band], blP.MinSNR[band], st1.Parameters().MinSNR[band], st2.Parameters().MinSNR[band])
		if snrMax <= 0 || mode.Efficiency <= 0 {
			continue
		}
		ratio := snrMax * sefd1 * sefd2 / (mode.Efficiency * flux * math.Sqrt(rate))
		tau := ratio*ratio + mode.CorSyncMax
		if math.IsNaN(tau) || math.IsInf(tau, 0) {
			continue
		}
		found = true
		if tau > maxTau {
			maxTau = tau
		}
	}
	if !found {
		return 0, false
	}
	tau := math.Ceil(maxTau)
	lo, hi := blP.MinScan, blP.MaxScan
	if lo > 0 && tau < lo {
		tau = lo
	}
	if hi > 0 && tau > hi {
		return 0, false
	}
	return tau, true
}

func maxSNR(values ...float64) float64 {
	max := 0.0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}

// enforceStationMaxScan removes the station contributing the most
// over-long observations when any baseline duration exceeds a station's
// maxScan, breaking ties by highest SEFD then latest slew-end, per
// spec.md §4.5 step 4. Repeats until stable.
func (s *Scan) enforceStationMaxScan(net *Network) {
	for {
		violators := map[int]int{}
		for _, id := range s.stations {
			st, _ := net.ByID(id)
			maxScan := st.Parameters().MaxScan
			if maxScan <= 0 {
				continue
			}
			times := s.times[id]
			duration := float64(times.EndObserving - times.StartObserving)
			if duration <= maxScan {
				continue
			}
			// count the over-long observations this station takes part in;
			// a station over its own budget counts at least once
			violators[id] = 1
			n := 0
			for _, obs := range s.observations {
				if (obs.Baseline.Station1 == id || obs.Baseline.Station2 == id) && obs.ObservingDuration > maxScan {
					n++
				}
			}
			if n > 1 {
				violators[id] = n
			}
		}
		if len(violators) == 0 {
			return
		}
		worst := worstStation(net, violators, s)
		s.removeStation(worst)
		s.recomputeObservationsAfterRemoval(net)
	}
}

func worstStation(net *Network, violators map[int]int, s *Scan) int {
	best := -1
	bestCount := -1
	bestSEFD := -1.0
	bestSlewEnd := -1
	for id, count := range violators {
		st, _ := net.ByID(id)
		pv := s.startPointing[id]
		sefd := maxStationSEFD(st, pv.El)
		slewEnd := s.times[id].EndOfSlew
		switch {
		case count > bestCount:
			best, bestCount, bestSEFD, bestSlewEnd = id, count, sefd, slewEnd
		case count == bestCount && sefd > bestSEFD:
			best, bestSEFD, bestSlewEnd = id, sefd, slewEnd
		case count == bestCount && sefd == bestSEFD && slewEnd > bestSlewEnd:
			best, bestSlewEnd = id, slewEnd
		case count == bestCount && sefd == bestSEFD && slewEnd == bestSlewEnd && id > best:
			best = id
		}
	}
	return best
}

func maxStationSEFD(st *Station, el float64) float64 {
	max := 0.0
	for band := range st.Equipment().Bands {
		if v, ok := st.Equipment().SEFD(band, el); ok && v > max {
			max = v
		}
	}
	return max
}

// recomputeObservationsAfterRemoval drops observations touching a removed
// station; it does not recompute durations since only the remaining
// baselines' durations are unaffected by another station's removal.
func (s *Scan) recomputeObservationsAfterRemoval(net *Network) {
	present := make(map[int]bool, len(s.stations))
	for _, id := range s.stations {
		present[id] = true
	}
	out := s.observations[:0]
	for _, obs := range s.observations {
		if present[obs.Baseline.Station1] && present[obs.Baseline.Station2] {
			out = append(out, obs)
		}
	}
	s.observations = out
}

// checkInScanVisibility steps through the observing window in 30-second
// increments (and at the end) and removes any station for which the
// source becomes unreachable, per spec.md §4.5 step 5.
func (s *Scan) checkInScanVisibility(net *Network, src *Source, clock *SessionClock) {
	for _, id := range append([]int{}, s.stations...) {
		st, _ := net.ByID(id)
		times, ok := s.times[id]
		if !ok {
			continue
		}
		start, end := times.StartObserving, times.EndObserving
		if end <= start {
			continue
		}
		refAz := s.startPointing[id].Az
		ok2 := true
		for t := start; t < end; t += inScanVisibilityStepSeconds {
			az, el, _, valid := s.resolveAzEl(st, src, clock, t, refAz)
			if !valid {
				ok2 = false
				break
			}
			pv := AzEl{Az: az, El: el}
			if st.CableWrap() != nil && !st.CableWrap().Inside(pv) {
				ok2 = false
				break
			}
			if st.Horizon() != nil && !st.Horizon().Visible(pv) {
				ok2 = false
				break
			}
			if el < src.Parameters().MinElevation {
				ok2 = false
				break
			}
			refAz = az
		}
		if ok2 {
			az, el, _, valid := s.resolveAzEl(st, src, clock, end, refAz)
			if valid {
				pv := AzEl{Az: az, El: el}
				if (st.CableWrap() != nil && !st.CableWrap().Inside(pv)) || (st.Horizon() != nil && !st.Horizon().Visible(pv)) {
					ok2 = false
				} else {
					endPV := s.endPointing[id]
					endPV.Az, endPV.El, endPV.T = az, el, end
					s.endPointing[id] = endPV
				}
			} else {
				ok2 = false
			}
		}
		if !ok2 {
			s.removeStation(id)
			s.recomputeObservationsAfterRemoval(net)
		}
	}
}

// checkEndPosition verifies, for scans carrying a fill-in deadline, that
// each station can still reach its next required end position after this
// scan's system delay, the antenna's worst-case slew (MaxSlewtime) and
// preob time, per spec.md §4.5 step 6.
func (s *Scan) checkEndPosition(net *Network) {
	if len(s.requiredEndPosition) == 0 {
		return
	}
	for id, deadline := range s.requiredEndPosition {
		times, ok := s.times[id]
		if !ok {
			continue
		}
		st, _ := net.ByID(id)
		systemDelay := st.Parameters().SystemTime
		worstSlew := st.Antenna().MaxSlewtime
		preob := st.Parameters().PreobTime
		mustBeFreeBy := float64(times.EndObserving) + systemDelay + worstSlew + preob
		if mustBeFreeBy > float64(deadline) {
			s.removeStation(id)
			s.recomputeObservationsAfterRemoval(net)
		}
	}
}

// Ramp is a piecewise-linear scoring ramp between a start threshold
// (score 0) and a full-weight threshold (score 1), per spec.md §4.6.
type Ramp struct {
	Start, Full float64
}

func (r Ramp) score(x float64) float64 {
	if r.Full == r.Start {
		return 0
	}
	f := (x - r.Start) / (r.Full - r.Start)
	return clamp(f, 0, 1)
}

// WeightFactors are the session-wide additive/multiplicative scoring
// weights and ramp thresholds of spec.md §4.6.
type WeightFactors struct {
	WObs, WSrc, WSta, WBl, WDur, WIdle, WDecl, WLowEl, WSky float64
	LowElevationRamp   Ramp
	LowDeclinationRamp Ramp
	TauMin, TauMax     float64
}

// ScoreContext carries the cross-scan aggregates scoring needs: running
// maxima/averages the scheduler maintains across the session, plus the
// per-source/station/baseline multiplicative weights and the current
// custom-scan-sequence state.
type ScoreContext struct {
	Weights          WeightFactors
	NObsMax          int
	NStaMax          int
	AvgSourceScore   map[int]float64
	AvgStationScore  map[int]float64
	AvgBaselineScore map[BaselineKey]float64
	IdleScore        map[int]float64
	SourceWeight     map[int]float64
	StationWeight    map[int]float64
	BaselineWeight   map[BaselineKey]float64

	TryToFocusActive    map[int]bool // source id -> currently observed-before
	CustomSequenceTarget map[int]bool // source id -> in current cadence bucket
	CustomSequenceActive bool

	SkyCoverage *SkyCoverageClusters
}

// ComputeScore implements spec.md §4.6: additive components, then
// multiplicative source/station/baseline weights, then try-to-focus and
// custom-scan-sequence adjustments. It does not mutate the scan beyond
// setting its score and state.
func (s *Scan) ComputeScore(ctx ScoreContext, net *Network, sources *SourceList) float64 {
	w := ctx.Weights
	nObs := len(s.observations)
	nSta := len(s.stations)

	score := 0.0
	if ctx.NObsMax > 0 {
		score += w.WObs * float64(nObs) / float64(ctx.NObsMax)
		score += w.WSrc * float64(nObs) / float64(ctx.NObsMax) * ctx.AvgSourceScore[s.sourceID]
	}
	if ctx.NStaMax > 1 {
		staSum := 0.0
		obsPerStation := observationsPerStation(s.observations)
		for _, id := range s.stations {
			staSum += ctx.AvgStationScore[id] * float64(obsPerStation[id])
		}
		score += w.WSta * staSum / float64(ctx.NStaMax-1)
	}
	blSum := 0.0
	for _, obs := range s.observations {
		blSum += ctx.AvgBaselineScore[obs.Baseline]
	}
	score += w.WBl * blSum

	if w.WDur != 0 && w.TauMax > w.TauMin {
		tau := s.meanObservingDuration()
		score += w.WDur * (1 - (tau-w.TauMin)/(w.TauMax-w.TauMin)) * float64(nSta) / float64(ctx.NStaMax)
	}

	idleSum := 0.0
	for _, id := range s.stations {
		idleSum += ctx.IdleScore[id]
	}
	score += w.WIdle * idleSum

	if src, ok := sources.ByID(s.sourceID); ok {
		if ctx.NObsMax > 0 {
			declScore := 0.0
			for _, pv := range s.startPointing {
				declScore += w.LowDeclinationRamp.score(pv.Dec)
			}
			if len(s.startPointing) > 0 {
				declScore /= float64(len(s.startPointing))
			}
			score += w.WDecl * declScore * float64(nObs) / float64(ctx.NObsMax)
		}
		lowElSum := 0.0
		for _, pv := range s.startPointing {
			lowElSum += w.LowElevationRamp.score(pv.El)
		}
		if ctx.NStaMax > 0 {
			score += w.WLowEl * lowElSum / float64(ctx.NStaMax)
		}
		_ = src
	}

	if ctx.SkyCoverage != nil {
		skySum := 0.0
		for _, id := range s.stations {
			pv := s.startPointing[id]
			if sc := ctx.SkyCoverage.For(id); sc != nil {
				skySum += sc.Score(pv.Az, pv.El, pv.T)
			} else {
				skySum += 1
			}
		}
		if nSta > 0 {
			score += w.WSky * skySum / float64(nSta)
		}
	}

	score *= ctx.SourceWeight[s.sourceID]
	for _, id := range s.stations {
		if sw, ok := ctx.StationWeight[id]; ok {
			score *= sw
		}
	}
	for _, obs := range s.observations {
		if bw, ok := ctx.BaselineWeight[obs.Baseline]; ok {
			score *= bw
		}
	}

	if src, ok := sources.ByID(s.sourceID); ok {
		params := src.Parameters()
		if ctx.TryToFocusActive[s.sourceID] && params.TryToFocusFactor != 0 {
			if params.TryToFocusAdditive {
				score += params.TryToFocusFactor
			} else {
				score *= params.TryToFocusFactor
			}
		}
	}

	if ctx.CustomSequenceActive {
		if ctx.CustomSequenceTarget[s.sourceID] {
			score *= 100
		} else {
			score /= 100
		}
	}

	s.score = score
	s.state = ScanScored
	return score
}

func (s *Scan) meanObservingDuration() float64 {
	if len(s.observations) == 0 {
		return 0
	}
	total := 0.0
	for _, obs := range s.observations {
		total += obs.ObservingDuration
	}
	return total / float64(len(s.observations))
}

func observationsPerStation(observations []Observation) map[int]int {
	out := make(map[int]int)
	for _, obs := range observations {
		out[obs.Baseline.Station1]++
		out[obs.Baseline.Station2]++
	}
	return out
}

// Commit finalizes a scored scan: updates each participating station's
// current pointing and counters, each source's statistics, each
// baseline's observation counter, and each station's sky-coverage log.
// mode supplies the recording rate used to compute each station's
// write-rate flush deadline (spec.md §3's DataWriteRate/WriteRateFloor).
// Commit order is the caller's responsibility to keep deterministic
// (spec.md §5's ordering guarantee).
func (s *Scan) Commit(net *Network, sources *SourceList, baselines *BaselineSet, skyCoverage *SkyCoverageClusters, mode Mode) {
	if s.state != ScanScored {
		return
	}
	recordRate := representativeRecordingRate(mode)
	for _, id := range s.stations {
		st, ok := net.ByID(id)
		if !ok {
			continue
		}
		pv := s.endPointing[id]
		if pv.T == 0 {
			pv = s.startPointing[id]
		}
		st.SetPointing(pv)
		st.RecordScan(countObservationsFor(s.observations, id), s.bytesWritten(net, id))
		times := s.times[id]
		st.SetBusyUntil(times.EndObserving)
		if duration := float64(times.EndObserving - times.StartObserving); duration > 0 {
			floor := WriteRateFloor(duration, recordRate, st.Parameters().DataWriteRate)
			if floor > 0 {
				st.SetFlushDeadline(times.EndObserving + int(math.Ceil(floor)))
			}
		}
		if skyCoverage != nil {
			if sc := skyCoverage.For(id); sc != nil {
				sc.Record(SkyCoveragePoint{Az: pv.Az, El: pv.El, T: pv.T})
			}
		}
	}
	if src, ok := sources.ByID(s.sourceID); ok {
		src.RecordScan(s.scanStartTime(), s.meanObservingDuration())
	}
	for _, obs := range s.observations {
		if bl, ok := baselines.Lookup(obs.Baseline.Station1, obs.Baseline.Station2); ok {
			bl.RecordObservation()
			bl.SetBusyUntil(obs.Start + int(math.Ceil(obs.ObservingDuration)))
		}
	}
	s.state = ScanCommitted
}

// representativeRecordingRate returns the highest per-station recording
// rate (bits/s) across a mode's bands, used as the conservative input to
// WriteRateFloor since a committed scan's actual band isn't tracked
// per-observation.
func representativeRecordingRate(mode Mode) float64 {
	rate := 0.0
	for _, b := range mode.Bands {
		if b.RecordingRate > rate {
			rate = b.RecordingRate
		}
	}
	return rate
}

func countObservationsFor(observations []Observation, stationID int) int {
	count := 0
	for _, obs := range observations {
		if obs.Baseline.Station1 == stationID || obs.Baseline.Station2 == stationID {
			count++
		}
	}
	return count
}

func (s *Scan) bytesWritten(net *Network, stationID int) float64 {
	times := s.times[stationID]
	duration := float64(times.EndObserving - times.StartObserving)
	if duration <= 0 {
		return 0
	}
	return duration // placeholder unit scaling left to the caller's recording-rate bookkeeping
}

func (s *Scan) scanStartTime() int {
	min := -1
	for _, pv := range s.startPointing {
		if min == -1 || pv.T < min {
			min = pv.T
		}
	}
	if min == -1 {
		return 0
	}
	return min
}

// EndOfObserving returns the latest end-of-observing time across
// participating stations, the point from which the scheduler advances
// current_time (spec.md §4.7).
func (s *Scan) EndOfObserving() int {
	max := 0
	for _, t := range s.times {
		if t.EndObserving > max {
			max = t.EndObserving
		}
	}
	return max
}
