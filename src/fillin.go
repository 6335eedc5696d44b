package skysched

import "math"

const fillinAssumedSlewSeconds = 5.0

// FillinState is the per-station bookkeeping the fill-in engine needs:
// each station's available idle time before its next committed
// obligation, whether it's even eligible to attempt a fill-in scan, and
// the deadline/pointing it must be free to slew toward. Grounded on
// original_source/VLBI_fillin_endpositions.cpp.
type FillinState struct {
	RequiredEndPosition map[int]PointingVector
	AvailableTime       map[int]float64
	Possible            map[int]bool
	Unused              map[int]bool
}

// NewFillinState computes fill-in eligibility for every station in net,
// given the set of scans the scheduler has already committed to run next
// (upcomingScans) and the current session time now. A station that
// appears in none of upcomingScans is "unused": its deadline is the
// earliest start time among all stations that do have one, since an
// unused station must still be free by the time the rest of the network
// moves on.
func NewFillinState(net *Network, upcomingScans []*Scan, now int) *FillinState {
	stations := net.All()
	state := &FillinState{
		RequiredEndPosition: make(map[int]PointingVector, len(stations)),
		AvailableTime:       make(map[int]float64, len(stations)),
		Possible:            make(map[int]bool, len(stations)),
		Unused:              make(map[int]bool, len(stations)),
	}

	earliestStart := make(map[int]int, len(stations))
	for _, st := range stations {
		state.Unused[st.ID()] = true
	}

	for _, scan := range upcomingScans {
		for _, id := range scan.Stations() {
			pv, ok := scan.startPointingFor(id)
			if !ok {
				continue
			}
			if existing, seen := earliestStart[id]; !seen || pv.T < existing {
				earliestStart[id] = pv.T
				state.RequiredEndPosition[id] = pv
				state.Unused[id] = false
			}
		}
	}

	totalEarliestStart := now
	first := true
	for id, t := range earliestStart {
		if first || t < totalEarliestStart {
			totalEarliestStart = t
			first = false
		}
		_ = id
	}

	for _, st := range stations {
		id := st.ID()
		var available float64
		if !state.Unused[id] {
			begin := now
			end := earliestStart[id]
			if begin > end {
				available = 0
			} else {
				available = float64(end - begin)
			}
		} else {
			pv := state.RequiredEndPosition[id]
			pv.T = totalEarliestStart
			state.RequiredEndPosition[id] = pv
			if now > totalEarliestStart {
				available = 0
			} else {
				available = float64(totalEarliestStart - now)
			}
		}
		state.AvailableTime[id] = available

		p := st.Parameters()
		needed := p.SystemTime + p.PreobTime + fillinAssumedSlewSeconds + p.MinScan
		possible := available >= needed
		if state.Unused[id] && !p.Available {
			possible = false
			state.AvailableTime[id] = 0
		}
		state.Possible[id] = possible
	}

	return state
}

// NumPossible returns how many stations can currently attempt a fill-in
// scan.
func (f *FillinState) NumPossible() int {
	n := 0
	for _, ok := range f.Possible {
		if ok {
			n++
		}
	}
	return n
}

// startPointingFor exposes a scan's per-station start pointing to the
// fill-in state builder without making the whole startPointing map
// public.
func (s *Scan) startPointingFor(stationID int) (PointingVector, bool) {
	pv, ok := s.startPointing[stationID]
	return pv, ok
}

// GenerateFillinCandidates runs candidate enumeration restricted to
// availableForFillin sources and to stations the fill-in state marks
// possible, tagging each resulting scan with its end-position deadline
// so RigorousUpdate's step 6 (spec.md §4.5) can reject a candidate that
// would make a station miss its next committed pointing.
func GenerateFillinCandidates(cfg EnumerationConfig, now int, sourceState map[int]SourceSchedulingState, fillin *FillinState) []*Scan {
	cfg.AvailableForFillinOnly = true
	candidates := EnumerateCandidates(cfg, now, sourceState)

	var out []*Scan
	for _, scan := range candidates {
		restricted := scan.Stations()[:0]
		for _, id := range scan.Stations() {
			if fillin.Possible[id] {
				restricted = append(restricted, id)
			}
		}
		if len(restricted) == 0 {
			continue
		}
		src, ok := cfg.Sources.ByID(scan.SourceID())
		if !ok || len(restricted) < src.Parameters().MinStations {
			continue
		}
		fresh := NewCandidateScan(scan.SourceID(), ScanFillin, restricted)
		for _, id := range restricted {
			if pv, ok := fillin.RequiredEndPosition[id]; ok {
				deadline := pv.T - int(math.Ceil(fillinAssumedSlewSeconds))
				fresh.SetRequiredEndPosition(id, deadline)
			}
		}
		out = append(out, fresh)
	}
	return out
}
