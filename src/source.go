package skysched

import "math"

// SourceKind tags which variant of the Source capability set is active.
// The scan core dispatches on this tag and never downcasts to a concrete
// type, per spec.md §9's resolution of the AbstractSource design question:
// polymorphic sources are a tagged sum with a capability set, not an
// inheritance hierarchy. Grounded on
// original_source/Source/{AbstractSource,Quasar,Spacecraft}.cpp.
type SourceKind int

const (
	SourceQuasar SourceKind = iota
	SourceSatellite
)

// SourceParameters is the full scheduling-knob set carried by a Source,
// per spec.md §3.
type SourceParameters struct {
	MinStations    int
	MinFlux        float64
	MinScan        float64
	MaxScan        float64
	MaxScans       int
	MinRepeat      float64 // s, between scans of this source
	MinElevation   float64 // rad
	MinSunDistance float64 // rad

	JetAngleBuffer float64 // rad
	JetAngleFactor float64 // multiplies jet angle uncertainty

	TryToFocusFactor     float64
	TryToFocusAdditive   bool // additive vs multiplicative combination with the base score
	TryToFocusOccurrence int  // 0 = every scan, >0 = only the Nth scan onward

	EvenlyDistributedTarget int // "observe N times, evenly distributed" goal; 0 disables

	FixedScanDuration float64 // s; 0 means derive duration from SNR

	IgnoreStations   []string
	RequiredStations []string
	IgnoreBaselines  [][2]string

	MinSNR map[string]float64
	Weight float64

	Available           bool
	AvailableForFillin  bool
}

// SourceStats accumulates per-source running counters on commit, grounded
// on original_source/Output/SourceStatistics.cpp (dropped from spec.md's
// distillation but present throughout the original).
type SourceStats struct {
	NumScans            int
	TotalObservedSeconds float64
	FirstScan            int
	LastScan             int
	haveScan             bool
}

// SatelliteEphemeris is the capability a Satellite source delegates its
// time-varying position to. tSinceEpochMin is minutes since the
// ephemeris's own reference epoch (e.g. a TLE epoch); implementations
// return a position and velocity in a common inertial (TEME-like) frame,
// kilometers and km/s.
type SatelliteEphemeris interface {
	PositionECI(tSinceEpochMin float64) (posKm Vec3, velKmS Vec3, err error)
	EpochSessionSeconds() int // the ephemeris epoch, expressed in session time
}

// Source is the tagged-sum union of {Quasar, Satellite} plus the shared
// fields every source carries regardless of kind: name/alias, per-band
// flux, the active Parameters timeline, and an optional jet angle.
// Grounded on original_source/Source/AbstractSource.{h,cpp}.
type Source struct {
	id    int
	name  string
	alias string
	kind  SourceKind

	ra, dec float64 // SourceQuasar only, rad

	ephemeris SatelliteEphemeris // SourceSatellite only

	flux Flux

	params *EventTimeline[SourceParameters]

	hasJet                bool
	jetAngle              float64 // rad, position angle of the jet axis
	jetAngleUncertainty   float64 // rad

	stats SourceStats

	// busyUntil is the end of the source's last committed scan,
	// consulted by FireEvents to defer a soft parameter transition until
	// that scan finishes.
	busyUntil int
}

// NewQuasarSource builds a fixed-position source.
func NewQuasarSource(id int, name, alias string, ra, dec float64, flux Flux, initial SourceParameters, events []ParamEvent[SourceParameters]) (*Source, error) {
	timeline, err := NewEventTimeline("source:"+name, initial, events)
	if err != nil {
		return nil, err
	}
	return &Source{id: id, name: name, alias: alias, kind: SourceQuasar, ra: ra, dec: dec, flux: flux, params: timeline}, nil
}

// NewSatelliteSource builds an ephemeris-driven source.
func NewSatelliteSource(id int, name, alias string, ephemeris SatelliteEphemeris, flux Flux, initial SourceParameters, events []ParamEvent[SourceParameters]) (*Source, error) {
	timeline, err := NewEventTimeline("source:"+name, initial, events)
	if err != nil {
		return nil, err
	}
	return &Source{id: id, name: name, alias: alias, kind: SourceSatellite, ephemeris: ephemeris, flux: flux, params: timeline}, nil
}

// WithJetAngle attaches an optional jet axis position angle and its
// uncertainty, used by the jet-angle gate in candidate enumeration.
func (s *Source) WithJetAngle(positionAngle, uncertainty float64) *Source {
	s.hasJet = true
	s.jetAngle = positionAngle
	s.jetAngleUncertainty = uncertainty
	return s
}

func (s *Source) ID() int          { return s.id }
func (s *Source) Name() string     { return s.name }
func (s *Source) Alias() string    { return s.alias }
func (s *Source) Kind() SourceKind { return s.kind }
func (s *Source) IsSatellite() bool { return s.kind == SourceSatellite }

// Parameters returns the currently active parameter set.
func (s *Source) Parameters() SourceParameters {
	return s.params.Active()
}

// FireEvents advances the source's parameter timeline to session time t.
func (s *Source) FireEvents(t int) bool {
	return s.params.Fire(t, s.busyUntil)
}

// GetRaDec returns the source's apparent right ascension/declination (rad)
// at session time t, as seen from stationECEF. For a Quasar this is the
// fixed catalog position; for a Satellite it is the instantaneous
// topocentric direction resolved from the ephemeris, per spec.md §3's
// capability set. Grounded on original_source/Source/Spacecraft.cpp's
// calcRaDe(t, station position) being the normative form for moving
// sources (spec.md §9 Open Question resolution).
func (s *Source) GetRaDec(t int, clock *SessionClock, stationECEF Vec3) (ra, dec float64, ok bool) {
	switch s.kind {
	case SourceQuasar:
		return s.ra, s.dec, true
	case SourceSatellite:
		dir, ok := s.topocentricDirection(t, clock, stationECEF)
		if !ok {
			return 0, 0, false
		}
		ra = math.Atan2(dir[1], dir[0])
		if ra < 0 {
			ra += 2 * math.Pi
		}
		dec = math.Asin(clamp(dir[2], -1, 1))
		return ra, dec, true
	default:
		return 0, 0, false
	}
}

// GetSourceInCrs returns the unit line-of-sight vector toward the source,
// in the geocentric celestial frame, at session time t as seen from
// stationECEF.
func (s *Source) GetSourceInCrs(t int, clock *SessionClock, stationECEF Vec3) (Vec3, bool) {
	switch s.kind {
	case SourceQuasar:
		return RaDecToUnitVector(s.ra, s.dec), true
	case SourceSatellite:
		return s.topocentricDirection(t, clock, stationECEF)
	default:
		return Vec3{}, false
	}
}

// topocentricDirection resolves a Satellite's position at session time t
// via its ephemeris (in a TEME-like inertial frame), rotates the station's
// ECEF position into that same frame by sidereal angle, and returns the
// normalized station-to-satellite vector. Treating TEME as the rigorous
// frame's GCRS is a scheduling-grade approximation: the arcsecond-level
// frame-bias/precession difference is negligible against antenna beamwidths.
func (s *Source) topocentricDirection(t int, clock *SessionClock, stationECEF Vec3) (Vec3, bool) {
	epoch := s.ephemeris.EpochSessionSeconds()
	minutesSinceEpoch := float64(t-epoch) / 60.0
	posKm, _, err := s.ephemeris.PositionECI(minutesSinceEpoch)
	if err != nil {
		return Vec3{}, false
	}
	satMeters := posKm.Scale(1000)

	theta := clock.Gmst(t)
	stationInertial := rotateGcrsToItrs(stationECEF, -theta)

	los := satMeters.Sub(stationInertial)
	n := los.Norm()
	if n == 0 {
		return Vec3{}, false
	}
	return los.Scale(1 / n), true
}

// Flux returns the source's full per-band flux table.
func (s *Source) Flux() Flux {
	return s.flux
}

// ObservedFlux evaluates the source's flux (Jy) on band at the given
// projected baseline, honoring the mode's source-backup fallback.
func (s *Source) ObservedFlux(band string, uv UV, sourceBackup string) (float64, bool) {
	return s.flux.ObservedFlux(band, uv, sourceBackup)
}

// HasFlux reports whether the source carries an explicit flux table for band.
func (s *Source) HasFlux(band string) bool {
	return s.flux.HasFlux(band)
}

// JetAngleGateOK reports whether a candidate station's parallactic angle
// clears the buffered jet-axis exclusion cone. A source with no jet angle
// always passes. Grounded on original_source/Source/AbstractSource.cpp's
// angularDistance gating against jetAngleBuffer/jetAngleFactor (spec.md's
// §4.7 jet-angle gate).
func (s *Source) JetAngleGateOK(parallacticAngle float64) bool {
	if !s.hasJet {
		return true
	}
	p := s.Parameters()
	diff := math.Mod(math.Abs(parallacticAngle-s.jetAngle), math.Pi)
	if diff > math.Pi/2 {
		diff = math.Pi - diff
	}
	buffer := p.JetAngleBuffer + p.JetAngleFactor*s.jetAngleUncertainty
	return diff >= buffer
}

// RecordScan updates the source's running statistics on scan commit.
func (s *Source) RecordScan(t int, observingDuration float64) {
	s.stats.NumScans++
	s.stats.TotalObservedSeconds += observingDuration
	if !s.stats.haveScan {
		s.stats.FirstScan = t
		s.stats.haveScan = true
	}
	s.stats.LastScan = t
	s.busyUntil = t + int(math.Ceil(observingDuration))
}

// Stats returns the source's accumulated statistics.
func (s *Source) Stats() SourceStats {
	return s.stats
}

// SourceList is the catalog-wide collection of sources, indexed by ID and
// by name/alias for fast lookup. Grounded on
// original_source/Source/SourceList.cpp.
type SourceList struct {
	byID   map[int]*Source
	byName map[string]*Source
}

// NewSourceList builds a catalog from a slice of sources, rejecting
// duplicate names or aliases.
func NewSourceList(sources []*Source) (*SourceList, error) {
	sl := &SourceList{byID: make(map[int]*Source, len(sources)), byName: make(map[string]*Source, len(sources)*2)}
	for _, s := range sources {
		if _, dup := sl.byID[s.id]; dup {
			return nil, &ConfigurationError{Reason: "duplicate source id " + s.name}
		}
		sl.byID[s.id] = s
		if _, dup := sl.byName[s.name]; dup {
			return nil, &ConfigurationError{Reason: "duplicate source name " + s.name}
		}
		sl.byName[s.name] = s
		if s.alias != "" {
			if _, dup := sl.byName[s.alias]; dup {
				return nil, &ConfigurationError{Reason: "duplicate source alias " + s.alias}
			}
			sl.byName[s.alias] = s
		}
	}
	return sl, nil
}

// ByID looks up a source by catalog ID.
func (sl *SourceList) ByID(id int) (*Source, bool) {
	s, ok := sl.byID[id]
	return s, ok
}

// ByName looks up a source by its name or alias.
func (sl *SourceList) ByName(name string) (*Source, bool) {
	s, ok := sl.byName[name]
	return s, ok
}

// All returns every source in the catalog, in no particular order.
func (sl *SourceList) All() []*Source {
	out := make([]*Source, 0, len(sl.byID))
	for _, s := range sl.byID {
		out = append(out, s)
	}
	return out
}
