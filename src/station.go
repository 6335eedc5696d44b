package skysched

// StationParameters is the full per-station scheduling-knob set, per
// spec.md §3. Times are seconds; rates are radians/second or
// bytes/second as appropriate.
type StationParameters struct {
	Available bool

	SystemTime float64
	FieldTime  float64
	PreobTime  float64
	MidobTime  float64
	PostobTime float64

	MinSlewtime float64
	MaxSlewtime float64
	MinScan     float64
	MaxScan     float64
	MaxWaitTime float64

	MinSNR map[string]float64
	Weight float64

	DataWriteRate float64 // bytes/s, 0 = unlimited
	Tagalong      bool
	FirstScan     bool

	IgnoreSources []string
}

// PointingVector is a station's instantaneous pointing at some source:
// azimuth (unwrapped, carrying cable-wrap continuity across scans),
// elevation, hour angle, declination, and the session time it applies to.
// Grounded on spec.md §3's PointingVector entity.
type PointingVector struct {
	StationID int
	SourceID  int
	Az        float64
	El        float64
	HourAngle float64
	Dec       float64
	T         int
}

// StationStats accumulates a station's running counters.
type StationStats struct {
	NumScans      int
	NumObs        int
	BytesWritten  float64
}

// Station is an immutable physical telescope plus its mutable scheduling
// state: current pointing, counters, and active parameter timeline.
// Grounded on original_source/Station/{Network,Position,Baseline}.cpp and
// the teacher's per-receiver state in rtksvr.go.
type Station struct {
	id   int
	name string
	code string

	ecef     Vec3
	geodetic Geodetic

	antenna   Antenna
	cableWrap *CableWrap
	equipment Equipment
	horizon   *HorizonMask

	params *EventTimeline[StationParameters]

	pointing   PointingVector
	havePointing bool

	stats StationStats

	// busyUntil is the end-of-observing time of the station's last
	// committed scan, consulted by FireEvents to defer a soft parameter
	// transition until that scan finishes.
	busyUntil int
	// flushDeadline is the session time before which a finite write-rate
	// station is still flushing the previous scan's data to disk;
	// refineSlew floors the next end-of-slew to it.
	flushDeadline int
}

// NewStation builds a station from its immutable physical attributes plus
// an initial parameter set and event list.
func NewStation(id int, name, code string, ecef Vec3, antenna Antenna, cableWrap *CableWrap, equipment Equipment, horizon *HorizonMask, initial StationParameters, events []ParamEvent[StationParameters]) (*Station, error) {
	timeline, err := NewEventTimeline("station:"+name, initial, events)
	if err != nil {
		return nil, err
	}
	return &Station{
		id:        id,
		name:      name,
		code:      code,
		ecef:      ecef,
		geodetic:  Ecef2Geodetic(ecef),
		antenna:   antenna,
		cableWrap: cableWrap,
		equipment: equipment,
		horizon:   horizon,
		params:    timeline,
	}, nil
}

func (s *Station) ID() int             { return s.id }
func (s *Station) Name() string        { return s.name }
func (s *Station) Code() string        { return s.code }
func (s *Station) ECEF() Vec3          { return s.ecef }
func (s *Station) Geodetic() Geodetic  { return s.geodetic }
func (s *Station) Antenna() Antenna    { return s.antenna }
func (s *Station) CableWrap() *CableWrap { return s.cableWrap }
func (s *Station) Equipment() Equipment { return s.equipment }
func (s *Station) Horizon() *HorizonMask { return s.horizon }

// Parameters returns the currently active parameter set.
func (s *Station) Parameters() StationParameters {
	return s.params.Active()
}

// FireEvents advances the station's parameter timeline to session time t.
func (s *Station) FireEvents(t int) bool {
	return s.params.Fire(t, s.busyUntil)
}

// SetBusyUntil records the end-of-observing time of the station's most
// recently committed scan.
func (s *Station) SetBusyUntil(t int) {
	s.busyUntil = t
}

// FlushDeadline returns the session time before which the station is still
// flushing a finite write-rate scan's data to disk (0 if unconstrained).
func (s *Station) FlushDeadline() int {
	return s.flushDeadline
}

// SetFlushDeadline records a new write-rate flush deadline, keeping the
// latest one seen since deadlines only ever move forward in session time.
func (s *Station) SetFlushDeadline(t int) {
	if t > s.flushDeadline {
		s.flushDeadline = t
	}
}

// CurrentPointing returns the station's last recorded pointing and whether
// one has been recorded yet (false before the station's first scan).
func (s *Station) CurrentPointing() (PointingVector, bool) {
	return s.pointing, s.havePointing
}

// SetPointing records the station's new pointing, e.g. on scan commit.
func (s *Station) SetPointing(p PointingVector) {
	s.pointing = p
	s.havePointing = true
}

// ReferenceAzimuth returns the azimuth to unwrap a new pointing relative
// to: the current pointing if one exists, else the cable wrap's neutral
// point, per spec.md §4.2's unwrapNear contract.
func (s *Station) ReferenceAzimuth() float64 {
	if s.havePointing {
		return s.pointing.Az
	}
	if s.cableWrap != nil {
		return s.cableWrap.NeutralPoint(1)
	}
	return 0
}

// RecordScan updates the station's running counters on scan commit.
func (s *Station) RecordScan(numObs int, bytesWritten float64) {
	s.stats.NumScans++
	s.stats.NumObs += numObs
	s.stats.BytesWritten += bytesWritten
}

// Stats returns the station's accumulated statistics.
func (s *Station) Stats() StationStats {
	return s.stats
}

// Network is the catalog-wide collection of stations, indexed by ID and
// code for fast lookup, grounded on original_source/Station/Network.cpp.
type Network struct {
	byID   map[int]*Station
	byCode map[string]*Station
}

// NewNetwork builds a network from a slice of stations, rejecting
// duplicate codes.
func NewNetwork(stations []*Station) (*Network, error) {
	n := &Network{byID: make(map[int]*Station, len(stations)), byCode: make(map[string]*Station, len(stations))}
	for _, st := range stations {
		if _, dup := n.byID[st.id]; dup {
			return nil, &ConfigurationError{Reason: "duplicate station id " + st.name}
		}
		n.byID[st.id] = st
		if _, dup := n.byCode[st.code]; dup {
			return nil, &ConfigurationError{Reason: "duplicate station code " + st.code}
		}
		n.byCode[st.code] = st
	}
	return n, nil
}

func (n *Network) ByID(id int) (*Station, bool) {
	s, ok := n.byID[id]
	return s, ok
}

func (n *Network) ByCode(code string) (*Station, bool) {
	s, ok := n.byCode[code]
	return s, ok
}

func (n *Network) All() []*Station {
	out := make([]*Station, 0, len(n.byID))
	for _, s := range n.byID {
		out = append(out, s)
	}
	return out
}

// StationIgnoresSource reports whether st's parameters list sourceName in
// its explicit ignore-sources list.
func (st *Station) StationIgnoresSource(sourceName string) bool {
	for _, name := range st.Parameters().IgnoreSources {
		if name == sourceName {
			return true
		}
	}
	return false
}
