package skysched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillinTestNetwork(t *testing.T) *Network {
	t.Helper()
	antenna := Antenna{
		Axis1:       AntennaAxis{Rate: 0.5, Accel: 0.5},
		Axis2:       AntennaAxis{Rate: 0.5, Accel: 0.5},
		MinSlewtime: 1,
		MaxSlewtime: 600,
	}
	params := StationParameters{Available: true, SystemTime: 1, PreobTime: 2, MinScan: 10}

	a, err := NewStation(1, "Alpha", "Aa", Vec3{6378137, 0, 0}, antenna, nil, Equipment{}, nil, params, nil)
	require.NoError(t, err)
	b, err := NewStation(2, "Beta", "Bb", Vec3{0, 6378137, 0}, antenna, nil, Equipment{}, nil, params, nil)
	require.NoError(t, err)

	net, err := NewNetwork([]*Station{a, b})
	require.NoError(t, err)
	return net
}

func TestNewFillinStateUnusedStationGetsSessionEarliestDeadline(t *testing.T) {
	net := fillinTestNetwork(t)

	scan := NewCandidateScan(10, ScanStandard, []int{1})
	scan.startPointing[1] = PointingVector{StationID: 1, T: 1000}

	state := NewFillinState(net, []*Scan{scan}, 0)

	assert.False(t, state.Unused[1])
	assert.True(t, state.Unused[2])

	// station 2 never appears in upcomingScans, so its deadline is the
	// session-wide earliest committed start (1000).
	pv := state.RequiredEndPosition[2]
	assert.Equal(t, 1000, pv.T)
	assert.Equal(t, 1000.0, state.AvailableTime[2])
}

func TestNewFillinStatePossibleGatesOnAvailableTime(t *testing.T) {
	net := fillinTestNetwork(t)

	scan := NewCandidateScan(10, ScanStandard, []int{1})
	scan.startPointing[1] = PointingVector{StationID: 1, T: 5}

	state := NewFillinState(net, []*Scan{scan}, 0)

	// station 1: available = 5s, needed = SystemTime(1)+PreobTime(2)+slew(5)+MinScan(10) = 18s
	assert.False(t, state.Possible[1])
}

func TestNewFillinStatePossibleWhenEnoughTime(t *testing.T) {
	net := fillinTestNetwork(t)

	scan := NewCandidateScan(10, ScanStandard, []int{1})
	scan.startPointing[1] = PointingVector{StationID: 1, T: 1000}

	state := NewFillinState(net, []*Scan{scan}, 0)

	assert.True(t, state.Possible[1])
}

func TestNewFillinStateUnavailableStationNeverPossible(t *testing.T) {
	antenna := Antenna{Axis1: AntennaAxis{Rate: 0.5, Accel: 0.5}, Axis2: AntennaAxis{Rate: 0.5, Accel: 0.5}}
	st, err := NewStation(1, "Gamma", "Gg", Vec3{6378137, 0, 0}, antenna, nil, Equipment{}, nil,
		StationParameters{Available: false}, nil)
	require.NoError(t, err)
	net, err := NewNetwork([]*Station{st})
	require.NoError(t, err)

	state := NewFillinState(net, nil, 0)
	assert.False(t, state.Possible[1])
	assert.Equal(t, 0.0, state.AvailableTime[1])
}

func TestNewFillinStateNumPossibleCounts(t *testing.T) {
	net := fillinTestNetwork(t)
	scan := NewCandidateScan(10, ScanStandard, []int{1, 2})
	scan.startPointing[1] = PointingVector{StationID: 1, T: 1000}
	scan.startPointing[2] = PointingVector{StationID: 2, T: 1000}

	state := NewFillinState(net, []*Scan{scan}, 0)
	assert.Equal(t, 2, state.NumPossible())
}
