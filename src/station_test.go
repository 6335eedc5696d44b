package skysched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAntennaModel() Antenna {
	axis := AntennaAxis{Rate: 0.5, Accel: 0.5, ConstantOverhead: 1.0}
	return Antenna{Axis1: axis, Axis2: axis, MinSlewtime: 2.0, MaxSlewtime: 120.0}
}

func newTestStation(t *testing.T, id int, name string) *Station {
	t.Helper()
	st, err := NewStation(id, name, name, Vec3{6378137, 0, 0}, testAntennaModel(), nil, Equipment{}, nil,
		StationParameters{Available: true, MinScan: 10, MaxScan: 600}, nil)
	require.NoError(t, err)
	return st
}

func TestNewStationRejectsBadEventOrdering(t *testing.T) {
	events := []ParamEvent[StationParameters]{
		{At: 10, Parameters: StationParameters{}},
		{At: 5, Parameters: StationParameters{}},
	}
	_, err := NewStation(1, "A", "Aa", Vec3{}, testAntennaModel(), nil, Equipment{}, nil, StationParameters{}, events)
	require.Error(t, err)
}

func TestStationReferenceAzimuthBeforeFirstPointing(t *testing.T) {
	cw, err := NewCableWrap(0, 6.28, -1.5, 1.5)
	require.NoError(t, err)
	st, err := NewStation(1, "A", "Aa", Vec3{6378137, 0, 0}, testAntennaModel(), cw, Equipment{}, nil, StationParameters{}, nil)
	require.NoError(t, err)

	assert.InDelta(t, cw.NeutralPoint(1), st.ReferenceAzimuth(), 1e-9)
}

func TestStationReferenceAzimuthUsesCurrentPointingAfterSet(t *testing.T) {
	st := newTestStation(t, 1, "A")
	st.SetPointing(PointingVector{StationID: 1, Az: 1.23})
	assert.InDelta(t, 1.23, st.ReferenceAzimuth(), 1e-9)
}

func TestStationRecordScanAccumulates(t *testing.T) {
	st := newTestStation(t, 1, "A")
	st.RecordScan(2, 1024)
	st.RecordScan(1, 512)

	stats := st.Stats()
	assert.Equal(t, 2, stats.NumScans)
	assert.Equal(t, 3, stats.NumObs)
	assert.Equal(t, 1536.0, stats.BytesWritten)
}

func TestStationIgnoresSource(t *testing.T) {
	st, err := NewStation(1, "A", "Aa", Vec3{}, testAntennaModel(), nil, Equipment{}, nil,
		StationParameters{IgnoreSources: []string{"3C84"}}, nil)
	require.NoError(t, err)

	assert.True(t, st.StationIgnoresSource("3C84"))
	assert.False(t, st.StationIgnoresSource("3C273"))
}

func TestNetworkRejectsDuplicateID(t *testing.T) {
	a := newTestStation(t, 1, "A")
	b, err := NewStation(1, "B", "Bb", Vec3{}, testAntennaModel(), nil, Equipment{}, nil, StationParameters{}, nil)
	require.NoError(t, err)

	_, err = NewNetwork([]*Station{a, b})
	require.Error(t, err)
}

func TestNetworkRejectsDuplicateCode(t *testing.T) {
	a, err := NewStation(1, "A", "XX", Vec3{}, testAntennaModel(), nil, Equipment{}, nil, StationParameters{}, nil)
	require.NoError(t, err)
	b, err := NewStation(2, "B", "XX", Vec3{}, testAntennaModel(), nil, Equipment{}, nil, StationParameters{}, nil)
	require.NoError(t, err)

	_, err = NewNetwork([]*Station{a, b})
	require.Error(t, err)
}

func TestNetworkLookup(t *testing.T) {
	a := newTestStation(t, 1, "A")
	b := newTestStation(t, 2, "B")
	net, err := NewNetwork([]*Station{a, b})
	require.NoError(t, err)

	got, ok := net.ByID(2)
	require.True(t, ok)
	assert.Equal(t, "B", got.Name())

	got, ok = net.ByCode("A")
	require.True(t, ok)
	assert.Equal(t, 1, got.ID())

	assert.Len(t, net.All(), 2)
}
