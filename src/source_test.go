package skysched

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuasarGetRaDecIsFixed(t *testing.T) {
	src, err := NewQuasarSource(1, "3C84", "", 1.0, 0.5, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)

	ra, dec, ok := src.GetRaDec(0, nil, Vec3{})
	require.True(t, ok)
	assert.Equal(t, 1.0, ra)
	assert.Equal(t, 0.5, dec)
}

func TestQuasarGetSourceInCrsIsUnit(t *testing.T) {
	src, err := NewQuasarSource(1, "3C84", "", 1.0, 0.5, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)

	v, ok := src.GetSourceInCrs(0, nil, Vec3{})
	require.True(t, ok)
	assert.InDelta(t, 1.0, v.Norm(), 1e-9)
}

type stubEphemeris struct {
	pos   Vec3
	epoch int
	err   error
}

func (s stubEphemeris) PositionECI(tSinceEpochMin float64) (Vec3, Vec3, error) {
	if s.err != nil {
		return Vec3{}, Vec3{}, s.err
	}
	return s.pos, Vec3{}, nil
}

func (s stubEphemeris) EpochSessionSeconds() int { return s.epoch }

func TestSatelliteGetSourceInCrsUsesEphemeris(t *testing.T) {
	clock, err := NewSessionClock(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 30, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	eph := stubEphemeris{pos: Vec3{10000, 0, 0}, epoch: 0}
	src, err := NewSatelliteSource(2, "SAT1", "", eph, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)

	stationECEF := Vec3{6378137, 0, 0}
	v, ok := src.GetSourceInCrs(0, clock, stationECEF)
	require.True(t, ok)
	assert.InDelta(t, 1.0, v.Norm(), 1e-9)
}

func TestSatelliteGetSourceInCrsPropagatesEphemerisError(t *testing.T) {
	clock, err := NewSessionClock(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 30, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	eph := stubEphemeris{err: errors.New("propagation failed")}
	src, err := NewSatelliteSource(2, "SAT1", "", eph, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)

	_, ok := src.GetSourceInCrs(0, clock, Vec3{6378137, 0, 0})
	assert.False(t, ok)
}

func TestJetAngleGateOKWithoutJet(t *testing.T) {
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)
	assert.True(t, src.JetAngleGateOK(1.0))
}

func TestJetAngleGateRejectsInsideBuffer(t *testing.T) {
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{},
		SourceParameters{JetAngleBuffer: 0.2}, nil)
	require.NoError(t, err)
	src.WithJetAngle(0, 0)

	assert.False(t, src.JetAngleGateOK(0.1))
	assert.True(t, src.JetAngleGateOK(math.Pi/2))
}

func TestSourceRecordScanTracksFirstAndLast(t *testing.T) {
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)

	src.RecordScan(100, 30)
	src.RecordScan(200, 30)

	stats := src.Stats()
	assert.Equal(t, 2, stats.NumScans)
	assert.Equal(t, 100, stats.FirstScan)
	assert.Equal(t, 200, stats.LastScan)
	assert.Equal(t, 60.0, stats.TotalObservedSeconds)
}

func TestSourceListRejectsDuplicateAlias(t *testing.T) {
	a, err := NewQuasarSource(1, "3C84", "J0319", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)
	b, err := NewQuasarSource(2, "OTHER", "J0319", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)

	_, err = NewSourceList([]*Source{a, b})
	require.Error(t, err)
}

func TestSourceListLookupByAliasAndID(t *testing.T) {
	a, err := NewQuasarSource(1, "3C84", "J0319", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)
	list, err := NewSourceList([]*Source{a})
	require.NoError(t, err)

	got, ok := list.ByName("J0319")
	require.True(t, ok)
	assert.Equal(t, 1, got.ID())

	got, ok = list.ByID(1)
	require.True(t, ok)
	assert.Equal(t, "3C84", got.Name())

	assert.Len(t, list.All(), 1)
}
