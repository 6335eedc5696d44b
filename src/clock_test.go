package skysched

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionClockRejectsBackwardsWindow(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	_, err := NewSessionClock(start, start)
	require.Error(t, err)
	assert.IsType(t, &ConfigurationError{}, err)
}

func TestSessionClockRoundTrip(t *testing.T) {
	start := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	clock, err := NewSessionClock(start, end)
	require.NoError(t, err)

	assert.Equal(t, 6*3600, clock.Duration())
	assert.Equal(t, 100, clock.SessionSeconds(clock.UTC(100)))
	assert.True(t, clock.UTC(0).Equal(start))
}

func TestGmstInRange(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	clock, err := NewSessionClock(start, start.Add(24*time.Hour))
	require.NoError(t, err)

	for t0 := 0; t0 < 86400; t0 += 3600 {
		g := clock.Gmst(t0)
		assert.GreaterOrEqual(t, g, 0.0)
		assert.Less(t, g, 2*math.Pi)
	}
}

func TestGmstAdvancesRoughlyWithSiderealRate(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	clock, err := NewSessionClock(start, start.Add(2*time.Hour))
	require.NoError(t, err)

	g0 := clock.Gmst(0)
	g1 := clock.Gmst(3600)
	delta := g1 - g0
	if delta < 0 {
		delta += 2 * math.Pi
	}
	// one sidereal hour is slightly more than one solar-hour's worth of
	// mean rotation (ratio 1.0027379)
	assert.InDelta(t, 2*math.Pi/24*1.0027379, delta, 1e-3)
}

func TestNutationTableRejectsMismatchedColumns(t *testing.T) {
	_, err := NewNutationTable([]int{0, 3600}, []float64{0}, []float64{0, 0}, []float64{0, 0})
	require.Error(t, err)
}

func TestNutationTableRejectsUnsortedTimes(t *testing.T) {
	_, err := NewNutationTable([]int{0, 0}, []float64{0, 0}, []float64{0, 0}, []float64{0, 0})
	require.Error(t, err)
}

func TestNutationTableInterpolatesLinearly(t *testing.T) {
	tbl, err := NewNutationTable([]int{0, 3600}, []float64{0, 1}, []float64{0, 2}, []float64{0, 4})
	require.NoError(t, err)

	x, y, s := tbl.NutXYS(1800)
	assert.InDelta(t, 0.5, x, 1e-9)
	assert.InDelta(t, 1.0, y, 1e-9)
	assert.InDelta(t, 2.0, s, 1e-9)
}

func TestNutationTableHoldsEndpointsOutsideRange(t *testing.T) {
	tbl, err := NewNutationTable([]int{0, 3600}, []float64{0, 1}, []float64{0, 2}, []float64{0, 4})
	require.NoError(t, err)

	x, _, _ := tbl.NutXYS(-100)
	assert.Equal(t, 0.0, x)

	x, _, _ = tbl.NutXYS(10000)
	assert.Equal(t, 1.0, x)
}

func TestEarthVelocityMagnitudeIsMeanOrbitalSpeed(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	clock, err := NewSessionClock(start, start.Add(time.Hour))
	require.NoError(t, err)

	v := clock.EarthVelocity(0)
	mag := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	assert.InDelta(t, 29800, mag, 200)
}

func TestSunDirectionIsUnitVector(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	clock, err := NewSessionClock(start, start.Add(time.Hour))
	require.NoError(t, err)

	s := clock.SunDirection(0)
	assert.InDelta(t, 1.0, s.Norm(), 1e-9)
}
