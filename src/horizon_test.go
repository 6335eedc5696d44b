package skysched

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilHorizonMaskAlwaysVisible(t *testing.T) {
	var m *HorizonMask
	assert.Equal(t, 0.0, m.MinElevation(1.2))
}

func TestNewHorizonMaskRejectsMismatchedKnots(t *testing.T) {
	_, err := NewHorizonMask(HorizonMaskLinear, []float64{0, 1}, []float64{0})
	require.Error(t, err)
}

func TestNewHorizonMaskRejectsUnsortedAzimuths(t *testing.T) {
	_, err := NewHorizonMask(HorizonMaskLinear, []float64{0, 0}, []float64{0, 0})
	require.Error(t, err)
}

func TestHorizonMaskLinearInterpolation(t *testing.T) {
	m, err := NewHorizonMask(HorizonMaskLinear, []float64{0, math.Pi}, []float64{0, math.Pi / 6})
	require.NoError(t, err)

	got := m.MinElevation(math.Pi / 2)
	assert.InDelta(t, math.Pi/12, got, 1e-9)
}

func TestHorizonMaskStepwiseNearestKnot(t *testing.T) {
	m, err := NewHorizonMask(HorizonMaskStepwise, []float64{0, math.Pi}, []float64{0, math.Pi / 6})
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.MinElevation(0.1))
	assert.InDelta(t, math.Pi/6, m.MinElevation(math.Pi-0.1), 1e-9)
}

func TestHorizonMaskVisibleBoundaryInclusive(t *testing.T) {
	m, err := NewHorizonMask(HorizonMaskLinear, []float64{0, math.Pi}, []float64{0.2, 0.2})
	require.NoError(t, err)

	assert.True(t, m.Visible(AzEl{Az: math.Pi / 4, El: 0.2}))
	assert.False(t, m.Visible(AzEl{Az: math.Pi / 4, El: 0.1}))
}
