package skysched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testAntenna() Antenna {
	axis := AntennaAxis{Rate: 0.5, Accel: 0.5, ConstantOverhead: 1.0}
	return Antenna{Axis1: axis, Axis2: axis, MinSlewtime: 2.0, MaxSlewtime: 120.0}
}

func TestSlewTimeZeroDeltaIsFloor(t *testing.T) {
	a := testAntenna()
	d := a.SlewTime(AzEl{Az: 0, El: 0}, AzEl{Az: 0, El: 0})
	assert.Equal(t, a.MinSlewtime, d)
}

func TestSlewTimeLargerDeltaIsSlower(t *testing.T) {
	a := testAntenna()
	small := a.SlewTime(AzEl{Az: 0, El: 0}, AzEl{Az: 0.1, El: 0})
	large := a.SlewTime(AzEl{Az: 0, El: 0}, AzEl{Az: 1.0, El: 0})
	assert.Less(t, small, large)
}

func TestSlewTimeClampedToMax(t *testing.T) {
	a := testAntenna()
	d := a.SlewTime(AzEl{Az: 0, El: 0}, AzEl{Az: 100, El: 0})
	assert.Equal(t, a.MaxSlewtime, d)
}

func TestSlewTimeUsesSlowerAxis(t *testing.T) {
	a := Antenna{
		Axis1:       AntennaAxis{Rate: 1.0, Accel: 1.0, ConstantOverhead: 0},
		Axis2:       AntennaAxis{Rate: 0.01, Accel: 0.01, ConstantOverhead: 0},
		MinSlewtime: 0,
		MaxSlewtime: 0,
	}
	d := a.SlewTime(AzEl{Az: 0, El: 0}, AzEl{Az: 0.1, El: 0.1})
	axis2Only := a.Axis2.slewTime(0.1)
	assert.InDelta(t, axis2Only, d, 1e-9)
}

func TestWriteRateFloorNoFloorWhenZeroWriteRate(t *testing.T) {
	assert.Equal(t, 0.0, WriteRateFloor(60, 1e9, 0))
}

func TestWriteRateFloorComputesFlushTime(t *testing.T) {
	// 60s at 8 bits/s = 60 bytes of data; writing at 1 byte/s takes 60s.
	got := WriteRateFloor(60, 8, 1)
	assert.InDelta(t, 60.0, got, 1e-9)
}
