package skysched

import "math"

// AntennaAxis holds the two-axis trapezoidal slew profile for one axis:
// slew rate (rad/s), acceleration (rad/s^2) and a constant per-slew
// overhead (s). Grounded on original_source/VLBI_antenna.cpp.
type AntennaAxis struct {
	Rate            float64
	Accel           float64
	ConstantOverhead float64
}

func (a AntennaAxis) slewTime(delta float64) float64 {
	delta = math.Abs(delta)
	tAcc := a.Rate / a.Accel
	sAcc := a.Rate * a.Rate / a.Accel
	var t float64
	if delta < sAcc {
		t = 2 * math.Sqrt(delta/a.Accel)
	} else {
		t = 2*tAcc + (delta-sAcc)/a.Rate
	}
	return t + a.ConstantOverhead
}

// Antenna is the two-axis kinematic model (azimuth + elevation) used to
// compute slew time between two pointings.
type Antenna struct {
	Axis1, Axis2 AntennaAxis // axis1 = azimuth, axis2 = elevation
	MinSlewtime  float64     // s
	MaxSlewtime  float64     // s
}

// SlewTime returns the slew duration (s) between two pointings, clamped to
// [MinSlewtime, MaxSlewtime]. The caller is responsible for passing
// unwrapped azimuths so delta reflects true cable travel, not the
// shortest-arc difference.
func (a Antenna) SlewTime(from, to AzEl) float64 {
	t1 := a.Axis1.slewTime(to.Az - from.Az)
	t2 := a.Axis2.slewTime(to.El - from.El)
	t := math.Max(t1, t2)
	if t < a.MinSlewtime {
		t = a.MinSlewtime
	}
	if a.MaxSlewtime > 0 && t > a.MaxSlewtime {
		t = a.MaxSlewtime
	}
	return t
}

// WriteRateFloor returns the minimum number of seconds a station with a
// finite disk write speed must spend flushing observingDuration seconds of
// data before the next scan can begin. A zero writeRateBytesPerSec means no
// floor applies.
func WriteRateFloor(observingDuration float64, recordRateBitsPerSec, writeRateBytesPerSec float64) float64 {
	if writeRateBytesPerSec <= 0 {
		return 0
	}
	bytes := observingDuration * recordRateBitsPerSec / 8
	return bytes / writeRateBytesPerSec
}
