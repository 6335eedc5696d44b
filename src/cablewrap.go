package skysched

import "math"

// CableWrap models one station's azimuth-axis mechanical limits, including
// the overlap region produced when the axis range exceeds a full turn.
// Grounded on original_source/VLBI_cableWrap.cpp.
type CableWrap struct {
	Axis1Low, Axis1Up float64 // azimuth axis limits, rad
	Axis2Low, Axis2Up float64 // elevation axis limits, rad

	axis1Range float64
	// overlap split: neutral centre, clockwise wing, counter-clockwise wing
	neutralLow, neutralUp   float64
	clockwiseLow, clockwiseStart float64
	ccwLow, ccwStart             float64
	hasOverlap                   bool
}

// NewCableWrap builds a cable wrap from axis limits in radians.
func NewCableWrap(axis1Low, axis1Up, axis2Low, axis2Up float64) (*CableWrap, error) {
	if axis1Up <= axis1Low || axis2Up <= axis2Low {
		return nil, &ConfigurationError{Reason: "cable wrap upper limit must exceed lower limit"}
	}
	cw := &CableWrap{Axis1Low: axis1Low, Axis1Up: axis1Up, Axis2Low: axis2Low, Axis2Up: axis2Up}
	cw.axis1Range = axis1Up - axis1Low
	if cw.axis1Range > 2*math.Pi {
		overlap := cw.axis1Range - 2*math.Pi
		if overlap > 2*math.Pi {
			return nil, &ConfigurationError{Reason: "cable wrap limits too large"}
		}
		cw.hasOverlap = true
		cw.neutralLow = axis1Low
		cw.neutralUp = axis1Low + overlap/2
		cw.ccwLow = axis1Low + overlap/2
		cw.ccwStart = axis1Up - overlap/2
		cw.clockwiseLow = axis1Up - overlap/2
		cw.clockwiseStart = axis1Up
	} else {
		cw.neutralLow, cw.neutralUp = axis1Low, axis1Up
		cw.clockwiseLow, cw.clockwiseStart = axis1Up, axis1Up
		cw.ccwLow, cw.ccwStart = axis1Low, axis1Low
	}
	return cw, nil
}

// HasOverlap reports whether the azimuth axis range exceeds 2*pi, giving
// the pointing ambiguity spec.md §2/§GLOSSARY describes.
func (cw *CableWrap) HasOverlap() bool {
	return cw.hasOverlap
}

// Inside reports whether (az, el) — az may be unwrapped, outside
// [0, 2*pi) — satisfies the cable-wrap limits.
func (cw *CableWrap) Inside(p AzEl) bool {
	if cw.axis1Range < 2*math.Pi {
		az := math.Mod(p.Az, 2*math.Pi)
		if az < 0 {
			az += 2 * math.Pi
		}
		if az < cw.Axis1Low || az > cw.Axis1Up || p.El < cw.Axis2Low || p.El > cw.Axis2Up {
			return false
		}
		return true
	}
	return p.El >= cw.Axis2Low && p.El <= cw.Axis2Up
}

// UnwrapNear adds a multiple of 2*pi to newAz to bring it as close as
// possible to refAz while remaining within the axis-1 limits. Returns the
// unwrapped azimuth and a flag reporting whether two equally valid unwraps
// exist ("big slew", |delta| > pi/2 both ways) — the caller must then
// either pin the unwrap near a specified azimuth or reject the station, per
// spec.md §4.2.
func (cw *CableWrap) UnwrapNear(newAz, refAz float64) (unwrapped float64, ambiguous bool) {
	az := newAz
	for az > cw.Axis1Low {
		az -= 2 * math.Pi
	}
	for az < cw.Axis1Up-2*math.Pi {
		az += 2 * math.Pi
	}
	// az is now the smallest value >= Axis1Up-2pi (mod 2pi cycles); bring
	// it up to Axis1Low if that still lies below the range.
	for az < cw.Axis1Low {
		az += 2 * math.Pi
	}
	candidate1 := az
	candidate2 := az - 2*math.Pi
	valid1 := candidate1 >= cw.Axis1Low && candidate1 <= cw.Axis1Up
	valid2 := candidate2 >= cw.Axis1Low && candidate2 <= cw.Axis1Up

	switch {
	case valid1 && valid2:
		d1 := math.Abs(candidate1 - refAz)
		d2 := math.Abs(candidate2 - refAz)
		ambiguous = d1 > math.Pi/2 && d2 > math.Pi/2
		if d2 < d1 {
			return candidate2, ambiguous
		}
		return candidate1, ambiguous
	case valid1:
		return candidate1, false
	case valid2:
		return candidate2, false
	default:
		// neither lands inside the axis range; report the nearer one and
		// let the caller's Inside() check reject it.
		if math.Abs(candidate1-refAz) <= math.Abs(candidate2-refAz) {
			return candidate1, false
		}
		return candidate2, false
	}
}

// NeutralPoint returns the midpoint of the requested axis (1 or 2), used to
// re-anchor an ambiguous unwrap on a second iteration.
func (cw *CableWrap) NeutralPoint(axis int) float64 {
	if axis == 1 {
		return (cw.Axis1Low + cw.Axis1Up) / 2
	}
	return (cw.Axis2Low + cw.Axis2Up) / 2
}
