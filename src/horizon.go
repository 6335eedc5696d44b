package skysched

import "math"

// HorizonMaskKind selects the shape a station's horizon mask takes.
type HorizonMaskKind int

const (
	HorizonMaskNone HorizonMaskKind = iota
	HorizonMaskStepwise
	HorizonMaskLinear
)

// HorizonMask gives the minimum observable elevation as a function of
// azimuth. Grounded on original_source/Station/HorizonMask/HorizonMask_line.cpp
// (linear variant) with the stepwise variant added per spec.md §4.2.
type HorizonMask struct {
	kind      HorizonMaskKind
	azimuths  []float64 // ascending, rad, first entry should be 0
	elevation []float64 // rad, same length as azimuths
}

// NewHorizonMask builds a mask from azimuth knots (ascending, rad) and
// matching minimum-elevation values (rad).
func NewHorizonMask(kind HorizonMaskKind, azimuths, elevations []float64) (*HorizonMask, error) {
	if kind == HorizonMaskNone {
		return &HorizonMask{kind: kind}, nil
	}
	if len(azimuths) != len(elevations) || len(azimuths) < 2 {
		return nil, &ConfigurationError{Reason: "horizon mask requires matching azimuth/elevation knots"}
	}
	for i := 1; i < len(azimuths); i++ {
		if azimuths[i] <= azimuths[i-1] {
			return nil, &ConfigurationError{Reason: "horizon mask azimuth knots must be strictly ascending"}
		}
	}
	return &HorizonMask{kind: kind, azimuths: azimuths, elevation: elevations}, nil
}

// MinElevation returns the minimum observable elevation (rad) at azimuth az
// (rad, will be normalized to [0, 2*pi)).
func (m *HorizonMask) MinElevation(az float64) float64 {
	if m == nil || m.kind == HorizonMaskNone {
		return 0
	}
	az = math.Mod(az, 2*math.Pi)
	if az < 0 {
		az += 2 * math.Pi
	}
	i := 1
	for i < len(m.azimuths) && az > m.azimuths[i] {
		i++
	}
	if i >= len(m.azimuths) {
		i = len(m.azimuths) - 1
	}
	begin, end := i-1, i

	switch m.kind {
	case HorizonMaskStepwise:
		// closest azimuth knot (by proximity, not just the lower bracket)
		// governs el_min.
		if az-m.azimuths[begin] <= m.azimuths[end]-az {
			return m.elevation[begin]
		}
		return m.elevation[end]
	default: // HorizonMaskLinear
		span := m.azimuths[end] - m.azimuths[begin]
		if span <= 0 {
			return m.elevation[begin]
		}
		f := (az - m.azimuths[begin]) / span
		return m.elevation[begin] + f*(m.elevation[end]-m.elevation[begin])
	}
}

// Visible reports whether p clears the horizon mask: el >= mask(az). A
// source exactly at the mask is visible; spec.md §8 requires the boundary
// itself to count.
func (m *HorizonMask) Visible(p AzEl) bool {
	return p.El >= m.MinElevation(p.Az)
}
