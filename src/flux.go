package skysched

import "math"

// FluxType selects which of the two source flux models is active.
// Grounded on original_source/VLBI_flux.cpp's fluxType::{B,M}.
type FluxType int

const (
	FluxUndefined FluxType = iota
	FluxBaselineTable
	FluxGaussianModel
)

// FluxKnot is one (projected baseline length, flux) sample of a
// baseline-length flux table, per band.
type FluxKnot struct {
	BaselineMlambda float64
	FluxJy          float64
}

// GaussianComponent is one elliptical-Gaussian flux component, per band.
type GaussianComponent struct {
	FluxJy        float64
	MajorAxisMas  float64 // mas
	AxialRatio    float64 // minor/major, (0,1]
	PositionAngle float64 // rad, east of north
}

// BandFlux is one band's flux description, of exactly one FluxType.
type BandFlux struct {
	Type       FluxType
	Knots      []FluxKnot          // FluxBaselineTable
	Components []GaussianComponent // FluxGaussianModel
}

// Flux is a source's full per-band flux table.
type Flux struct {
	Bands map[string]BandFlux
}

// MinFlux returns the minimum flux (Jy) across all bands/knots/components,
// used by the §4.10 "maxFlux below minFlux" deactivation gate (there the
// caller wants the maximum over bands, this returns the minimum needed to
// report "weakest point" diagnostics). Grounded on
// original_source/VLBI_flux.cpp's getMinimalFlux.
func (f Flux) MinFlux() float64 {
	min := math.Inf(1)
	for _, band := range f.Bands {
		switch band.Type {
		case FluxBaselineTable:
			for _, k := range band.Knots {
				if k.FluxJy < min {
					min = k.FluxJy
				}
			}
		case FluxGaussianModel:
			for _, c := range band.Components {
				if c.FluxJy < min {
					min = c.FluxJy
				}
			}
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// MaxFlux returns the maximum flux (Jy) across all bands, used to decide
// whether a source should be deactivated for falling below minFlux
// (spec.md §4.10).
func (f Flux) MaxFlux() float64 {
	max := 0.0
	for _, band := range f.Bands {
		switch band.Type {
		case FluxBaselineTable:
			for _, k := range band.Knots {
				if k.FluxJy > max {
					max = k.FluxJy
				}
			}
		case FluxGaussianModel:
			for _, c := range band.Components {
				if c.FluxJy > max {
					max = c.FluxJy
				}
			}
		}
	}
	return max
}

// HasFlux reports whether the source carries an explicit flux table for
// band.
func (f Flux) HasFlux(band string) bool {
	_, ok := f.Bands[band]
	return ok
}

// UV is a projected baseline coordinate, in wavelengths.
type UV struct {
	U, V float64
}

// CalcUV projects an ECEF baseline vector (dx,dy,dz) onto the (u,v) plane
// perpendicular to a source at (ra,dec), at sidereal time gmst, in
// wavelength units. Standard radio-interferometry projection (e.g.
// Thompson/Moran/Swenson eq. 4.1); the hour angle is taken geocentric
// (gmst - ra) since baseline components already encode station longitude.
func CalcUV(ra, dec, gmst float64, dxyz Vec3, wavelength float64) UV {
	h := gmst - ra
	sinH, cosH := math.Sin(h), math.Cos(h)
	sinD, cosD := math.Sin(dec), math.Cos(dec)

	u := dxyz[0]*sinH + dxyz[1]*cosH
	v := -dxyz[0]*sinD*cosH + dxyz[1]*sinD*sinH + dxyz[2]*cosD
	return UV{U: u / wavelength, V: v / wavelength}
}

// ProjectedBaselineLengthMlambda returns sqrt(u^2+v^2) in mega-wavelengths (Mlambda).
func (uv UV) ProjectedBaselineLengthMlambda() float64 {
	return math.Sqrt(uv.U*uv.U+uv.V*uv.V) / 1e6
}

// ObservedFlux evaluates the flux (Jy) of band at the given projected
// baseline, per spec.md §4.3. For FluxBaselineTable, linear interpolation
// in projected baseline length (Mlambda); for FluxGaussianModel, the sum of
// elliptical-Gaussian components. Returns false if band is not present and
// sourceBackup does not request an internal fallback.
func (f Flux) ObservedFlux(band string, uv UV, sourceBackup string) (float64, bool) {
	b, ok := f.Bands[band]
	if !ok {
		if sourceBackup != SourceBackupInternal || len(f.Bands) == 0 {
			return 0, false
		}
		// internal-model fallback: reuse an arbitrary band's flux
		// description, table or Gaussian (a single flux knot still yields
		// a finite flat value, satisfying spec.md §8's boundary behavior).
		for _, any := range f.Bands {
			b = any
			break
		}
	}

	switch b.Type {
	case FluxBaselineTable:
		return interpolateBaselineTable(b.Knots, uv.ProjectedBaselineLengthMlambda()), true
	case FluxGaussianModel:
		return gaussianModelFlux(b.Components, uv), true
	default:
		return 0, false
	}
}

func interpolateBaselineTable(knots []FluxKnot, bMlambda float64) float64 {
	if len(knots) == 0 {
		return 0
	}
	if len(knots) == 1 {
		return knots[0].FluxJy
	}
	if bMlambda <= knots[0].BaselineMlambda {
		return knots[0].FluxJy
	}
	last := knots[len(knots)-1]
	if bMlambda >= last.BaselineMlambda {
		return last.FluxJy
	}
	for i := 1; i < len(knots); i++ {
		if bMlambda <= knots[i].BaselineMlambda {
			a, b := knots[i-1], knots[i]
			span := b.BaselineMlambda - a.BaselineMlambda
			if span <= 0 {
				return a.FluxJy
			}
			f := (bMlambda - a.BaselineMlambda) / span
			return a.FluxJy + f*(b.FluxJy-a.FluxJy)
		}
	}
	return last.FluxJy
}

// gaussianModelFlux sums the elliptical-Gaussian components. Grounded on
// spec.md §4.3's formula, which preserves the literal constants of the
// original elliptical-Gaussian visibility model:
// f_k * exp(-(pi^2 / (4*ln2)) * (b_proj * theta_k)^2).
func gaussianModelFlux(components []GaussianComponent, uv UV) float64 {
	const masToRad = math.Pi / 180.0 / 3600.0 / 1000.0
	const constant = math.Pi * math.Pi / (4 * math.Ln2)

	total := 0.0
	for _, c := range components {
		// rotate (u,v) into the position-angle frame, then scale the minor
		// axis by the axial ratio to get the effective projected baseline
		// against this component's major-axis direction.
		cosPA, sinPA := math.Cos(c.PositionAngle), math.Sin(c.PositionAngle)
		uRot := uv.U*cosPA - uv.V*sinPA
		vRot := (uv.U*sinPA + uv.V*cosPA) * c.AxialRatio
		bProj := math.Sqrt(uRot*uRot + vRot*vRot)

		thetaRad := c.MajorAxisMas * masToRad
		total += c.FluxJy * math.Exp(-constant*math.Pow(bProj*thetaRad, 2))
	}
	return total
}
