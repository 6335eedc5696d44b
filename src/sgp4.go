package skysched

import (
	"math"
	"time"
)

// SGP4 model constants (ref: Hoots & Roehrich, Spacetrack Report #3, 1980;
// Vallado et al., AIAA 2006-6753). Adapted from the teacher's NORAD TLE
// propagator (tle.go's SGP4_STR3), collapsed onto this package's Vec3/time
// conventions.
const (
	sgp4DE2RA  = 0.174532925e-1
	sgp4E6A    = 1.0e-6
	sgp4TOTHRD = 0.66666667
	sgp4TWOPI  = 6.2831853
	sgp4XJ2    = 1.082616e-3
	sgp4XJ3    = -0.253881e-5
	sgp4XJ4    = -1.65597e-6
	sgp4XKE    = 0.743669161e-1
	sgp4XKMPER = 6378.135
	sgp4XMNPDA = 1440.0
	sgp4AE     = 1.0
	sgp4CK2    = 5.413080e-4
	sgp4CK4    = 0.62098875e-6
	sgp4QOMS2T = 1.88027916e-9
	sgp4S      = 1.01222928
)

// TLEElements is a decoded two-line element set: the six Keplerian mean
// elements plus the SGP4 drag term and the epoch they're valid at. Angles
// are degrees and mean motion is revolutions/day, matching how a TLE
// actually encodes them; sgp4Propagate converts them to radians on each
// call.
type TLEElements struct {
	Name          string
	Inclination   float64 // deg
	RAAN          float64 // deg, right ascension of ascending node
	Eccentricity  float64
	ArgPerigee    float64 // deg
	MeanAnomaly   float64 // deg
	MeanMotion    float64 // rev/day
	BStar         float64 // earth radii^-1, drag term
	Epoch         time.Time
}

// SGP4Ephemeris is a SatelliteEphemeris backed by the SGP4 analytic
// propagator, grounded on tle.go's SGP4_STR3. It satisfies Source's
// SatelliteEphemeris capability.
type SGP4Ephemeris struct {
	elements TLEElements
	clock    *SessionClock
	epochSec int
}

// NewSGP4Ephemeris builds a propagator anchored to clock's session time:
// the TLE epoch is converted once to session-relative seconds so
// PositionECI's minutes-since-epoch argument lines up with Source's
// session-time t.
func NewSGP4Ephemeris(elements TLEElements, clock *SessionClock) (*SGP4Ephemeris, error) {
	if elements.MeanMotion <= 0 {
		return nil, &ConfigurationError{Reason: "satellite ephemeris requires positive mean motion"}
	}
	if elements.Eccentricity < 0 || elements.Eccentricity >= 1 {
		return nil, &ConfigurationError{Reason: "satellite ephemeris eccentricity out of range"}
	}
	return &SGP4Ephemeris{
		elements: elements,
		clock:    clock,
		epochSec: clock.SessionSeconds(elements.Epoch),
	}, nil
}

// EpochSessionSeconds returns the TLE epoch in session-relative seconds.
func (s *SGP4Ephemeris) EpochSessionSeconds() int {
	return s.epochSec
}

// PositionECI propagates the element set tsinceMin minutes past epoch and
// returns the satellite's position (km) and velocity (km/s) in the
// inertial (TEME) frame SGP4 natively produces.
func (s *SGP4Ephemeris) PositionECI(tsinceMin float64) (Vec3, Vec3, error) {
	return sgp4Propagate(s.elements, tsinceMin)
}

// sgp4Propagate is the SGP4 analytic propagator (near-earth variant only;
// the teacher's implementation never branched to the deep-space SDP4
// model either). Ported term-for-term from tle.go's SGP4_STR3, with the
// output left in km/km-s instead of m/m-s to match this package's
// ephemeris contract.
func sgp4Propagate(el TLEElements, tsince float64) (Vec3, Vec3, error) {
	xnodeo := el.RAAN * sgp4DE2RA
	omegao := el.ArgPerigee * sgp4DE2RA
	xmo := el.MeanAnomaly * sgp4DE2RA
	xincl := el.Inclination * sgp4DE2RA
	xno := el.MeanMotion * (sgp4TWOPI / sgp4XMNPDA / sgp4XMNPDA) * sgp4XMNPDA
	bstar := el.BStar / sgp4AE
	eo := el.Eccentricity

	a1 := math.Pow(sgp4XKE/xno, sgp4TOTHRD)
	cosio := math.Cos(xincl)
	theta2 := cosio * cosio
	x3thm1 := 3.0*theta2 - 1.0
	eosq := eo * eo
	betao2 := 1.0 - eosq
	betao := math.Sqrt(betao2)
	del1 := 1.5 * sgp4CK2 * x3thm1 / (a1 * a1 * betao * betao2)
	ao := a1 * (1.0 - del1*(0.5*sgp4TOTHRD+del1*(1.0+134.0/81.0*del1)))
	delo := 1.5 * sgp4CK2 * x3thm1 / (ao * ao * betao * betao2)
	xnodp := xno / (1.0 + delo)
	aodp := ao / (1.0 - delo)

	if aodp*(1.0-eo)/sgp4AE < sgp4AE {
		return Vec3{}, Vec3{}, &NumericError{Where: "sgp4: satellite inside the earth"}
	}

	isimp := 0
	if (aodp*(1.0-eo)/sgp4AE) < (220.0/sgp4XKMPER + sgp4AE) {
		isimp = 1
	}

	s4 := sgp4S
	qoms24 := sgp4QOMS2T
	perige := (aodp*(1.0-eo) - sgp4AE) * sgp4XKMPER
	if perige < 156.0 {
		s4 = perige - 78.0
		if perige <= 98.0 {
			s4 = 20.0
		}
		qoms24 = math.Pow((120.0-s4)*sgp4AE/sgp4XKMPER, 4.0)
		s4 = s4/sgp4XKMPER + sgp4AE
	}
	pinvsq := 1.0 / (aodp * aodp * betao2 * betao2)
	tsi := 1.0 / (aodp - s4)
	eta := aodp * eo * tsi
	etasq := eta * eta
	eeta := eo * eta
	psisq := math.Abs(1.0 - etasq)
	coef := qoms24 * math.Pow(tsi, 4.0)
	coef1 := coef / math.Pow(psisq, 3.5)
	c2 := coef1 * xnodp * (aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) + 0.75*
		sgp4CK2*tsi/psisq*x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	c1 := bstar * c2
	sinio := math.Sin(xincl)
	a3ovk2 := -sgp4XJ3 / sgp4CK2 * math.Pow(sgp4AE, 3.0)
	c3 := coef * tsi * a3ovk2 * xnodp * sgp4AE * sinio / eo
	x1mth2 := 1.0 - theta2
	c4 := 2.0 * xnodp * coef1 * aodp * betao2 * (eta*
		(2.0+0.5*etasq) + eo*(0.5+2.0*etasq) - 2.0*sgp4CK2*tsi/
		(aodp*psisq)*(-3.0*x3thm1*(1.0-2.0*eeta+etasq*
		(1.5-0.5*eeta))+0.75*x1mth2*(2.0*etasq-eeta*
		(1.0+etasq))*math.Cos(2.0*omegao)))
	c5 := 2.0 * coef1 * aodp * betao2 * (1.0 + 2.75*(etasq+eeta) + eeta*etasq)
	theta4 := theta2 * theta2
	temp1 := 3.0 * sgp4CK2 * pinvsq * xnodp
	temp2 := temp1 * sgp4CK2 * pinvsq
	temp3 := 1.25 * sgp4CK4 * pinvsq * pinvsq * xnodp
	xmdot := xnodp + 0.5*temp1*betao*x3thm1 + 0.0625*temp2*betao*
		(13.0-78.0*theta2+137.0*theta4)
	x1m5th := 1.0 - 5.0*theta2
	omgdot := -0.5*temp1*x1m5th + 0.0625*temp2*(7.0-114.0*theta2+
		395.0*theta4) + temp3*(3.0-36.0*theta2+49.0*theta4)
	xhdot1 := -temp1 * cosio
	xnodot := xhdot1 + (0.5*temp2*(4.0-19.0*theta2)+2.0*temp3*(3.0-
		7.0*theta2))*cosio
	omgcof := bstar * c3 * math.Cos(omegao)
	xmcof := -sgp4TOTHRD * coef * bstar * sgp4AE / eeta
	xnodcf := 3.5 * betao2 * xhdot1 * c1
	t2cof := 1.5 * c1
	xlcof := 0.125 * a3ovk2 * sinio * (3.0 + 5.0*cosio) / (1.0 + cosio)
	aycof := 0.25 * a3ovk2 * sinio
	delmo := math.Pow(1.0+eta*math.Cos(xmo), 3.0)
	sinmo := math.Sin(xmo)
	x7thm1 := 7.0*theta2 - 1.0

	var d2, d3, d4, t3cof, t4cof, t5cof float64
	if isimp != 1 {
		c1sq := c1 * c1
		d2 = 4.0 * aodp * tsi * c1sq
		temp := d2 * tsi * c1 / 3.0
		d3 = (17.0*aodp + s4) * temp
		d4 = 0.5 * temp * aodp * tsi * (221.0*aodp + 31.0*s4) * c1
		t3cof = d2 + 2.0*c1sq
		t4cof = 0.25 * (3.0*d3 + c1*(12.0*d2+10.0*c1sq))
		t5cof = 0.2 * (3.0*d4 + 12.0*c1*d3 + 6.0*d2*d2 + 15.0*c1sq*(2.0*d2+c1sq))
	}

	xmdf := xmo + xmdot*tsince
	omgadf := omegao + omgdot*tsince
	xnoddf := xnodeo + xnodot*tsince
	omega := omgadf
	xmp := xmdf
	tsq := tsince * tsince
	xnode := xnoddf + xnodcf*tsq
	tempa := 1.0 - c1*tsince
	tempe := bstar * c4 * tsince
	templ := t2cof * tsq
	if isimp != 1 {
		delomg := omgcof * tsince
		delm := xmcof * (math.Pow(1.0+eta*math.Cos(xmdf), 3.0) - delmo)
		temp := delomg + delm
		xmp = xmdf + temp
		omega = omgadf - temp
		tcube := tsq * tsince
		tfour := tsince * tcube
		tempa = tempa - d2*tsq - d3*tcube - d4*tfour
		tempe = tempe + bstar*c5*(math.Sin(xmp)-sinmo)
		templ = templ + t3cof*tcube + tfour*(t4cof+tsince*t5cof)
	}

	a := aodp * math.Pow(tempa, 2.0)
	e := eo - tempe
	if e < 0 || e >= 1 {
		return Vec3{}, Vec3{}, &NumericError{Where: "sgp4: eccentricity diverged"}
	}
	xl := xmp + omega + xnode + xnodp*templ
	beta := math.Sqrt(1.0 - e*e)
	xn := sgp4XKE / math.Pow(a, 1.5)

	axn := e * math.Cos(omega)
	temp := 1.0 / (a * beta * beta)
	xll := temp * xlcof * axn
	aynl := temp * aycof
	xlt := xl + xll
	ayn := e*math.Sin(omega) + aynl

	capu := math.Mod(xlt-xnode, sgp4TWOPI)
	epw := capu
	var sinepw, cosepw, kt3, kt4, kt5, kt6 float64
	for i := 0; i < 10; i++ {
		sinepw = math.Sin(epw)
		cosepw = math.Cos(epw)
		kt3 = axn * sinepw
		kt4 = ayn * cosepw
		kt5 = axn * cosepw
		kt6 = ayn * sinepw
		next := (capu-kt4+kt3-epw)/(1.0-kt5-kt6) + epw
		if math.Abs(next-epw) <= sgp4E6A {
			epw = next
			break
		}
		epw = next
	}

	ecose := kt5 + kt6
	esine := kt3 - kt4
	elsq := axn*axn + ayn*ayn
	temp = 1.0 - elsq
	pl := a * temp
	r := a * (1.0 - ecose)
	temp1 = 1.0 / r
	rdot := sgp4XKE * math.Sqrt(a) * esine * temp1
	rfdot := sgp4XKE * math.Sqrt(pl) * temp1
	temp2 = a * temp1
	betal := math.Sqrt(temp)
	temp3b := 1.0 / (1.0 + betal)
	cosu := temp2 * (cosepw - axn + ayn*esine*temp3b)
	sinu := temp2 * (sinepw - ayn - axn*esine*temp3b)
	u := math.Atan2(sinu, cosu)
	sin2u := 2.0 * sinu * cosu
	cos2u := 2.0*cosu*cosu - 1.0
	temp = 1.0 / pl
	temp1 = sgp4CK2 * temp
	temp2 = temp1 * temp

	rk := r*(1.0-1.5*temp2*betal*x3thm1) + 0.5*temp1*x1mth2*cos2u
	uk := u - 0.25*temp2*x7thm1*sin2u
	xnodek := xnode + 1.5*temp2*cosio*sin2u
	xinck := xincl + 1.5*temp2*cosio*sinio*cos2u
	rdotk := rdot - xn*temp1*x1mth2*sin2u
	rfdotk := rfdot + xn*temp1*(x1mth2*cos2u+1.5*x3thm1)

	sinuk := math.Sin(uk)
	cosuk := math.Cos(uk)
	sinik := math.Sin(xinck)
	cosik := math.Cos(xinck)
	sinnok := math.Sin(xnodek)
	cosnok := math.Cos(xnodek)
	xmx := -sinnok * cosik
	xmy := cosnok * cosik
	ux := xmx*sinuk + cosnok*cosuk
	uy := xmy*sinuk + sinnok*cosuk
	uz := sinik * sinuk
	vx := xmx*cosuk - cosnok*sinuk
	vy := xmy*cosuk - sinnok*sinuk
	vz := sinik * cosuk

	x := rk * ux
	y := rk * uy
	z := rk * uz
	xdot := rdotk*ux + rfdotk*vx
	ydot := rdotk*uy + rfdotk*vy
	zdot := rdotk*uz + rfdotk*vz

	pos := Vec3{x * sgp4XKMPER / sgp4AE, y * sgp4XKMPER / sgp4AE, z * sgp4XKMPER / sgp4AE}
	vel := Vec3{
		xdot * sgp4XKMPER / sgp4AE * sgp4XMNPDA / 86400.0,
		ydot * sgp4XKMPER / sgp4AE * sgp4XMNPDA / 86400.0,
		zdot * sgp4XKMPER / sgp4AE * sgp4XMNPDA / 86400.0,
	}
	return pos, vel, nil
}
