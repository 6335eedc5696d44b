package skysched

import "math"

// SkyCoveragePoint is one recorded pointing in a cluster's novelty log:
// the azimuth/elevation actually observed and the session time it was
// observed at.
type SkyCoveragePoint struct {
	Az, El float64
	T      int
}

// SkyCoverage accumulates recent pointings for one cluster of
// cooperating stations and scores a proposed pointing by its angular and
// temporal distance to the recorded set, per spec.md §4.4. Grounded on
// original_source/Scan/Scan.cpp's sky-coverage scoring term (calcScore
// family) and the station-clustering idea implicit in the original's
// skyCoverage objects.
type SkyCoverage struct {
	maxAngle float64 // A_max, rad
	maxTime  float64 // T_max, s
	points   []SkyCoveragePoint
}

// NewSkyCoverage builds an empty cluster log with the given novelty
// thresholds.
func NewSkyCoverage(maxAngle, maxTime float64) *SkyCoverage {
	return &SkyCoverage{maxAngle: maxAngle, maxTime: maxTime}
}

// Record appends a committed pointing to the cluster's log. Entries
// accumulate for the whole session and are never retracted, per spec.md
// §3's SkyCoverage lifecycle note.
func (sc *SkyCoverage) Record(p SkyCoveragePoint) {
	sc.points = append(sc.points, p)
}

// Score returns the novelty contribution (in [0, 1]) of a proposed
// pointing at (az, el, t): the nearest recorded point by angular
// separation sets d_a, its own timestamp sets d_t. An empty log, or a
// nearest point beyond either threshold, scores maximum novelty (1).
func (sc *SkyCoverage) Score(az, el float64, t int) float64 {
	if len(sc.points) == 0 {
		return 1
	}
	proposed := azElToUnit(az, el)

	best := math.Inf(1)
	var bestPoint SkyCoveragePoint
	for _, p := range sc.points {
		d := AngularSeparation(proposed, azElToUnit(p.Az, p.El))
		if d < best {
			best = d
			bestPoint = p
		}
	}
	dA := best
	dT := math.Abs(float64(t - bestPoint.T))

	if dT > sc.maxTime || dA > sc.maxAngle {
		return 1
	}
	sA := 0.5 + 0.5*math.Cos(math.Pi*dA/sc.maxAngle)
	sT := 0.5 + 0.5*math.Cos(math.Pi*dT/sc.maxTime)
	return 1 - sA*sT
}

// azElToUnit converts a local az/el pair to a unit vector in the local
// topocentric frame (east/north/up basis implied), sufficient for the
// angular-separation comparisons sky coverage needs; it does not carry
// geodetic position since SkyCoverage only ever compares points recorded
// from the same cluster.
func azElToUnit(az, el float64) Vec3 {
	cosEl := math.Cos(el)
	return Vec3{cosEl * math.Sin(az), cosEl * math.Cos(az), math.Sin(el)}
}

// SkyCoverageClusters maps each station to its cluster's shared
// SkyCoverage log, grounded on spec.md §6's "station-to-sky-coverage-
// cluster map" input contract.
type SkyCoverageClusters struct {
	byStation map[int]*SkyCoverage
}

// NewSkyCoverageClusters builds cluster membership from a station-to-
// cluster-index assignment, sharing one SkyCoverage per distinct cluster
// index.
func NewSkyCoverageClusters(stationCluster map[int]int, maxAngle, maxTime float64) *SkyCoverageClusters {
	clusters := make(map[int]*SkyCoverage)
	byStation := make(map[int]*SkyCoverage, len(stationCluster))
	for station, cluster := range stationCluster {
		sc, ok := clusters[cluster]
		if !ok {
			sc = NewSkyCoverage(maxAngle, maxTime)
			clusters[cluster] = sc
		}
		byStation[station] = sc
	}
	return &SkyCoverageClusters{byStation: byStation}
}

// For returns the SkyCoverage log for a station's cluster, or nil if the
// station has no cluster assignment (treated as maximum novelty always).
func (c *SkyCoverageClusters) For(stationID int) *SkyCoverage {
	return c.byStation[stationID]
}
