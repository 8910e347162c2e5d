package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// zeroAreaTol is the area (m²) below which a polygon is considered degenerate.
const zeroAreaTol = 1e-9

// ValidatePolygon rejects polygons the averaging geometry cannot handle:
// empty rings, zero area, and self-intersecting outer boundaries.
func ValidatePolygon(p orb.Polygon) error {
	if len(p) == 0 || len(p[0]) < 4 {
		return fmt.Errorf("%w: empty polygon", ErrInvalidGeometry)
	}
	if math.Abs(planar.Area(p)) < zeroAreaTol {
		return fmt.Errorf("%w: zero area", ErrInvalidGeometry)
	}
	for _, ring := range p {
		if ringSelfIntersects(ring) {
			return fmt.Errorf("%w: self-intersecting ring", ErrInvalidGeometry)
		}
	}
	return nil
}

// ringSelfIntersects reports whether any two non-adjacent edges of the ring
// cross. O(n²), fine for basin outlines.
func ringSelfIntersects(r orb.Ring) bool {
	n := len(r) - 1 // last vertex repeats the first
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			// Skip adjacent edges (they share a vertex by construction).
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsCross(r[i], r[i+1], r[j], r[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports proper intersection of segments ab and cd.
func segmentsCross(a, b, c, d orb.Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

func orient(a, b, c orb.Point) float64 {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// DistanceToPolygon returns the planar distance from pt to the polygon:
// zero when the point lies inside or on the boundary, otherwise the minimum
// distance to any boundary segment. A point is within buffer(polygon, d)
// exactly when this distance is ≤ d.
func DistanceToPolygon(p orb.Polygon, pt orb.Point) float64 {
	if planar.PolygonContains(p, pt) {
		return 0
	}
	min := math.Inf(1)
	for _, ring := range p {
		for i := 0; i+1 < len(ring); i++ {
			if d := distanceToSegment(ring[i], ring[i+1], pt); d < min {
				min = d
			}
		}
	}
	return min
}

// distanceToSegment is the distance from p to segment ab.
func distanceToSegment(a, b, p orb.Point) float64 {
	abx, aby := b[0]-a[0], b[1]-a[1]
	apx, apy := p[0]-a[0], p[1]-a[1]
	den := abx*abx + aby*aby
	if den == 0 {
		return planar.Distance(a, p)
	}
	t := (apx*abx + apy*aby) / den
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	proj := orb.Point{a[0] + t*abx, a[1] + t*aby}
	return planar.Distance(proj, p)
}

// Centroid returns the area centroid of the polygon.
func Centroid(p orb.Polygon) orb.Point {
	c, _ := planar.CentroidArea(p)
	return c
}

// InteriorGridPoints lays a regular grid of the given spacing (metres) over
// the polygon's bounding box and keeps the points that fall inside the
// polygon. Used by the grid-point IDW formulation; a centroid estimate is
// biased for concave basins, interior sampling is not.
func InteriorGridPoints(p orb.Polygon, spacing float64) []orb.Point {
	if spacing <= 0 {
		return nil
	}
	bound := p.Bound()
	var pts []orb.Point
	for x := bound.Min[0] + spacing/2; x < bound.Max[0]; x += spacing {
		for y := bound.Min[1] + spacing/2; y < bound.Max[1]; y += spacing {
			pt := orb.Point{x, y}
			if planar.PolygonContains(p, pt) {
				pts = append(pts, pt)
			}
		}
	}
	return pts
}
