package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// clippedVoronoiAreas returns, for each site, the area of its Voronoi cell
// intersected with the polygon.
//
// Rather than building the global tessellation and clipping unbounded cells,
// each site's clipped cell is computed directly: cell_i ∩ polygon is the
// polygon clipped by the perpendicular-bisector half-plane of (i, j) for
// every other site j. The construction is order-independent, never produces
// unbounded regions, and the cells partition the polygon exactly, so the
// areas sum to the polygon area (the partition-of-unity invariant downstream
// weighting relies on).
//
// Holes are handled by clipping each hole ring the same way and subtracting.
func clippedVoronoiAreas(p orb.Polygon, sites []orb.Point) []float64 {
	areas := make([]float64, len(sites))
	for i := range sites {
		area := clippedCellArea(p[0], sites, i)
		for _, hole := range p[1:] {
			area -= clippedCellArea(hole, sites, i)
		}
		if area < 0 {
			area = 0
		}
		areas[i] = area
	}
	return areas
}

// clippedCellArea clips one ring by site i's bisector half-planes and
// returns the absolute area of what remains.
func clippedCellArea(ring orb.Ring, sites []orb.Point, i int) float64 {
	cell := make(orb.Ring, len(ring))
	copy(cell, ring)
	for j, other := range sites {
		if j == i {
			continue
		}
		cell = clipHalfPlane(cell, sites[i], other)
		if len(cell) < 4 {
			return 0
		}
	}
	return math.Abs(planar.Area(cell))
}

// clipHalfPlane keeps the part of the ring at least as close to a as to b
// (Sutherland–Hodgman against the perpendicular bisector of ab). The returned
// ring is closed. Coincident sites (a == b) leave the ring unchanged.
func clipHalfPlane(ring orb.Ring, a, b orb.Point) orb.Ring {
	nx, ny := b[0]-a[0], b[1]-a[1]
	if nx == 0 && ny == 0 {
		return ring
	}
	mx, my := (a[0]+b[0])/2, (a[1]+b[1])/2

	// inside(p) ⇔ (p - midpoint) · (b - a) ≤ 0
	side := func(p orb.Point) float64 {
		return (p[0]-mx)*nx + (p[1]-my)*ny
	}

	out := make(orb.Ring, 0, len(ring)+2)
	for i := 0; i+1 < len(ring); i++ {
		cur, next := ring[i], ring[i+1]
		sc, sn := side(cur), side(next)
		if sc <= 0 {
			out = append(out, cur)
		}
		if (sc < 0 && sn > 0) || (sc > 0 && sn < 0) {
			t := sc / (sc - sn)
			out = append(out, orb.Point{
				cur[0] + t*(next[0]-cur[0]),
				cur[1] + t*(next[1]-cur[1]),
			})
		}
	}
	if len(out) == 0 {
		return nil
	}
	if out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}
