package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// Thiessen weights each valid station by the area of its Voronoi cell
// clipped to the raw basin polygon. Stations whose cell misses the basin get
// weight zero. The buffered region is used only for station selection, never
// for weighting.
type Thiessen struct{}

func (Thiessen) Name() string { return "thiessen" }

// Reduce applies Thiessen weighting over the non-missing observations.
// Below 3 valid stations the Voronoi tessellation is degenerate: with at
// least one valid station the estimator falls back to the arithmetic mean,
// with none it returns NaN. A zero total weight (no cell intersects the
// basin) also yields NaN for this timestamp only.
func (t Thiessen) Reduce(obs []Observation, basin *Basin) float64 {
	valid := validSorted(obs)
	switch {
	case len(valid) == 0:
		return math.NaN()
	case len(valid) < 3:
		return Arithmetic{}.Reduce(valid, basin)
	}

	sites := make([]orb.Point, len(valid))
	for i, o := range valid {
		sites[i] = o.Coord
	}
	weights := clippedVoronoiAreas(basin.Polygon, sites)

	num, den := 0.0, 0.0
	for i, o := range valid {
		num += o.Value * weights[i]
		den += weights[i]
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
