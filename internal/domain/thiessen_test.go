package domain

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThiessen(t *testing.T) {
	t.Run("three-gauge fixture", func(t *testing.T) {
		basin, obs := unitBasin()
		// Cell areas clipped to the unit square: 0.2625 for A and B,
		// 0.475 for C, so the weighted mean is 22.125.
		got := Thiessen{}.Reduce(obs, basin)
		assert.InDelta(t, 22.125, got, 1e-9)
		assert.NotEqual(t, 20.0, got) // distinguishable from the plain mean
	})

	t.Run("order independence", func(t *testing.T) {
		basin, obs := unitBasin()
		want := Thiessen{}.Reduce(obs, basin)
		got := Thiessen{}.Reduce(reversed(obs), basin)
		assert.Equal(t, want, got)
	})

	t.Run("two stations fall back to the arithmetic mean", func(t *testing.T) {
		basin, obs := unitBasin()
		two := obs[:2]
		want := Arithmetic{}.Reduce(two, basin)
		assert.InDelta(t, want, Thiessen{}.Reduce(two, basin), 1e-9)
	})

	t.Run("two valid after NaN filtering falls back", func(t *testing.T) {
		basin, obs := unitBasin()
		obs[2].Value = math.NaN()
		assert.InDelta(t, 15.0, Thiessen{}.Reduce(obs, basin), 1e-9)
	})

	t.Run("no valid observations yields NaN", func(t *testing.T) {
		basin, obs := unitBasin()
		for i := range obs {
			obs[i].Value = math.NaN()
		}
		assert.True(t, math.IsNaN(Thiessen{}.Reduce(obs, basin)))
	})

	t.Run("remote station gets zero weight", func(t *testing.T) {
		basin, obs := unitBasin()
		want := Thiessen{}.Reduce(obs, basin)

		// A gauge so far away its cell cannot reach the basin must not
		// move the estimate.
		obs = append(obs, Observation{ID: "far", Coord: orb.Point{100, 100}, Value: 999})
		got := Thiessen{}.Reduce(obs, basin)
		assert.InDelta(t, want, got, 1e-9)
	})
}

func TestClippedVoronoiAreas(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}

	t.Run("areas partition the polygon", func(t *testing.T) {
		sites := []orb.Point{
			{0.1, 0.1}, {0.9, 0.1}, {0.5, 0.9}, {0.3, 0.55}, {0.77, 0.62},
		}
		areas := clippedVoronoiAreas(square, sites)
		require.Len(t, areas, len(sites))

		total := 0.0
		for _, a := range areas {
			assert.GreaterOrEqual(t, a, 0.0)
			total += a
		}
		assert.InDelta(t, math.Abs(planar.Area(square)), total, 1e-9)
	})

	t.Run("partition holds with exterior sites", func(t *testing.T) {
		sites := []orb.Point{{0.5, 0.5}, {2, 0.5}, {-1, -1}}
		areas := clippedVoronoiAreas(square, sites)

		total := 0.0
		for _, a := range areas {
			total += a
		}
		assert.InDelta(t, 1.0, total, 1e-9)
		assert.Greater(t, areas[0], areas[1]) // interior site dominates
	})

	t.Run("hole area is subtracted", func(t *testing.T) {
		holed := orb.Polygon{
			{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
			{{0.4, 0.4}, {0.6, 0.4}, {0.6, 0.6}, {0.4, 0.6}, {0.4, 0.4}},
		}
		sites := []orb.Point{{0.1, 0.1}, {0.9, 0.1}, {0.5, 0.9}}
		areas := clippedVoronoiAreas(holed, sites)

		total := 0.0
		for _, a := range areas {
			total += a
		}
		assert.InDelta(t, 1.0-0.04, total, 1e-9)
	})

	t.Run("coincident sites split nothing away", func(t *testing.T) {
		sites := []orb.Point{{0.5, 0.5}, {0.5, 0.5}}
		areas := clippedVoronoiAreas(square, sites)
		// The bisector of coincident points is undefined; each site keeps
		// the whole clip region rather than dividing by zero.
		assert.InDelta(t, 1.0, areas[0], 1e-9)
		assert.InDelta(t, 1.0, areas[1], 1e-9)
	})
}
