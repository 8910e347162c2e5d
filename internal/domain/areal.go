package domain

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Observation is one station's value at one timestamp. Value may be NaN;
// estimators filter missing values themselves.
type Observation struct {
	ID    string
	Coord orb.Point
	Value float64
}

// Averager reduces one timestamp's station observations to a basin value.
// Implementations are pure and must return the same result regardless of the
// order observations are supplied in. A return of NaN means "no estimate for
// this hour", never an error.
type Averager interface {
	Name() string
	Reduce(obs []Observation, basin *Basin) float64
}

// validSorted filters out NaN observations and sorts by station ID so the
// reduction is independent of input order.
func validSorted(obs []Observation) []Observation {
	valid := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if !math.IsNaN(o.Value) {
			valid = append(valid, o)
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].ID < valid[j].ID })
	return valid
}

// Arithmetic is the plain mean of the non-missing station values. It is the
// default estimator and the fallback when geometric methods degenerate.
type Arithmetic struct{}

func (Arithmetic) Name() string { return "arithmetic" }

func (Arithmetic) Reduce(obs []Observation, _ *Basin) float64 {
	sum, n := 0.0, 0
	for _, o := range obs {
		if math.IsNaN(o.Value) {
			continue
		}
		sum += o.Value
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// IDW is inverse-distance weighting with power p. With GridSpacing > 0 the
// basin value is the mean of IDW estimates at interior grid points of that
// spacing; with GridSpacing == 0 a single estimate at the basin centroid is
// used. Grid-point sampling is preferred for concave basins, where the
// centroid can sit outside the polygon entirely.
type IDW struct {
	Power       float64 // default 2 when zero
	GridSpacing float64 // metres; 0 selects centroid mode
}

func (IDW) Name() string { return "idw" }

func (w IDW) Reduce(obs []Observation, basin *Basin) float64 {
	valid := validSorted(obs)
	if len(valid) == 0 {
		return math.NaN()
	}
	power := w.Power
	if power == 0 {
		power = 2
	}

	targets := []orb.Point{Centroid(basin.Polygon)}
	if w.GridSpacing > 0 {
		if pts := InteriorGridPoints(basin.Polygon, w.GridSpacing); len(pts) > 0 {
			targets = pts
		}
	}

	sum := 0.0
	for _, pt := range targets {
		sum += idwAt(pt, valid, power)
	}
	return sum / float64(len(targets))
}

// idwAt evaluates the IDW estimate at one target point. A station at exactly
// zero distance supplies its value directly; the weight would be infinite.
func idwAt(pt orb.Point, valid []Observation, power float64) float64 {
	num, den := 0.0, 0.0
	for _, o := range valid {
		d := planar.Distance(pt, o.Coord)
		if d == 0 {
			return o.Value
		}
		w := 1 / math.Pow(d, power)
		num += w * o.Value
		den += w
	}
	return num / den
}

// BuildArealSeries reduces every row of an aligned table with the given
// estimator, producing the basin's output series. coords maps station IDs to
// their projected coordinates. Per-row NaN results are preserved as missing
// values, not errors.
func BuildArealSeries(basin *Basin, aligned *AlignedSeries, coords map[string]orb.Point, avg Averager) *ArealSeries {
	values := make([]float64, aligned.Len())
	obs := make([]Observation, len(aligned.StationIDs))
	for i := range aligned.Times {
		for si, id := range aligned.StationIDs {
			obs[si] = Observation{ID: id, Coord: coords[id], Value: aligned.Columns[id][i]}
		}
		values[i] = avg.Reduce(obs, basin)
	}
	return &ArealSeries{
		BasinID:     basin.ID,
		Method:      avg.Name(),
		Times:       aligned.Times,
		Values:      values,
		Aligned:     aligned,
		ProcessedAt: clock.Now(),
	}
}
