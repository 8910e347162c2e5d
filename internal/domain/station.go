package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Reading is one raw gauge record: a timestamp and a precipitation depth in
// millimetres. Raw series may contain duplicate timestamps and gaps.
type Reading struct {
	Time  time.Time
	Depth float64
}

// Station is a rain gauge at a projected planar coordinate (metres).
type Station struct {
	ID       string
	Coord    orb.Point
	Readings []Reading
}

// Basin is a catchment polygon in the same projected CRS as the stations.
// Buffer is the station-selection tolerance in metres: gauges within Buffer of
// the polygon are associated with the basin even when they sit outside it.
type Basin struct {
	ID      string
	Polygon orb.Polygon
	Buffer  float64
}

// AlignedSeries is a per-station table on the canonical hourly axis.
// Times has no gaps; consecutive entries differ by exactly one hour.
// Columns holds one value slice per station, len(Times) each, with NaN
// marking hours the station did not report. StationIDs is the column order,
// sorted ascending. An AlignedSeries is never mutated after Align returns it.
type AlignedSeries struct {
	Times      []time.Time
	StationIDs []string
	Columns    map[string][]float64
}

// Len returns the number of rows on the canonical axis.
func (s *AlignedSeries) Len() int { return len(s.Times) }

// ArealSeries is the terminal per-basin artifact: one value per canonical
// timestamp, NaN where the reduction had no valid input. Immutable once built.
type ArealSeries struct {
	BasinID     string
	Method      string
	Times       []time.Time
	Values      []float64
	Aligned     *AlignedSeries // station columns persisted alongside the mean
	ProcessedAt time.Time
}
