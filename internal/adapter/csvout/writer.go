// Package csvout persists per-basin areal series as CSV, one file per basin.
// The column layout matches the bureau convention downstream consumers
// expect: time, the basin mean, then one column per contributing station.
package csvout

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/hydroflux/basin-rain-etl/internal/domain"
	"github.com/hydroflux/basin-rain-etl/internal/pipeline"
)

const timeLayout = "2006-01-02 15:04:05"

// Writer implements pipeline.SeriesWriter over a flat output directory.
type Writer struct {
	dir string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteSeries writes <dir>/<basinID>_pmean.csv with header
// time,p_<basinID>,p_<stationID>... NaN values become empty cells, the
// explicit missing marker, distinct from 0.0.
func (w *Writer) WriteSeries(_ context.Context, basin *domain.Basin, series *domain.ArealSeries) error {
	path := filepath.Join(w.dir, basin.ID+"_pmean.csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	cw := csv.NewWriter(file)
	header := make([]string, 0, 2+len(series.Aligned.StationIDs))
	header = append(header, "time", "p_"+basin.ID)
	for _, id := range series.Aligned.StationIDs {
		header = append(header, "p_"+id)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, ts := range series.Times {
		row[0] = ts.UTC().Format(timeLayout)
		row[1] = formatDepth(series.Values[i])
		for si, id := range series.Aligned.StationIDs {
			row[2+si] = formatDepth(series.Aligned.Columns[id][i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// WriteAssociations writes the station-association audit file:
// (basin_id, station_id) pairs sorted by basin then station.
func (w *Writer) WriteAssociations(results []pipeline.BasinResult) error {
	path := filepath.Join(w.dir, "stations_in_buffer.csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	type pair struct{ basin, station string }
	var pairs []pair
	for _, res := range results {
		for _, id := range res.Stations {
			pairs = append(pairs, pair{res.BasinID, id})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].basin != pairs[j].basin {
			return pairs[i].basin < pairs[j].basin
		}
		return pairs[i].station < pairs[j].station
	})

	cw := csv.NewWriter(file)
	if err := cw.Write([]string{"basin_id", "station_id"}); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := cw.Write([]string{p.basin, p.station}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

func formatDepth(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
