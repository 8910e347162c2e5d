// Package ncout persists per-basin areal series as NetCDF, one file per
// basin, with a time dimension in hours since the Unix epoch and a p_mean
// variable. Missing hours keep their NaN, the conventional NetCDF fill.
package ncout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/hydroflux/basin-rain-etl/internal/domain"
)

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

// WriteSeries writes <dir>/<basinID>_pmean.nc.
func (w *Writer) WriteSeries(_ context.Context, basin *domain.Basin, series *domain.ArealSeries) error {
	path := filepath.Join(w.dir, basin.ID+"_pmean.nc")

	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer ds.Close()

	n := len(series.Times)
	timeDim, err := ds.AddDim("time", uint64(n))
	if err != nil {
		return err
	}

	timeVar, err := ds.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	if err != nil {
		return err
	}
	hours := make([]float64, n)
	for i, ts := range series.Times {
		hours[i] = float64(ts.Unix()) / float64(time.Hour/time.Second)
	}
	if err := timeVar.WriteFloat64s(hours); err != nil {
		return err
	}

	meanVar, err := ds.AddVar("p_mean", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	if err != nil {
		return err
	}
	if err := meanVar.WriteFloat64s(series.Values); err != nil {
		return err
	}

	return nil
}
