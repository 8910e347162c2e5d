// Package basingeo loads basin polygons from a GeoJSON FeatureCollection.
// Features must carry a basin_id property and polygon geometry in the shared
// projected CRS; an optional buffer_m property overrides the run default.
package basingeo

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/hydroflux/basin-rain-etl/internal/domain"
)

// LoadBasins reads basins from the GeoJSON file at path. defaultBuffer is
// the station-selection buffer (metres) used when a feature carries no
// buffer_m property. Geometry validity is not checked here; the pipeline
// validates per basin so one bad polygon skips one basin, not the run.
func LoadBasins(path string, defaultBuffer float64) ([]*domain.Basin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read basins geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse basins geojson: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("basins geojson %s: no features", path)
	}

	basins := make([]*domain.Basin, 0, len(fc.Features))
	seen := make(map[string]bool, len(fc.Features))
	for i, f := range fc.Features {
		id, ok := f.Properties["basin_id"].(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("basins geojson feature %d: missing basin_id property", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("basins geojson: duplicate basin_id %q", id)
		}
		seen[id] = true

		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			return nil, fmt.Errorf("basins geojson feature %q: geometry is %s, want Polygon", id, f.Geometry.GeoJSONType())
		}

		buffer := defaultBuffer
		if v, ok := f.Properties["buffer_m"].(float64); ok && v >= 0 {
			buffer = v
		}

		basins = append(basins, &domain.Basin{ID: id, Polygon: poly, Buffer: buffer})
	}
	return basins, nil
}
