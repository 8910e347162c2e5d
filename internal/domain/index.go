package domain

import (
	"sort"
)

// GeometryIndex answers which stations are spatially relevant to a basin.
// It holds the full station network once per run; association is recomputed
// per basin and never cached.
type GeometryIndex struct {
	byID map[string]Station
}

// NewGeometryIndex builds an index over the station network.
func NewGeometryIndex(stations []Station) *GeometryIndex {
	byID := make(map[string]Station, len(stations))
	for _, s := range stations {
		byID[s.ID] = s
	}
	return &GeometryIndex{byID: byID}
}

// Station looks up a station by ID.
func (g *GeometryIndex) Station(id string) (Station, bool) {
	s, ok := g.byID[id]
	return s, ok
}

// StationsNear returns the IDs of all stations whose point lies within the
// basin polygon or within Buffer metres of it, boundary-inclusive. The result
// is sorted so the association is deterministic regardless of map iteration
// order. An empty result is not an error; the caller decides whether the
// basin is processable. Returns ErrInvalidGeometry for degenerate polygons.
func (g *GeometryIndex) StationsNear(b *Basin) ([]string, error) {
	if err := ValidatePolygon(b.Polygon); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(g.byID))
	for id, s := range g.byID {
		if DistanceToPolygon(b.Polygon, s.Coord) <= b.Buffer {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// BufferOnly returns, for the given associated IDs, the stations that sit
// outside the raw polygon but inside the buffer, with their distance to the
// basin. Reported for operator audit; these stations still contribute to
// alignment and averaging.
func (g *GeometryIndex) BufferOnly(b *Basin, ids []string) map[string]float64 {
	out := make(map[string]float64)
	for _, id := range ids {
		s, ok := g.byID[id]
		if !ok {
			continue
		}
		if d := DistanceToPolygon(b.Polygon, s.Coord); d > 0 {
			out[id] = d
		}
	}
	return out
}
