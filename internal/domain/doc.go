// Package domain models rain-gauge networks, basin geometry, and the areal
// precipitation estimators built on them.
//
// # Data Source
//
// Gauge readings originate from provincial hydrology bureau exports: one
// tabular file per station with a station code (STCD-style identifier), a
// timestamp column, and an hourly precipitation depth in millimetres. The
// exports are messy in two well-known ways: the same timestamp can appear more
// than once (duplicate sensor reports during telemetry retries), and whole
// stretches of hours can be absent (gauge outages). Both are handled here, not
// by the file readers.
//
// # Coordinate Conventions
//
// All geometry is planar and lives in one shared projected CRS (metres).
// Stations are 2D points, basins are simple polygons. Reprojection is an
// upstream concern; the loaders can convert WGS-84 gauge coordinates to UTM as
// a convenience, but the domain itself never sees geographic coordinates.
//
// # Alignment
//
// Per-station series are merged onto a canonical hourly axis spanning the
// union of station coverage (or the intersection, policy-selectable). The axis
// is pure elapsed-time stepping in UTC: exactly 3600 seconds per step, no DST
// or calendar adjustment. Duplicate timestamps within one station are
// collapsed to their arithmetic mean before reindexing. Hours a station never
// reported are NaN, never zero; zero is a real measurement.
//
// # Areal Averaging
//
// Three interchangeable estimators reduce one aligned row to a basin value:
//
//	arithmetic: mean of the non-missing station values.
//	thiessen:   Voronoi cells of the valid stations, clipped to the raw basin
//	            polygon; weights are the clipped cell areas. Below 3 valid
//	            stations the tessellation is degenerate and the estimator
//	            falls back to the arithmetic mean (or NaN with none valid).
//	idw:        inverse-distance weighting with configurable power (default 2),
//	            evaluated at interior grid points of the basin and averaged,
//	            or at the basin centroid. A grid point coinciding exactly with
//	            a station takes that station's value directly.
//
// Note the asymmetry: station selection uses the buffered basin
// (polygon within buffer(d)), but Thiessen weighting clips cells against the
// raw polygon only, matching the operational procedure of the gauge network
// operators.
//
// All estimators are pure functions of their inputs and are independent of
// input ordering; they sort by station ID internally. A timestamp with zero
// valid stations reduces to NaN, which downstream writers persist as an
// explicit missing marker.
package domain
