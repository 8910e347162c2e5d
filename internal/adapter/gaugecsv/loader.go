// Package gaugecsv loads the gauge network from CSV exports: one station
// list plus one readings file per station.
package gaugecsv

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/im7mortal/UTM"
	"github.com/paulmach/orb"

	"github.com/hydroflux/basin-rain-etl/internal/domain"
)

// Coordinate modes for the station list.
const (
	CoordsProjected = "projected" // x,y already in the shared projected CRS
	CoordsLatLon    = "latlon"    // WGS-84, converted to UTM on load
)

// Accepted reading timestamp layouts. Bureau exports use the space-separated
// form; RFC 3339 covers regenerated fixtures.
var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"}

// Loader reads stations and their readings from disk.
type Loader struct {
	stationsCSV string
	readingsDir string
	coordMode   string
	logger      *slog.Logger
}

// New creates a Loader. coordMode is CoordsProjected or CoordsLatLon.
func New(stationsCSV, readingsDir, coordMode string, logger *slog.Logger) *Loader {
	return &Loader{
		stationsCSV: stationsCSV,
		readingsDir: readingsDir,
		coordMode:   coordMode,
		logger:      logger,
	}
}

// LoadNetwork reads the station list and attaches each station's readings.
// A station whose readings file is missing is kept with an empty series and
// logged; alignment decides whether the basin is still processable.
func (l *Loader) LoadNetwork() ([]domain.Station, error) {
	stations, err := l.loadStations()
	if err != nil {
		return nil, err
	}
	for i := range stations {
		readings, err := l.loadReadings(stations[i].ID)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("readings file not found", "station", stations[i].ID)
				continue
			}
			return nil, err
		}
		stations[i].Readings = readings
	}
	return stations, nil
}

func (l *Loader) loadStations() ([]domain.Station, error) {
	file, err := os.Open(l.stationsCSV)
	if err != nil {
		return nil, fmt.Errorf("open stations csv: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read stations header: %w", err)
	}
	expected := []string{"station_id", "x", "y"}
	if l.coordMode == CoordsLatLon {
		expected = []string{"station_id", "lat", "lon"}
	}
	if err := checkHeader(header, expected); err != nil {
		return nil, fmt.Errorf("stations csv: %w", err)
	}

	var stations []domain.Station
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			break
		}
		if len(row) < 3 || row[0] == "" {
			continue
		}
		a, errA := strconv.ParseFloat(row[1], 64)
		b, errB := strconv.ParseFloat(row[2], 64)
		if errA != nil || errB != nil {
			return nil, fmt.Errorf("stations csv line %d: bad coordinate", line)
		}
		coord, err := l.toProjected(a, b)
		if err != nil {
			return nil, fmt.Errorf("stations csv line %d: %w", line, err)
		}
		stations = append(stations, domain.Station{ID: row[0], Coord: coord})
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("stations csv %s: no stations", l.stationsCSV)
	}
	return stations, nil
}

// toProjected converts a (lat, lon) pair to UTM metres in latlon mode and
// passes projected coordinates through untouched.
func (l *Loader) toProjected(a, b float64) (orb.Point, error) {
	if l.coordMode != CoordsLatLon {
		return orb.Point{a, b}, nil
	}
	easting, northing, _, _, err := UTM.FromLatLon(a, b, a >= 0)
	if err != nil {
		return orb.Point{}, fmt.Errorf("utm conversion: %w", err)
	}
	return orb.Point{easting, northing}, nil
}

// loadReadings reads one station's series from <readingsDir>/<id>.csv.
// Rows with empty or unparseable depths are dropped (missing, not zero);
// negative depths are sensor error codes and are dropped too.
func (l *Loader) loadReadings(stationID string) ([]domain.Reading, error) {
	path := filepath.Join(l.readingsDir, stationID+".csv")
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read readings header %s: %w", path, err)
	}
	if err := checkHeader(header, []string{"station_id", "time", "depth_mm"}); err != nil {
		return nil, fmt.Errorf("readings csv %s: %w", path, err)
	}

	var readings []domain.Reading
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			break
		}
		if len(row) < 3 {
			continue
		}
		ts, err := parseTime(row[1])
		if err != nil {
			return nil, fmt.Errorf("readings csv %s line %d: %w", path, line, err)
		}
		depth, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil || depth < 0 {
			continue
		}
		readings = append(readings, domain.Reading{Time: ts, Depth: depth})
	}
	return readings, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("invalid header: expected %v, got %v", want, got)
	}
	for i, h := range got {
		if !strings.EqualFold(strings.TrimSpace(h), want[i]) {
			return fmt.Errorf("invalid header: expected column %d to be %s, got %s", i, want[i], h)
		}
	}
	return nil
}
