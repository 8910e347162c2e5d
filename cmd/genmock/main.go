// Command genmock generates a synthetic gauge network for local end-to-end
// runs: a station list, one readings CSV per station with realistic gaps and
// duplicate reports, and a basins GeoJSON. Output is deterministic for a
// given seed.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir testdata/mock -stations 12 -basins 3 -hours 240
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var baseTime = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

// domainExtent is the synthetic CRS extent in metres.
const domainExtent = 30000.0

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "output directory for mock fixtures")
	nStations := flag.Int("stations", 12, "number of gauge stations")
	nBasins := flag.Int("basins", 3, "number of basins")
	hours := flag.Int("hours", 240, "hours of readings per station")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}

	readingsDir := filepath.Join(*outDir, "readings")
	if err := os.MkdirAll(readingsDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))

	stations := genStations(rng, *nStations)
	if err := writeStations(filepath.Join(*outDir, "stations.csv"), stations); err != nil {
		return fmt.Errorf("writing stations: %w", err)
	}
	log.Printf("stations: %d", len(stations))

	for _, s := range stations {
		path := filepath.Join(readingsDir, s.id+".csv")
		if err := writeReadings(path, rng, s.id, *hours); err != nil {
			return fmt.Errorf("writing readings for %s: %w", s.id, err)
		}
	}
	log.Printf("readings: %d hours per station, dir %s", *hours, readingsDir)

	basinsPath := filepath.Join(*outDir, "basins.geojson")
	if err := writeBasins(basinsPath, rng, *nBasins); err != nil {
		return fmt.Errorf("writing basins: %w", err)
	}
	log.Printf("basins: %d, file %s", *nBasins, basinsPath)

	return nil
}

type mockStation struct {
	id   string
	x, y float64
}

func genStations(rng *rand.Rand, n int) []mockStation {
	stations := make([]mockStation, n)
	for i := range stations {
		stations[i] = mockStation{
			id: fmt.Sprintf("ST%04d", i+1),
			x:  rng.Float64() * domainExtent,
			y:  rng.Float64() * domainExtent,
		}
	}
	return stations
}

func writeStations(path string, stations []mockStation) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"station_id", "x", "y"}); err != nil {
		return err
	}
	for _, s := range stations {
		row := []string{
			s.id,
			strconv.FormatFloat(s.x, 'f', 1, 64),
			strconv.FormatFloat(s.y, 'f', 1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeReadings emits an hourly series with ~5% dropped hours, ~2% duplicate
// reports, and storm-burst depths, resembling real telemetry exports.
func writeReadings(path string, rng *rand.Rand, stationID string, hours int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"station_id", "time", "depth_mm"}); err != nil {
		return err
	}

	storm := 0.0
	for h := 0; h < hours; h++ {
		if rng.Float64() < 0.05 {
			continue // gauge outage
		}
		// Storms build and decay over a few hours.
		if rng.Float64() < 0.1 {
			storm = rng.Float64() * 20
		}
		storm *= 0.7
		depth := storm + rng.Float64()*0.5
		if depth < 0.1 {
			depth = 0
		}

		ts := baseTime.Add(time.Duration(h) * time.Hour)
		row := []string{stationID, ts.Format("2006-01-02 15:04:05"), strconv.FormatFloat(depth, 'f', 1, 64)}
		if err := w.Write(row); err != nil {
			return err
		}
		if rng.Float64() < 0.02 {
			// Duplicate sensor report with a slightly different depth.
			row[2] = strconv.FormatFloat(depth+0.2, 'f', 1, 64)
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// writeBasins tiles rectangular basins with jittered corners across the
// domain extent.
func writeBasins(path string, rng *rand.Rand, n int) error {
	fc := geojson.NewFeatureCollection()
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * domainExtent * 0.6
		y0 := rng.Float64() * domainExtent * 0.6
		wdt := domainExtent*0.15 + rng.Float64()*domainExtent*0.25
		hgt := domainExtent*0.15 + rng.Float64()*domainExtent*0.25

		ring := orb.Ring{
			{x0, y0},
			{x0 + wdt, y0 + rng.Float64()*500},
			{x0 + wdt, y0 + hgt},
			{x0 + rng.Float64()*500, y0 + hgt},
			{x0, y0},
		}
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["basin_id"] = fmt.Sprintf("B%03d", i+1)
		fc.Append(f)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
