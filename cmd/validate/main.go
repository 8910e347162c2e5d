// Command validate performs integrity checks over a finished pipeline run:
// the per-basin output CSVs and the station association audit. It verifies
// header layout, a gap-free hourly time axis, value sanity, and consistency
// between the audit file and the per-basin column sets.
//
// Usage:
//
//	go run ./cmd/validate -output-dir data/out
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	outputDir := flag.String("output-dir", "", "directory containing pipeline output CSVs")
	flag.Parse()

	if *outputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*outputDir); code != 0 {
		os.Exit(code)
	}
}

func run(outputDir string) int {
	fmt.Println("=== Basin Rainfall Output Validation ===")
	fmt.Println()

	series, err := loadSeriesFiles(outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load output CSVs: %v\n", err)
		return 1
	}
	if len(series) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no *_pmean.csv files in %s\n", outputDir)
		return 1
	}

	audit, err := loadAudit(filepath.Join(outputDir, "stations_in_buffer.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load association audit: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateHeaders(series),
		validateTimeAxis(series),
		validateValues(series),
		validateAuditConsistency(series, audit),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	rows := 0
	for _, s := range series {
		rows += len(s.records)
	}
	fmt.Println()
	fmt.Printf("Files: %d basin series, %d data rows, %d audit pairs\n", len(series), rows, len(audit))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// seriesFile is a parsed <basin>_pmean.csv.
type seriesFile struct {
	basinID string
	header  []string
	records [][]string
}

func loadSeriesFiles(dir string) ([]seriesFile, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*_pmean.csv"))
	if err != nil {
		return nil, err
	}

	var files []seriesFile
	for _, path := range paths {
		all, err := readCSV(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(all) < 2 {
			return nil, fmt.Errorf("no data rows in %s", path)
		}
		files = append(files, seriesFile{
			basinID: strings.TrimSuffix(filepath.Base(path), "_pmean.csv"),
			header:  all[0],
			records: all[1:],
		})
	}
	return files, nil
}

// loadAudit returns basin ID → station IDs from stations_in_buffer.csv.
func loadAudit(path string) (map[string][]string, error) {
	all, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 || len(all[0]) < 2 || all[0][0] != "basin_id" || all[0][1] != "station_id" {
		return nil, fmt.Errorf("unexpected audit header in %s", path)
	}

	audit := make(map[string][]string)
	for _, row := range all[1:] {
		audit[row[0]] = append(audit[row[0]], row[1])
	}
	return audit, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}

// ── Phase 1: Header Layout ──
// First column is time, second is the basin mean, the rest are stations.

func validateHeaders(series []seriesFile) *phase {
	p := &phase{name: "Phase 1: Header Layout"}

	for _, s := range series {
		if len(s.header) < 2 {
			p.errorf("%s: header has %d columns, want at least 2", s.basinID, len(s.header))
			continue
		}
		if s.header[0] != "time" {
			p.errorf("%s: first column is %q, want \"time\"", s.basinID, s.header[0])
		}
		if want := "p_" + s.basinID; s.header[1] != want {
			p.errorf("%s: second column is %q, want %q", s.basinID, s.header[1], want)
		}
		for i, col := range s.header[2:] {
			if !strings.HasPrefix(col, "p_") {
				p.errorf("%s: station column %d is %q, want p_ prefix", s.basinID, i+2, col)
			}
		}
	}
	return p
}

// ── Phase 2: Time Axis ──
// Timestamps must step by exactly one hour with no gaps or duplicates.

func validateTimeAxis(series []seriesFile) *phase {
	p := &phase{name: "Phase 2: Hourly Time Axis"}

	for _, s := range series {
		var prev time.Time
		for i, row := range s.records {
			ts, err := time.ParseInLocation(timeLayout, row[0], time.UTC)
			if err != nil {
				p.errorf("%s row %d: unparseable time %q", s.basinID, i+2, row[0])
				continue
			}
			if i > 0 && ts.Sub(prev) != time.Hour {
				p.errorf("%s row %d: step %s after %s, want 1h", s.basinID, i+2, ts.Sub(prev), prev.Format(timeLayout))
			}
			prev = ts
		}
	}
	return p
}

// ── Phase 3: Value Sanity ──
// Every cell is either empty (a missing hour) or a non-negative depth.

func validateValues(series []seriesFile) *phase {
	p := &phase{name: "Phase 3: Value Sanity"}

	for _, s := range series {
		empties := 0
		for i, row := range s.records {
			if len(row) != len(s.header) {
				p.errorf("%s row %d: %d cells, header has %d", s.basinID, i+2, len(row), len(s.header))
				continue
			}
			for j, cell := range row[1:] {
				if cell == "" {
					empties++
					continue
				}
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					p.errorf("%s row %d col %q: unparseable value %q", s.basinID, i+2, s.header[j+1], cell)
					continue
				}
				if v < 0 {
					p.errorf("%s row %d col %q: negative depth %g", s.basinID, i+2, s.header[j+1], v)
				}
			}
		}
		if empties == len(s.records)*(len(s.header)-1) {
			p.errorf("%s: every cell is empty", s.basinID)
		}
	}
	return p
}

// ── Phase 4: Audit Consistency ──
// The station columns of each series must match the audit's association set.

func validateAuditConsistency(series []seriesFile, audit map[string][]string) *phase {
	p := &phase{name: "Phase 4: Audit Consistency"}

	for _, s := range series {
		want, ok := audit[s.basinID]
		if !ok {
			p.errorf("%s: basin absent from stations_in_buffer.csv", s.basinID)
			continue
		}

		got := map[string]bool{}
		for _, col := range s.header[2:] {
			got[strings.TrimPrefix(col, "p_")] = true
		}

		for _, id := range want {
			if !got[id] {
				p.errorf("%s: audit lists station %s but series has no p_%s column", s.basinID, id, id)
			}
		}
		if len(got) != len(want) {
			p.errorf("%s: series has %d station columns, audit lists %d", s.basinID, len(got), len(want))
		}
	}
	return p
}
