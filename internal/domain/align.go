package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// AxisPolicy selects how the canonical axis spans heterogeneous coverage.
type AxisPolicy int

const (
	// AxisUnion spans min(all stations' first) to max(all stations' last).
	AxisUnion AxisPolicy = iota
	// AxisIntersection spans only the hours every station covers.
	AxisIntersection
)

// Aligner merges irregular per-station series onto one canonical hourly grid.
type Aligner struct {
	Policy AxisPolicy
}

// dedupedSeries is one station after duplicate-timestamp collapsing.
type dedupedSeries struct {
	id     string
	values map[int64]float64 // unix second -> mean depth
	first  time.Time
	last   time.Time
}

// Align deduplicates each station's readings (duplicate timestamps collapse
// to their arithmetic mean), derives the canonical hourly axis per the
// configured policy, and reindexes every station onto it with NaN for hours
// the station did not report. The result is freshly allocated on every call.
// Returns ErrEmptyInput when given zero stations or when no station has any
// readings.
func (a Aligner) Align(series map[string][]Reading) (*AlignedSeries, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: zero stations", ErrEmptyInput)
	}

	stations := make([]dedupedSeries, 0, len(series))
	for id, readings := range series {
		stations = append(stations, dedupe(id, readings))
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].id < stations[j].id })

	start, end, ok := a.axisSpan(stations)
	if !ok {
		return nil, fmt.Errorf("%w: all stations have zero readings", ErrEmptyInput)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: station coverage does not overlap", ErrEmptyInput)
	}

	n := int(end.Sub(start)/time.Hour) + 1
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}

	ids := make([]string, len(stations))
	columns := make(map[string][]float64, len(stations))
	for si, st := range stations {
		ids[si] = st.id
		col := make([]float64, n)
		for i, t := range times {
			if v, ok := st.values[t.Unix()]; ok {
				col[i] = v
			} else {
				col[i] = math.NaN()
			}
		}
		columns[st.id] = col
	}

	return &AlignedSeries{Times: times, StationIDs: ids, Columns: columns}, nil
}

// dedupe collapses duplicate timestamps to their arithmetic mean. Telemetry
// retries produce genuine duplicates; first-wins would bias toward whichever
// record happened to arrive first.
func dedupe(id string, readings []Reading) dedupedSeries {
	if len(readings) == 0 {
		// A silent station still gets a NaN column, as long as someone reports.
		return dedupedSeries{id: id, values: map[int64]float64{}}
	}
	sums := make(map[int64]float64, len(readings))
	counts := make(map[int64]int, len(readings))
	first, last := readings[0].Time, readings[0].Time
	for _, r := range readings {
		key := r.Time.Unix()
		sums[key] += r.Depth
		counts[key]++
		if r.Time.Before(first) {
			first = r.Time
		}
		if r.Time.After(last) {
			last = r.Time
		}
	}
	values := make(map[int64]float64, len(sums))
	for key, sum := range sums {
		values[key] = sum / float64(counts[key])
	}
	return dedupedSeries{id: id, values: values, first: first, last: last}
}

// axisSpan computes the canonical axis endpoints over the stations that have
// readings.
func (a Aligner) axisSpan(stations []dedupedSeries) (time.Time, time.Time, bool) {
	var start, end time.Time
	found := false
	for _, st := range stations {
		if len(st.values) == 0 {
			continue
		}
		if !found {
			start, end, found = st.first, st.last, true
			continue
		}
		switch a.Policy {
		case AxisIntersection:
			if st.first.After(start) {
				start = st.first
			}
			if st.last.Before(end) {
				end = st.last
			}
		default: // AxisUnion
			if st.first.Before(start) {
				start = st.first
			}
			if st.last.After(end) {
				end = st.last
			}
		}
	}
	return start.UTC(), end.UTC(), found
}
