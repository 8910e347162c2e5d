package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydroflux/basin-rain-etl/internal/domain"
	"github.com/hydroflux/basin-rain-etl/internal/observability"
)

var testBase = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func hour(n int) time.Time { return testBase.Add(time.Duration(n) * time.Hour) }

// fakeWriter records persisted series and can fail specific basins.
type fakeWriter struct {
	mu     sync.Mutex
	series map[string]*domain.ArealSeries
	failOn map[string]error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{series: map[string]*domain.ArealSeries{}, failOn: map[string]error{}}
}

func (w *fakeWriter) WriteSeries(_ context.Context, basin *domain.Basin, s *domain.ArealSeries) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err, ok := w.failOn[basin.ID]; ok {
		return err
	}
	w.series[basin.ID] = s
	return nil
}

// fakePublisher records every status event.
type fakePublisher struct {
	mu     sync.Mutex
	events []BasinResult
	err    error
}

func (p *fakePublisher) PublishStatus(_ context.Context, res BasinResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, res)
	return p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readings(depths ...float64) []domain.Reading {
	rs := make([]domain.Reading, len(depths))
	for i, d := range depths {
		rs[i] = domain.Reading{Time: hour(i), Depth: d}
	}
	return rs
}

// testNetwork is three gauges around a unit square basin, matching the
// hand-computed estimates used across the domain tests.
func testNetwork() *domain.GeometryIndex {
	return domain.NewGeometryIndex([]domain.Station{
		{ID: "A", Coord: orb.Point{0.1, 0.1}, Readings: readings(10, 1)},
		{ID: "B", Coord: orb.Point{0.9, 0.1}, Readings: readings(20, 2)},
		{ID: "C", Coord: orb.Point{0.5, 0.9}, Readings: readings(30, 3)},
	})
}

func unitSquareBasin(id string) *domain.Basin {
	return &domain.Basin{
		ID:      id,
		Polygon: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
	}
}

func newTestPipeline(writer SeriesWriter, publisher StatusPublisher, avg domain.Averager, workers int) *Pipeline {
	return New(testNetwork(), domain.Aligner{}, avg, writer, publisher,
		testLogger(), observability.NewMetricsForTesting(), workers)
}

func TestRun(t *testing.T) {
	t.Run("persists a basin end to end", func(t *testing.T) {
		writer := newFakeWriter()
		p := newTestPipeline(writer, nil, domain.Arithmetic{}, 1)

		summary := p.Run(context.Background(), []*domain.Basin{unitSquareBasin("b1")}, nil)

		require.Len(t, summary.Results, 1)
		res := summary.Results[0]
		assert.Equal(t, StatusPersisted, res.Status)
		assert.Equal(t, []string{"A", "B", "C"}, res.Stations)
		assert.Equal(t, 2, res.Rows)
		assert.Equal(t, 1, summary.Persisted())
		assert.Equal(t, 0, summary.Skipped())

		series := writer.series["b1"]
		require.NotNil(t, series)
		assert.Equal(t, "arithmetic", series.Method)
		assert.InDelta(t, 20.0, series.Values[0], 1e-9)
		assert.InDelta(t, 2.0, series.Values[1], 1e-9)
	})

	t.Run("thiessen weighting flows through", func(t *testing.T) {
		writer := newFakeWriter()
		p := newTestPipeline(writer, nil, domain.Thiessen{}, 1)

		p.Run(context.Background(), []*domain.Basin{unitSquareBasin("b1")}, nil)

		series := writer.series["b1"]
		require.NotNil(t, series)
		assert.Equal(t, "thiessen", series.Method)
		assert.InDelta(t, 22.125, series.Values[0], 1e-9)
	})

	t.Run("skips basin with no stations in range", func(t *testing.T) {
		writer := newFakeWriter()
		p := newTestPipeline(writer, nil, domain.Arithmetic{}, 1)
		far := &domain.Basin{
			ID:      "remote",
			Polygon: orb.Polygon{{{9000, 9000}, {9001, 9000}, {9001, 9001}, {9000, 9001}, {9000, 9000}}},
		}

		summary := p.Run(context.Background(), []*domain.Basin{far}, nil)

		require.Len(t, summary.Results, 1)
		assert.Equal(t, StatusSkipped, summary.Results[0].Status)
		assert.Contains(t, summary.Results[0].Reason, "no stations")
		assert.Empty(t, writer.series)
	})

	t.Run("skips basin with degenerate geometry", func(t *testing.T) {
		writer := newFakeWriter()
		p := newTestPipeline(writer, nil, domain.Arithmetic{}, 1)
		bad := &domain.Basin{ID: "bad", Polygon: orb.Polygon{}}

		summary := p.Run(context.Background(), []*domain.Basin{bad}, nil)

		require.Len(t, summary.Results, 1)
		assert.Equal(t, StatusSkipped, summary.Results[0].Status)
		assert.Contains(t, summary.Results[0].Reason, "associate stations")
	})

	t.Run("skips basin when persistence fails", func(t *testing.T) {
		writer := newFakeWriter()
		writer.failOn["b1"] = errors.New("disk full")
		p := newTestPipeline(writer, nil, domain.Arithmetic{}, 1)

		summary := p.Run(context.Background(), []*domain.Basin{unitSquareBasin("b1")}, nil)

		require.Len(t, summary.Results, 1)
		assert.Equal(t, StatusSkipped, summary.Results[0].Status)
		assert.Contains(t, summary.Results[0].Reason, "disk full")
	})

	t.Run("one failure never aborts the rest", func(t *testing.T) {
		writer := newFakeWriter()
		writer.failOn["b2"] = errors.New("disk full")
		p := newTestPipeline(writer, nil, domain.Arithmetic{}, 2)

		basins := []*domain.Basin{
			unitSquareBasin("b1"),
			unitSquareBasin("b2"),
			unitSquareBasin("b3"),
		}
		summary := p.Run(context.Background(), basins, nil)

		assert.Equal(t, 2, summary.Persisted())
		assert.Equal(t, 1, summary.Skipped())
		// Results come back sorted regardless of worker completion order.
		ids := make([]string, len(summary.Results))
		for i, r := range summary.Results {
			ids[i] = r.BasinID
		}
		assert.Equal(t, []string{"b1", "b2", "b3"}, ids)
	})

	t.Run("publishes one status event per basin", func(t *testing.T) {
		writer := newFakeWriter()
		writer.failOn["b2"] = errors.New("disk full")
		pub := &fakePublisher{}
		p := newTestPipeline(writer, pub, domain.Arithmetic{}, 1)

		p.Run(context.Background(), []*domain.Basin{unitSquareBasin("b1"), unitSquareBasin("b2")}, nil)

		require.Len(t, pub.events, 2)
		statuses := map[string]Status{}
		for _, e := range pub.events {
			statuses[e.BasinID] = e.Status
		}
		assert.Equal(t, StatusPersisted, statuses["b1"])
		assert.Equal(t, StatusSkipped, statuses["b2"])
	})

	t.Run("publish failure is not fatal", func(t *testing.T) {
		writer := newFakeWriter()
		pub := &fakePublisher{err: errors.New("broker down")}
		p := newTestPipeline(writer, pub, domain.Arithmetic{}, 1)

		summary := p.Run(context.Background(), []*domain.Basin{unitSquareBasin("b1")}, nil)

		assert.Equal(t, 1, summary.Persisted())
	})

	t.Run("cancelled context stops dispatching", func(t *testing.T) {
		writer := newFakeWriter()
		p := newTestPipeline(writer, nil, domain.Arithmetic{}, 1)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		basins := make([]*domain.Basin, 50)
		for i := range basins {
			basins[i] = unitSquareBasin("b" + string(rune('a'+i%26)))
		}
		summary := p.Run(ctx, basins, nil)

		assert.Less(t, len(summary.Results), len(basins))
	})

	t.Run("onDone fires once per basin", func(t *testing.T) {
		writer := newFakeWriter()
		p := newTestPipeline(writer, nil, domain.Arithmetic{}, 2)

		var done []string
		p.Run(context.Background(), []*domain.Basin{unitSquareBasin("b1"), unitSquareBasin("b2")},
			func(res BasinResult) { done = append(done, res.BasinID) })

		assert.Len(t, done, 2)
	})
}

func TestCheckReadiness(t *testing.T) {
	writer := newFakeWriter()
	p := newTestPipeline(writer, nil, domain.Arithmetic{}, 1)

	require.Error(t, p.CheckReadiness(context.Background()))

	p.Run(context.Background(), []*domain.Basin{unitSquareBasin("b1")}, nil)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestRunEndToEndIDW(t *testing.T) {
	// Full scenario: the basin mean at hour 0 must land strictly between the
	// lowest and highest gauge, closer to the nearest gauge's value.
	writer := newFakeWriter()
	p := newTestPipeline(writer, nil, domain.IDW{}, 1)

	p.Run(context.Background(), []*domain.Basin{unitSquareBasin("b1")}, nil)

	series := writer.series["b1"]
	require.NotNil(t, series)
	assert.Equal(t, "idw", series.Method)
	v := series.Values[0]
	assert.False(t, math.IsNaN(v))
	assert.Greater(t, v, 10.0)
	assert.Less(t, v, 30.0)
	assert.Greater(t, v, 20.0) // pulled toward C, the gauge nearest the centroid
}
