package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/hydroflux/basin-rain-etl/internal/domain"
	"github.com/hydroflux/basin-rain-etl/internal/observability"
)

// Status is the terminal processing state of one basin.
type Status string

const (
	StatusPersisted Status = "persisted"
	StatusSkipped   Status = "skipped"
)

// BasinResult records how one basin's run ended. Skipped basins carry the
// reason; persisted basins carry the associated stations and row count.
type BasinResult struct {
	BasinID  string
	Status   Status
	Reason   string
	Stations []string
	Rows     int
	Duration time.Duration
}

// Summary is the whole run's outcome, sufficient for an operator to audit
// data coverage gaps.
type Summary struct {
	Started  time.Time
	Finished time.Time
	Results  []BasinResult
}

// Persisted counts basins that produced an output series.
func (s *Summary) Persisted() int { return s.count(StatusPersisted) }

// Skipped counts basins that terminated without output.
func (s *Summary) Skipped() int { return s.count(StatusSkipped) }

func (s *Summary) count(st Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == st {
			n++
		}
	}
	return n
}

// SeriesWriter persists one basin's output series.
type SeriesWriter interface {
	WriteSeries(ctx context.Context, basin *domain.Basin, series *domain.ArealSeries) error
}

// StatusPublisher emits one event per finished basin. Optional; publish
// failures are logged, never fatal.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, result BasinResult) error
}

// Pipeline runs the per-basin state machine
// Unresolved → StationsAssociated → Aligned → Averaged → Persisted,
// with a terminal Skipped state on any stage failure. Basins are independent,
// so they are fanned out over a worker pool; stages within a basin run
// strictly in sequence.
type Pipeline struct {
	index     *domain.GeometryIndex
	aligner   domain.Aligner
	averager  domain.Averager
	writer    SeriesWriter
	publisher StatusPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	workers   int
	ready     atomic.Bool
}

// New creates a Pipeline. publisher may be nil to disable status events.
func New(index *domain.GeometryIndex, aligner domain.Aligner, averager domain.Averager,
	writer SeriesWriter, publisher StatusPublisher,
	logger *slog.Logger, metrics *observability.Metrics, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		index:     index,
		aligner:   aligner,
		averager:  averager,
		writer:    writer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		workers:   workers,
	}
}

// CheckReadiness returns nil once the pipeline has finished at least one
// basin, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any basins yet")
	}
	return nil
}

// Run processes every basin and returns the run summary. A basin failure
// never aborts the run; cancellation stops dispatching further basins but
// basins already in flight complete. onDone, if non-nil, is invoked once per
// finished basin from the collector goroutine (progress reporting).
func (p *Pipeline) Run(ctx context.Context, basins []*domain.Basin, onDone func(BasinResult)) *Summary {
	summary := &Summary{Started: time.Now()}
	p.logger.Info("pipeline started",
		"basins", len(basins), "workers", p.workers, "method", p.averager.Name())
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	jobs := make(chan *domain.Basin)
	results := make(chan BasinResult)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				results <- p.processBasin(ctx, b)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, b := range basins {
			select {
			case jobs <- b:
			case <-ctx.Done():
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		summary.Results = append(summary.Results, res)
		p.ready.Store(true)
		if onDone != nil {
			onDone(res)
		}
	}
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].BasinID < summary.Results[j].BasinID
	})

	summary.Finished = time.Now()
	p.logger.Info("pipeline finished",
		"persisted", summary.Persisted(),
		"skipped", summary.Skipped(),
		"elapsed", summary.Finished.Sub(summary.Started))
	return summary
}

// processBasin walks one basin through all stages, converting any stage
// failure into a Skipped result with a recorded reason.
func (p *Pipeline) processBasin(ctx context.Context, b *domain.Basin) BasinResult {
	start := time.Now()

	// Unresolved → StationsAssociated.
	ids, err := p.index.StationsNear(b)
	if err != nil {
		return p.skip(ctx, b, start, fmt.Sprintf("associate stations: %v", err))
	}
	if len(ids) == 0 {
		return p.skip(ctx, b, start, "no stations within basin or buffer")
	}
	for id, dist := range p.index.BufferOnly(b, ids) {
		p.logger.Debug("station in buffer only",
			"basin", b.ID, "station", id, "distance_m", dist)
	}

	series := make(map[string][]domain.Reading, len(ids))
	coords := make(map[string]orb.Point, len(ids))
	for _, id := range ids {
		s, ok := p.index.Station(id)
		if !ok {
			continue
		}
		series[id] = s.Readings
		coords[id] = s.Coord
	}

	// StationsAssociated → Aligned.
	aligned, err := p.aligner.Align(series)
	if err != nil {
		return p.skip(ctx, b, start, fmt.Sprintf("align series: %v", err))
	}

	// Aligned → Averaged.
	areal := domain.BuildArealSeries(b, aligned, coords, p.averager)
	p.metrics.RowsReduced.Add(float64(areal.Aligned.Len()))

	// Averaged → Persisted.
	if err := p.writer.WriteSeries(ctx, b, areal); err != nil {
		return p.skip(ctx, b, start, fmt.Sprintf("persist series: %v", err))
	}

	res := BasinResult{
		BasinID:  b.ID,
		Status:   StatusPersisted,
		Stations: ids,
		Rows:     areal.Aligned.Len(),
		Duration: time.Since(start),
	}
	p.metrics.BasinsPersisted.Inc()
	p.metrics.StationsPerBasin.Observe(float64(len(ids)))
	p.metrics.BasinDuration.Observe(res.Duration.Seconds())
	p.logger.Info("basin persisted",
		"basin", b.ID, "stations", len(ids), "rows", res.Rows, "elapsed", res.Duration)
	p.publish(ctx, res)
	return res
}

// skip builds a terminal Skipped result. Skips are reported, not fatal.
func (p *Pipeline) skip(ctx context.Context, b *domain.Basin, start time.Time, reason string) BasinResult {
	res := BasinResult{
		BasinID:  b.ID,
		Status:   StatusSkipped,
		Reason:   reason,
		Duration: time.Since(start),
	}
	p.metrics.BasinsSkipped.Inc()
	p.logger.Warn("basin skipped", "basin", b.ID, "reason", reason)
	p.publish(ctx, res)
	return res
}

func (p *Pipeline) publish(ctx context.Context, res BasinResult) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishStatus(ctx, res); err != nil {
		p.logger.Warn("publish status failed", "basin", res.BasinID, "error", err)
	}
}
