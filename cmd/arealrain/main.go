// Command arealrain computes basin-average precipitation series from a
// rain-gauge network: it associates gauges to basins by buffered containment,
// aligns their hourly series onto one canonical grid, reduces each timestamp
// with the configured areal estimator, and persists one series per basin.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gosuri/uiprogress"

	"github.com/hydroflux/basin-rain-etl/internal/adapter/basingeo"
	"github.com/hydroflux/basin-rain-etl/internal/adapter/csvout"
	"github.com/hydroflux/basin-rain-etl/internal/adapter/gaugecsv"
	httpadapter "github.com/hydroflux/basin-rain-etl/internal/adapter/http"
	kafkaadapter "github.com/hydroflux/basin-rain-etl/internal/adapter/kafka"
	"github.com/hydroflux/basin-rain-etl/internal/adapter/ncout"
	"github.com/hydroflux/basin-rain-etl/internal/config"
	"github.com/hydroflux/basin-rain-etl/internal/domain"
	"github.com/hydroflux/basin-rain-etl/internal/observability"
	"github.com/hydroflux/basin-rain-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	loader := gaugecsv.New(cfg.StationsCSV, cfg.ReadingsDir, cfg.StationCoords, logger)
	stations, err := loader.LoadNetwork()
	if err != nil {
		logger.Error("failed to load gauge network", "error", err)
		os.Exit(1)
	}
	basins, err := basingeo.LoadBasins(cfg.BasinsGeoJSON, cfg.BufferDistance)
	if err != nil {
		logger.Error("failed to load basins", "error", err)
		os.Exit(1)
	}
	logger.Info("inputs loaded", "stations", len(stations), "basins", len(basins))

	csvWriter, err := csvout.NewWriter(cfg.OutputDir)
	if err != nil {
		logger.Error("failed to prepare output dir", "error", err)
		os.Exit(1)
	}
	var writer pipeline.SeriesWriter = csvWriter
	if cfg.OutputFormat == "netcdf" {
		writer, err = ncout.NewWriter(cfg.OutputDir)
		if err != nil {
			logger.Error("failed to prepare output dir", "error", err)
			os.Exit(1)
		}
	}

	var publisher pipeline.StatusPublisher
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaStatusTopic, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = kp
		logger.Info("kafka status events enabled", "topic", cfg.KafkaStatusTopic)
	}

	index := domain.NewGeometryIndex(stations)
	aligner := domain.Aligner{Policy: axisPolicy(cfg)}
	p := pipeline.New(index, aligner, averager(cfg), writer, publisher, logger, metrics, cfg.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	uiprogress.Start()
	bar := uiprogress.AddBar(len(basins)).AppendCompleted().PrependElapsed()
	summary := p.Run(ctx, basins, func(pipeline.BasinResult) { bar.Incr() })
	uiprogress.Stop()

	if err := csvWriter.WriteAssociations(summary.Results); err != nil {
		logger.Error("failed to write association audit", "error", err)
	}

	printSummary(summary)
	if summary.Persisted() == 0 {
		os.Exit(1)
	}
}

// printSummary enumerates basins by terminal status so an operator can audit
// coverage gaps without trawling logs.
func printSummary(s *pipeline.Summary) {
	fmt.Printf("\n%d basins persisted, %d skipped (%s elapsed)\n",
		s.Persisted(), s.Skipped(), s.Finished.Sub(s.Started).Round(10*time.Millisecond))
	for _, res := range s.Results {
		if res.Status == pipeline.StatusSkipped {
			fmt.Printf("  skipped %-12s %s\n", res.BasinID, res.Reason)
		}
	}
}

func averager(cfg *config.Config) domain.Averager {
	switch cfg.Method {
	case "thiessen":
		return domain.Thiessen{}
	case "idw":
		return domain.IDW{Power: cfg.IDWPower, GridSpacing: cfg.IDWGridSpacing}
	default:
		return domain.Arithmetic{}
	}
}

func axisPolicy(cfg *config.Config) domain.AxisPolicy {
	if cfg.AxisPolicy == "intersection" {
		return domain.AxisIntersection
	}
	return domain.AxisUnion
}
