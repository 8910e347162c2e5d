package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	// Areal averaging.
	Method         string  // arithmetic | thiessen | idw
	IDWPower       float64 // IDW power parameter, default 2
	IDWGridSpacing float64 // metres; 0 selects centroid mode
	BufferDistance float64 // station-selection buffer in metres
	AxisPolicy     string  // union | intersection

	// Inputs and outputs.
	StationsCSV   string
	ReadingsDir   string
	BasinsGeoJSON string
	OutputDir     string
	OutputFormat  string // csv | netcdf
	StationCoords string // projected | latlon

	// Execution.
	Workers         int
	HTTPAddr        string // empty disables the metrics server
	ShutdownTimeout time.Duration

	// Optional Kafka status events.
	KafkaBrokers     []string
	KafkaStatusTopic string
	KafkaEnabled     bool

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	idwPower, err := parsePositiveFloat("IDW_POWER", 2)
	if err != nil {
		return nil, err
	}
	gridSpacing, err := parseNonNegativeFloat("IDW_GRID_SPACING_M", 500)
	if err != nil {
		return nil, err
	}
	buffer, err := parseNonNegativeFloat("BUFFER_DISTANCE_M", 2000)
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		Method:         envOrDefault("AREAL_METHOD", "arithmetic"),
		IDWPower:       idwPower,
		IDWGridSpacing: gridSpacing,
		BufferDistance: buffer,
		AxisPolicy:     envOrDefault("AXIS_POLICY", "union"),

		StationsCSV:   os.Getenv("STATIONS_CSV"),
		ReadingsDir:   os.Getenv("READINGS_DIR"),
		BasinsGeoJSON: os.Getenv("BASINS_GEOJSON"),
		OutputDir:     os.Getenv("OUTPUT_DIR"),
		OutputFormat:  envOrDefault("OUTPUT_FORMAT", "csv"),
		StationCoords: envOrDefault("STATION_COORDS", "projected"),

		Workers:         workers,
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:     brokers,
		KafkaStatusTopic: envOrDefault("KAFKA_STATUS_TOPIC", "basin-rainfall-status"),
		KafkaEnabled:     kafkaEnabled,

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
	}

	switch cfg.Method {
	case "arithmetic", "thiessen", "idw":
	default:
		return nil, fmt.Errorf("unknown AREAL_METHOD %q (want arithmetic, thiessen, or idw)", cfg.Method)
	}
	switch cfg.AxisPolicy {
	case "union", "intersection":
	default:
		return nil, fmt.Errorf("unknown AXIS_POLICY %q (want union or intersection)", cfg.AxisPolicy)
	}
	switch cfg.OutputFormat {
	case "csv", "netcdf":
	default:
		return nil, fmt.Errorf("unknown OUTPUT_FORMAT %q (want csv or netcdf)", cfg.OutputFormat)
	}
	switch cfg.StationCoords {
	case "projected", "latlon":
	default:
		return nil, fmt.Errorf("unknown STATION_COORDS %q (want projected or latlon)", cfg.StationCoords)
	}
	if cfg.StationsCSV == "" {
		return nil, errors.New("STATIONS_CSV is required")
	}
	if cfg.ReadingsDir == "" {
		return nil, errors.New("READINGS_DIR is required")
	}
	if cfg.BasinsGeoJSON == "" {
		return nil, errors.New("BASINS_GEOJSON is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}

func parseNonNegativeFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}
