package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Bounds used by validation.
const (
	maxMetricColumn = 13
	minDPI          = 10
	maxDPI          = 1200
)

// Config holds all xdsref settings.
type Config struct {
	Scan      ScanConfig      `mapstructure:"scan"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Rank      RankConfig      `mapstructure:"rank"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Reprocess ReprocessConfig `mapstructure:"reprocess"`
	Plot      PlotConfig      `mapstructure:"plot"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ScanConfig selects the files collected for unit cell statistics.
type ScanConfig struct {
	Pattern string `mapstructure:"pattern"`
}

// StatsConfig controls summary log aggregation.
type StatsConfig struct {
	SkipMalformed bool `mapstructure:"skip_malformed"`
}

// RankConfig controls reference ranking.
type RankConfig struct {
	Pattern      string `mapstructure:"pattern"`
	MetricColumn int    `mapstructure:"metric_column"`
	Workers      int    `mapstructure:"workers"`
	Top          int    `mapstructure:"top"`
}

// ReferenceConfig controls reference synthesis.
type ReferenceConfig struct {
	// Output is the reference file; relative paths resolve against the root.
	Output string `mapstructure:"output"`
	// Source overrides the reflection file the reference is built from.
	// Empty derives it from the selected dataset.
	Source string `mapstructure:"source"`
}

// ReprocessConfig holds the reprocessing script invocation.
type ReprocessConfig struct {
	Script       string        `mapstructure:"script"`
	Resolution   string        `mapstructure:"resolution"`
	ISigCut      string        `mapstructure:"i_sig_cut"`
	TemplateHost string        `mapstructure:"template_host"`
	AutoProc     bool          `mapstructure:"autoproc"`
	Anom         bool          `mapstructure:"anom"`
	SkipDone     bool          `mapstructure:"skipdone"`
	Grace        time.Duration `mapstructure:"grace"`
}

// PlotConfig controls the plot page.
type PlotConfig struct {
	DPI   int    `mapstructure:"dpi"`
	Theme string `mapstructure:"theme"`
	Bins  int    `mapstructure:"bins"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig controls tracing and metrics export.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// Sentinel validation errors.
var (
	// ErrInvalidPattern indicates a file pattern that is empty or contains a path separator.
	ErrInvalidPattern = errors.New("pattern must be a plain file name")
	// ErrInvalidMetricColumn indicates a metric column outside the statistics table.
	ErrInvalidMetricColumn = errors.New("rank.metric_column must be between 0 and 13")
	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = errors.New("rank.workers must be non-negative")
	// ErrInvalidTop indicates a non-positive ranking list length.
	ErrInvalidTop = errors.New("rank.top must be positive")
	// ErrInvalidOutput indicates an empty reference output.
	ErrInvalidOutput = errors.New("reference.output must not be empty")
	// ErrInvalidGrace indicates a negative stop grace period.
	ErrInvalidGrace = errors.New("reprocess.grace must be non-negative")
	// ErrInvalidDPI indicates a DPI outside the supported range.
	ErrInvalidDPI = errors.New("plot.dpi must be between 10 and 1200")
	// ErrInvalidTheme indicates an unknown plot theme.
	ErrInvalidTheme = errors.New("plot.theme must be light or dark")
	// ErrInvalidBins indicates a non-positive histogram bin count.
	ErrInvalidBins = errors.New("plot.bins must be positive")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
)

// Validate checks every section.
func (c *Config) Validate() error {
	scanErr := c.validateScan()
	if scanErr != nil {
		return scanErr
	}

	rankErr := c.validateRank()
	if rankErr != nil {
		return rankErr
	}

	outputErr := c.validateOutputs()
	if outputErr != nil {
		return outputErr
	}

	_, levelErr := ParseLevel(c.Logging.Level)

	return levelErr
}

func (c *Config) validateScan() error {
	return validatePattern("scan.pattern", c.Scan.Pattern)
}

func (c *Config) validateRank() error {
	patternErr := validatePattern("rank.pattern", c.Rank.Pattern)
	if patternErr != nil {
		return patternErr
	}

	if c.Rank.MetricColumn < 0 || c.Rank.MetricColumn > maxMetricColumn {
		return fmt.Errorf("%w: %d", ErrInvalidMetricColumn, c.Rank.MetricColumn)
	}

	if c.Rank.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Rank.Workers)
	}

	if c.Rank.Top <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTop, c.Rank.Top)
	}

	return nil
}

func (c *Config) validateOutputs() error {
	if strings.TrimSpace(c.Reference.Output) == "" {
		return ErrInvalidOutput
	}

	if c.Reprocess.Grace < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidGrace, c.Reprocess.Grace)
	}

	if c.Plot.DPI < minDPI || c.Plot.DPI > maxDPI {
		return fmt.Errorf("%w: %d", ErrInvalidDPI, c.Plot.DPI)
	}

	if c.Plot.Theme != "light" && c.Plot.Theme != "dark" {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, c.Plot.Theme)
	}

	if c.Plot.Bins <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBins, c.Plot.Bins)
	}

	return nil
}

func validatePattern(key, pattern string) error {
	if strings.TrimSpace(pattern) == "" || strings.ContainsAny(pattern, `/\`) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidPattern, key, pattern)
	}

	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}
}
