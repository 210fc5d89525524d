// Package config provides the configuration for colframe: builder limits,
// the Arrow allocator, logging, metrics and tracing.
//
// The configuration is organized into sections:
//   - Series: nesting bound for column builds
//   - Engine: which Arrow allocator backs the columns
//   - Logging: zap level and encoding
//   - Metrics: Prometheus namespace and textfile export
//   - Tracing: OpenTelemetry stdout exporter
//
// Example usage:
//
//	cfg := config.Default()
//	if err := config.Load("colframe.yaml", cfg); err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/logger"
	"github.com/ajitpratap0/colframe/pkg/series"
)

// Config is the complete colframe configuration. Tags serve both the YAML
// loader and viper's mapstructure decoding in the CLI.
type Config struct {
	Series  SeriesConfig  `yaml:"series" mapstructure:"series"`
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// SeriesConfig bounds column builds.
type SeriesConfig struct {
	// MaxDepth is the deepest list nesting a build accepts
	MaxDepth int `yaml:"max_depth" mapstructure:"max_depth"`
}

// EngineConfig selects the Arrow allocator.
type EngineConfig struct {
	// Allocator is "go" (a fresh Go allocator) or "default" (arrow's shared default)
	Allocator string `yaml:"allocator" mapstructure:"allocator"`
	// CheckedAllocator wraps the allocator to track outstanding bytes
	CheckedAllocator bool `yaml:"checked_allocator" mapstructure:"checked_allocator"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	// Textfile, when set, receives the metrics when a command finishes
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// TracingConfig controls the OpenTelemetry stdout exporter.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Series: SeriesConfig{MaxDepth: series.DefaultMaxDepth},
		Engine: EngineConfig{Allocator: "go"},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
		Metrics: MetricsConfig{Namespace: "colframe"},
		Tracing: TracingConfig{SampleRate: 1.0},
	}
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	if c.Series.MaxDepth < 1 {
		return colerrors.Newf(colerrors.ErrorTypeConfig, "series.max_depth must be positive, got %d", c.Series.MaxDepth)
	}
	switch c.Engine.Allocator {
	case "go", "default":
	default:
		return colerrors.Newf(colerrors.ErrorTypeConfig, "engine.allocator must be go or default, got %q", c.Engine.Allocator)
	}
	switch c.Logging.Encoding {
	case "json", "console":
	default:
		return colerrors.Newf(colerrors.ErrorTypeConfig, "logging.encoding must be json or console, got %q", c.Logging.Encoding)
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return colerrors.Wrap(err, colerrors.ErrorTypeConfig, "logging.level")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return colerrors.New(colerrors.ErrorTypeConfig, "metrics.namespace is required when metrics are enabled")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return colerrors.Newf(colerrors.ErrorTypeConfig, "tracing.sample_rate must be within [0, 1], got %g", c.Tracing.SampleRate)
	}
	return nil
}

// Allocator builds the Arrow allocator described by the Engine section.
func (c *Config) Allocator() memory.Allocator {
	var mem memory.Allocator = memory.DefaultAllocator
	if c.Engine.Allocator == "go" {
		mem = memory.NewGoAllocator()
	}
	if c.Engine.CheckedAllocator {
		mem = memory.NewCheckedAllocator(mem)
	}
	return mem
}

// LoggerConfig converts the Logging section for logger.Init.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Logging.Level,
		Encoding:    c.Logging.Encoding,
		Development: c.Logging.Development,
	}
}

// SeriesOptions returns the builder options implied by the configuration.
func (c *Config) SeriesOptions() []series.Option {
	return []series.Option{series.WithMaxDepth(c.Series.MaxDepth)}
}
