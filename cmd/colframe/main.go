package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/config"
	"github.com/ajitpratap0/colframe/pkg/engine"
	"github.com/ajitpratap0/colframe/pkg/formats"
	"github.com/ajitpratap0/colframe/pkg/logger"
	"github.com/ajitpratap0/colframe/pkg/metrics"
	"github.com/ajitpratap0/colframe/pkg/observability"
	"github.com/ajitpratap0/colframe/pkg/series"
)

var version = "0.1.0"

// app carries what a command needs once configuration is resolved.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *metrics.Registry
	handler  *formats.Handler
	builder  *series.Builder
	shutdown func(context.Context) error
	timeout  time.Duration
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitTempFail is sysexits' EX_TEMPFAIL: the same command may succeed later.
const exitTempFail = 75

// exitCode maps err to the process exit status. Retryable failures such as
// a timeout exit with exitTempFail so wrapper scripts can retry them.
func exitCode(err error) int {
	if colerrors.IsRetryable(err) {
		return exitTempFail
	}
	return 1
}

func newRootCmd() *cobra.Command {
	a := &app{}
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:   "colframe",
		Short: "colframe - build Arrow columns and convert columnar files",
		Long: `colframe turns nested Go values into typed Arrow columns and moves
frames between CSV, Parquet, Arrow IPC, NDJSON, JSON and Avro files.

Settings come from a YAML file (--config), COLFRAME_* environment
variables and flags, in increasing order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, v, configFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.Bool("trace", false, "Print OpenTelemetry spans to stderr")
	pf.String("metrics-textfile", "", "Write Prometheus metrics to this file when the command finishes")
	pf.DurationVar(&a.timeout, "timeout", 0, "Abort scans and writes after this long (0 disables)")
	_ = v.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("tracing.enabled", pf.Lookup("trace"))
	_ = v.BindPFlag("metrics.textfile", pf.Lookup("metrics-textfile"))

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			// version needs no configuration
			PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
			PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
			Run: func(cmd *cobra.Command, _ []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "colframe v%s\n", version)
				fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
				fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			},
		},
		newSeriesCmd(a),
		newConvertCmd(a),
		newSchemaCmd(a),
	)
	return root
}

// setup resolves the configuration and builds the logger, metrics, tracing
// and the series and format handlers from it.
func (a *app) setup(cmd *cobra.Command, v *viper.Viper, configFile string) error {
	cfg := config.Default()
	if configFile != "" {
		if err := config.Load(configFile, cfg); err != nil {
			return err
		}
	}

	// Defaults make every key known to viper so AutomaticEnv consults the
	// environment for it during Unmarshal.
	for k, val := range flatten(cfg) {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("COLFRAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return err
	}
	a.log = logger.Get().With(zap.String("command", cmd.Name()))

	if cfg.Tracing.Enabled {
		tc := observability.DefaultTracingConfig()
		tc.ServiceVersion = version
		tc.SamplingRate = cfg.Tracing.SampleRate
		shutdown, err := observability.InitTracing(tc)
		if err != nil {
			return err
		}
		a.shutdown = shutdown
	}

	seriesOpts := append(cfg.SeriesOptions(), series.WithLogger(a.log))
	handlerOpts := []formats.Option{formats.WithAllocator(cfg.Allocator()), formats.WithLogger(a.log)}
	if cfg.Metrics.Enabled || cfg.Metrics.Textfile != "" {
		a.registry = metrics.NewRegistry(cfg.Metrics.Namespace)
		collector := a.registry.Collector(cmd.Name())
		seriesOpts = append(seriesOpts, series.WithObserver(collector))
		handlerOpts = append(handlerOpts, formats.WithRecorder(collector))
	}
	a.handler = formats.NewHandler(handlerOpts...)
	a.builder = series.NewBuilder(engine.NewArrow(a.handler.Allocator()), seriesOpts...)
	a.log.Debug("configuration resolved", zap.Any("config", flatten(cfg)))
	return nil
}

// finish exports metrics and flushes spans and logs.
func (a *app) finish(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var firstErr error
	if a.registry != nil && a.cfg.Metrics.Textfile != "" {
		if err := a.registry.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			firstErr = fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = logger.Sync()
	return firstErr
}

// opContext returns the context scans and writes run under.
func (a *app) opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

// flatten lists cfg under the dotted keys viper resolves.
func flatten(cfg *config.Config) map[string]any {
	return map[string]any{
		"series.max_depth":         cfg.Series.MaxDepth,
		"engine.allocator":         cfg.Engine.Allocator,
		"engine.checked_allocator": cfg.Engine.CheckedAllocator,
		"logging.level":            cfg.Logging.Level,
		"logging.encoding":         cfg.Logging.Encoding,
		"logging.development":      cfg.Logging.Development,
		"metrics.enabled":          cfg.Metrics.Enabled,
		"metrics.namespace":        cfg.Metrics.Namespace,
		"metrics.textfile":         cfg.Metrics.Textfile,
		"tracing.enabled":          cfg.Tracing.Enabled,
		"tracing.sample_rate":      cfg.Tracing.SampleRate,
	}
}
