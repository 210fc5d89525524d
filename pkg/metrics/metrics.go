// Package metrics records column builds and file I/O as Prometheus metrics.
//
// # Overview
//
// The metrics package provides:
//   - A Registry owning the colframe metric vectors
//   - Collectors labelled per component, which plug into series.Builder as
//     an Observer and into the formats package as a Recorder
//   - A Timer for ad hoc durations
//   - Textfile export for one-shot CLI runs
//
// # Basic Usage
//
//	reg := metrics.NewRegistry("colframe")
//	c := reg.Collector("cli")
//	b := series.NewBuilder(eng, series.WithObserver(c))
//	...
//	_ = reg.WriteTextfile("/var/lib/node_exporter/colframe.prom")
//
// # Metric Types
//
// Counter: columns built, build failures, rows read and written
// Histogram: build latency in seconds
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/colframe/pkg/series"
)

// Registry holds the metric vectors of one process or test.
type Registry struct {
	reg *prometheus.Registry

	columnsBuilt  *prometheus.CounterVec
	rowsBuilt     *prometheus.CounterVec
	buildFailures *prometheus.CounterVec
	buildLatency  *prometheus.HistogramVec
	rowsRead      *prometheus.CounterVec
	rowsWritten   *prometheus.CounterVec
}

// NewRegistry creates the metric vectors under namespace on a fresh
// Prometheus registry, together with the Go runtime collector.
func NewRegistry(namespace string) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		// Labels: component, kind (top-level column kind)
		columnsBuilt: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_built_total",
			Help:      "Total number of columns built",
		}, []string{"component", "kind"}),
		rowsBuilt: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_built_total",
			Help:      "Total number of top-level rows turned into columns",
		}, []string{"component", "kind"}),
		// Labels: component, reason (error kind, e.g. inconsistent_type)
		buildFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_failures_total",
			Help:      "Total number of failed column builds",
		}, []string{"component", "reason"}),
		buildLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Column build latency in seconds",
			Buckets: []float64{
				1e-6, // 1μs - single scalar
				1e-5,
				1e-4,
				1e-3, // 1ms - thousands of scalars
				1e-2,
				1e-1,
				1, // 1s - large nested inputs
			},
		}, []string{"component", "kind"}),
		rowsRead: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total number of rows scanned from files",
		}, []string{"component", "format"}),
		rowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Total number of rows written to files",
		}, []string{"component", "format"}),
	}
}

// Gatherer exposes the registry for HTTP handlers and tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes every metric in the text exposition format, for the
// node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

// Collector returns a Collector labelling everything with component.
func (r *Registry) Collector(component string) *Collector {
	return &Collector{name: component, r: r, startTime: time.Now()}
}

// Collector records metrics for one component. It is safe for concurrent use.
type Collector struct {
	name      string
	r         *Registry
	startTime time.Time
}

var _ series.Observer = (*Collector)(nil)

// ColumnBuilt implements series.Observer.
func (c *Collector) ColumnBuilt(kind string, rows int, elapsed time.Duration) {
	c.r.columnsBuilt.WithLabelValues(c.name, kind).Inc()
	c.r.rowsBuilt.WithLabelValues(c.name, kind).Add(float64(rows))
	c.r.buildLatency.WithLabelValues(c.name, kind).Observe(elapsed.Seconds())
}

// BuildFailed implements series.Observer.
func (c *Collector) BuildFailed(reason string) {
	c.r.buildFailures.WithLabelValues(c.name, reason).Inc()
}

// RowsRead records rows scanned from a file of the given format.
func (c *Collector) RowsRead(format string, rows int) {
	c.r.rowsRead.WithLabelValues(c.name, format).Add(float64(rows))
}

// RowsWritten records rows written to a file of the given format.
func (c *Collector) RowsWritten(format string, rows int) {
	c.r.rowsWritten.WithLabelValues(c.name, format).Add(float64(rows))
}

// Uptime returns how long the collector has existed.
func (c *Collector) Uptime() time.Duration { return time.Since(c.startTime) }

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
//
// Example:
//
//	timer := metrics.NewTimer("write_parquet")
//	err := formats.WriteParquet(ctx, f, path, opts)
//	logger.Info("written", zap.String("op", timer.Name()), zap.Duration("duration", timer.Stop()))
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It can be called
// multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
