package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/atomstore/pkg/reactive"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "atomstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for propagation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the propagation duration buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "atomstore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a reactive.Observer that records store activity as Prometheus
// metrics.
//
// Metrics collected:
//   - atomstore_cells: Gauge of registered cells
//   - atomstore_cells_created_total: Counter of created cells by kind
//   - atomstore_writes_total: Counter of caller writes by op
//   - atomstore_rebuilds_total: Counter of build function runs by status
//   - atomstore_rebuild_depth: Histogram of propagation depth per rebuild
//   - atomstore_propagations_total: Counter of propagation walks by status
//   - atomstore_propagation_duration_seconds: Histogram of walk duration
//   - atomstore_propagation_rebuilds: Histogram of rebuilds per walk
//   - atomstore_undos_total: Counter of undo calls by result
//   - atomstore_errors_total: Counter of failed rebuilds and walks by code
//
// Like the store it observes, a Metrics value must not be shared between
// goroutines without external locking. Registering two Metrics on the same
// registry panics.
type Metrics struct {
	cells               prometheus.Gauge
	cellsCreated        *prometheus.CounterVec
	writesTotal         *prometheus.CounterVec
	rebuildsTotal       *prometheus.CounterVec
	rebuildDepth        prometheus.Histogram
	propagationsTotal   *prometheus.CounterVec
	propagationDuration prometheus.Histogram
	propagationRebuilds prometheus.Histogram
	undosTotal          *prometheus.CounterVec
	errorsTotal         *prometheus.CounterVec

	// started holds the start time of each open propagation, innermost last.
	started []time.Time
}

// NewMetrics creates the metrics and registers them.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	s := reactive.NewStore(reactive.WithObserver(observe.NewMetrics(observe.WithRegistry(reg))))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		cells: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cells",
			Help:        "Number of registered cells",
			ConstLabels: config.ConstLabels,
		}),

		cellsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cells_created_total",
			Help:        "Total number of cells created",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		writesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of committed atom writes",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		rebuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rebuilds_total",
			Help:        "Total number of computed build function runs",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		rebuildDepth: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rebuild_depth",
			Help:        "Propagation depth at which computeds were rebuilt",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),

		propagationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "propagations_total",
			Help:        "Total number of propagation walks",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		propagationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "propagation_duration_seconds",
			Help:        "Propagation walk duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		propagationRebuilds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "propagation_rebuilds",
			Help:        "Computeds rebuilt per propagation walk",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),

		undosTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "undos_total",
			Help:        "Total number of undo calls by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of failed rebuilds and propagations by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"stage", "code"}),
	}
}

func (m *Metrics) CellCreated(_ string, kind reactive.Kind) {
	m.cells.Inc()
	m.cellsCreated.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) Written(_, op string) {
	m.writesTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) PropagationStarted(string) {
	m.started = append(m.started, time.Now())
}

func (m *Metrics) RebuildStarted(string, string, int) {}

func (m *Metrics) RebuildFinished(_ string, depth int, _ bool, err error) {
	m.rebuildDepth.Observe(float64(depth))
	if err != nil {
		m.rebuildsTotal.WithLabelValues("error").Inc()
		m.errorsTotal.WithLabelValues("rebuild", errorCode(err)).Inc()
		return
	}
	m.rebuildsTotal.WithLabelValues("success").Inc()
}

func (m *Metrics) PropagationFinished(_ string, rebuilds int, err error) {
	if n := len(m.started); n > 0 {
		m.propagationDuration.Observe(time.Since(m.started[n-1]).Seconds())
		m.started = m.started[:n-1]
	}
	m.propagationRebuilds.Observe(float64(rebuilds))

	if err != nil {
		m.propagationsTotal.WithLabelValues("error").Inc()
		m.errorsTotal.WithLabelValues("propagate", errorCode(err)).Inc()
		return
	}
	m.propagationsTotal.WithLabelValues("success").Inc()
}

func (m *Metrics) Undone(_ string, restored bool) {
	result := "baseline"
	if restored {
		result = "restored"
	}
	m.undosTotal.WithLabelValues(result).Inc()
}

// Reset sets the cell gauge back to zero, for use after Store.Close.
func (m *Metrics) Reset() {
	m.cells.Set(0)
}

// errorCode returns a low-cardinality label for err. Errors returned by a
// build function itself are "user".
func errorCode(err error) string {
	if code, ok := reactive.CodeOf(err); ok {
		return string(code)
	}
	return "user"
}
