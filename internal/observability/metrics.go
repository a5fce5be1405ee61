package observability

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "wfc_ingest"

// Metrics holds the run counters. A nil *Metrics records nothing.
//
// The counters live on a private registry: a run is a short batch job with
// no scrape endpoint, so they are pushed to a gateway when one is configured.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	filesTotal    *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	recordsTotal  prometheus.Counter
	warningsTotal prometheus.Counter
	lastSuccess   prometheus.Gauge
	runDuration   prometheus.Histogram
}

// NewMetrics registers the run counters on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of ingest runs by outcome.",
		}, []string{"result"}),
		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files considered by ingest runs, by outcome.",
		}, []string{"result"}),
		failuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_failures_total",
			Help:      "Files rejected by a run, by error kind.",
		}, []string{"kind"}),
		recordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_appended_total",
			Help:      "Records appended to the store.",
		}),
		warningsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_quality_warnings_total",
			Help:      "Cells read as missing because they could not be interpreted.",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of ingest runs.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
	}
}

// Registry exposes the private registry, for pushing and for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RunFinished records a run outcome ("ok", "failed", "locked").
func (m *Metrics) RunFinished(result string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(seconds)
	if result == "ok" {
		m.lastSuccess.SetToCurrentTime()
	}
}

// FileProcessed records one file outcome ("ingested", "skipped", "failed").
func (m *Metrics) FileProcessed(result string) {
	if m == nil {
		return
	}
	m.filesTotal.WithLabelValues(result).Inc()
}

// FileFailed records a rejected file by error kind.
func (m *Metrics) FileFailed(kind string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(kind).Inc()
}

// RecordsAppended adds n appended records.
func (m *Metrics) RecordsAppended(n int) {
	if m == nil {
		return
	}
	m.recordsTotal.Add(float64(n))
}

// Warnings adds n data quality warnings.
func (m *Metrics) Warnings(n int) {
	if m == nil {
		return
	}
	m.warningsTotal.Add(float64(n))
}

// Push sends the registry to a Prometheus push gateway. An empty URL is a no-op.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return errors.Wrap(err, "push metrics")
	}
	return nil
}
