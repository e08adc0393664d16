// Package metrics exposes Prometheus collectors for the poller and pushes
// them to a Pushgateway after each cycle.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "exurl_archiver"

// Options configures a Metrics instance.
type Options struct {
	Namespace string
	// PushURL is the Pushgateway base URL. Push is a no-op when empty.
	PushURL string
	// Job is the Pushgateway job label.
	Job string
	// Registry defaults to a fresh registry.
	Registry *prometheus.Registry
}

// Metrics implements archiver.Metrics on a Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry
	pusher   *push.Pusher

	polls           prometheus.Counter
	candidates      *prometheus.CounterVec
	fetchErrors     *prometheus.CounterVec
	notifyFailures  prometheus.Counter
	cycleDuration   prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

var _ archiver.Metrics = (*Metrics)(nil)

// New registers the poller collectors.
func New(opts Options) *Metrics {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(opts.Registry)

	m := &Metrics{
		registry: opts.Registry,
		polls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "db_polls_total",
			Help:      "Total number of completed database poll cycles.",
		}),
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "candidates_total",
			Help:      "Candidate URLs processed, labeled by origin table and save result.",
		}, []string{"table", "result"}),
		fetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed row fetches, labeled by table.",
		}, []string{"table"}),
		notifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "notify_failures_total",
			Help:      "Failed downstream notifications.",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Histogram of poll cycle durations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of ops HTTP requests, labeled by method and route.",
		}, []string{"method", "route"}),
		httpRequestTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of ops HTTP request latencies, labeled by method and route.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"}),
	}
	if opts.PushURL != "" {
		job := opts.Job
		if job == "" {
			job = opts.Namespace
		}
		m.pusher = push.New(opts.PushURL, job).Gatherer(opts.Registry)
	}
	return m
}

// ObservePoll increments the poll counter.
func (m *Metrics) ObservePoll() { m.polls.Inc() }

// ObserveCandidate counts one save outcome.
func (m *Metrics) ObserveCandidate(table archiver.OriginTable, result string) {
	m.candidates.WithLabelValues(string(table), result).Inc()
}

// ObserveFetchError counts a failed batch fetch.
func (m *Metrics) ObserveFetchError(table archiver.OriginTable) {
	m.fetchErrors.WithLabelValues(string(table)).Inc()
}

// ObserveNotifyFailure counts a failed notification.
func (m *Metrics) ObserveNotifyFailure() { m.notifyFailures.Inc() }

// ObserveCycleDuration records how long a cycle took.
func (m *Metrics) ObserveCycleDuration(d time.Duration) {
	m.cycleDuration.Observe(d.Seconds())
}

// ObserveHTTPRequest records one ops server request.
func (m *Metrics) ObserveHTTPRequest(method, route string, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route).Inc()
	m.httpRequestTime.WithLabelValues(method, route).Observe(d.Seconds())
}

// Push sends the registry to the Pushgateway, replacing the job's metrics.
func (m *Metrics) Push(ctx context.Context) error {
	if m.pusher == nil {
		return nil
	}
	if err := m.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an http.Handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Noop discards every observation.
type Noop struct{}

var _ archiver.Metrics = Noop{}

func (Noop) ObservePoll() {}
func (Noop) ObserveCandidate(archiver.OriginTable, string) {}
func (Noop) ObserveFetchError(archiver.OriginTable) {}
func (Noop) ObserveNotifyFailure() {}
func (Noop) ObserveCycleDuration(time.Duration) {}
func (Noop) Push(context.Context) error { return nil }
