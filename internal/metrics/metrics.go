// Package metrics exposes the service's Prometheus instruments. A nil
// *Metrics is valid and records nothing, which keeps tests free of
// registry plumbing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfolio"

// Limiter decision labels.
const (
	DecisionAllowed  = "allowed"
	DecisionDenied   = "denied"
	DecisionExempt   = "exempt"
	DecisionFailOpen = "fail_open"
)

type Metrics struct {
	registry *prometheus.Registry

	LifecycleOps      *prometheus.CounterVec // portfolio_lifecycle_operations_total{operation,data_type}
	LimiterDecisions  *prometheus.CounterVec // portfolio_comment_limiter_decisions_total{decision}
	ReaperRuns        *prometheus.CounterVec // portfolio_reaper_runs_total{result}
	ReaperPurged      prometheus.Counter
	ImageNormalized   *prometheus.CounterVec // portfolio_image_normalizations_total{result}
	EventsRelayed     *prometheus.CounterVec // portfolio_events_relayed_total{result}
	RecycleBinEntries prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec   // portfolio_http_requests_total{method,route,status}
	HTTPDuration      *prometheus.HistogramVec // portfolio_http_request_duration_seconds{method,route}
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		LifecycleOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_operations_total",
			Help:      "Recycle bin transitions by operation and data type.",
		}, []string{"operation", "data_type"}),
		LimiterDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comment_limiter_decisions_total",
			Help:      "Comment rate limiter outcomes.",
		}, []string{"decision"}),
		ReaperRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_runs_total",
			Help:      "Expiry sweeps by result.",
		}, []string{"result"}),
		ReaperPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_purged_entries_total",
			Help:      "Recycle bin entries removed by the expiry sweep.",
		}),
		ImageNormalized: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_normalizations_total",
			Help:      "Image normalization attempts by result.",
		}, []string{"result"}),
		EventsRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_relayed_total",
			Help:      "Change events forwarded to Redis by result.",
		}, []string{"result"}),
		RecycleBinEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recycle_bin_entries",
			Help:      "Entries in the recycle bin after the last listing or sweep.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Lifecycle(operation string, dataType string) {
	if m == nil {
		return
	}
	m.LifecycleOps.WithLabelValues(operation, dataType).Inc()
}

func (m *Metrics) LimiterDecision(decision string) {
	if m == nil {
		return
	}
	m.LimiterDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) ReaperRun(purged int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ReaperRuns.WithLabelValues("error").Inc()
		return
	}
	m.ReaperRuns.WithLabelValues("ok").Inc()
	m.ReaperPurged.Add(float64(purged))
}

func (m *Metrics) ImageNormalization(result string) {
	if m == nil {
		return
	}
	m.ImageNormalized.WithLabelValues(result).Inc()
}

func (m *Metrics) EventRelayed(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.EventsRelayed.WithLabelValues("ok").Inc()
		return
	}
	m.EventsRelayed.WithLabelValues("error").Inc()
}

// ObserveRequest takes the route pattern rather than the raw path so ids
// do not explode label cardinality.
func (m *Metrics) ObserveRequest(method string, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) SetRecycleBinSize(n int64) {
	if m == nil {
		return
	}
	m.RecycleBinEntries.Set(float64(n))
}
