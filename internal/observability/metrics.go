package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	commandsTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	pushDelivered prometheus.Counter
}

// NewMetrics builds the collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "equipdesk_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "equipdesk_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "equipdesk_ticket_commands_total",
			Help: "Ticket lifecycle commands by command and outcome.",
		}, []string{"command", "outcome"}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "equipdesk_request_errors_total",
			Help: "Request errors by domain error code.",
		}, []string{"code"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "equipdesk_cache_lookups_total",
			Help: "Cache lookups by result (hit, stale, miss).",
		}, []string{"result"}),
		pushDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "equipdesk_push_snapshots_delivered_total",
			Help: "Snapshots delivered to push subscribers.",
		}),
	}
}

// Registry returns the backing registry for the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest counts one completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordCommand counts one lifecycle command attempt.
func (m *Metrics) RecordCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
}

// RecordError counts one request rejected with a domain error code.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(code).Inc()
}

// CacheLookupHook adapts the cache's lookup hook to the counters.
func (m *Metrics) CacheLookupHook() func(result string) {
	return func(result string) {
		if m == nil {
			return
		}
		m.cacheLookups.WithLabelValues(result).Inc()
	}
}

// PushDeliveryHook adapts the hub's delivery hook to the counter.
func (m *Metrics) PushDeliveryHook() func() {
	return func() {
		if m == nil {
			return
		}
		m.pushDelivered.Inc()
	}
}
