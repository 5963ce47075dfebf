package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records what the loader does with archives and payloads.
type Metrics interface {
	ObserveInspection(category, reason string, durationSeconds float64)
	IncHandoff(category, environment, result string)
}

// GatewayMetrics captures request metrics for the HTTP API.
type GatewayMetrics interface {
	ObserveRequest(method, route, status string, durationSeconds float64)
}

// Noop implements Metrics and GatewayMetrics without emitting anything.
type Noop struct{}

func (Noop) ObserveInspection(string, string, float64)      {}
func (Noop) IncHandoff(string, string, string)              {}
func (Noop) ObserveRequest(string, string, string, float64) {}

// Prom implements Metrics and GatewayMetrics backed by Prometheus.
type Prom struct {
	inspections      *prometheus.CounterVec
	inspectDuration  *prometheus.HistogramVec
	handoffs         *prometheus.CounterVec
	requests         *prometheus.CounterVec
	requestDurations *prometheus.HistogramVec
	once             sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		inspections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_inspections_total",
			Help:      "Archive inspections by category and outcome reason",
		}, []string{"category", "reason"}),
		inspectDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_inspection_seconds",
			Help:      "Archive inspection latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		handoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_handoffs_total",
			Help:      "Payload handoffs by category, environment and result",
		}, []string{"category", "environment", "result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.inspections, p.inspectDuration, p.handoffs, p.requests, p.requestDurations)
	})
}

func (p *Prom) ObserveInspection(category, reason string, durationSeconds float64) {
	p.inspections.WithLabelValues(category, reason).Inc()
	p.inspectDuration.WithLabelValues(category).Observe(durationSeconds)
}

func (p *Prom) IncHandoff(category, environment, result string) {
	p.handoffs.WithLabelValues(category, environment, result).Inc()
}

func (p *Prom) ObserveRequest(method, route, status string, durationSeconds float64) {
	p.requests.WithLabelValues(method, route, status).Inc()
	p.requestDurations.WithLabelValues(method, route).Observe(durationSeconds)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
