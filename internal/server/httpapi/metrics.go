package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	// auth outcomes by operation: callback, refresh, logout, unlink
	authEvents *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orbit",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "auth_events_total",
			Help:      "Auth operations by outcome.",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(m.requests, m.duration, m.authEvents)
	return m
}

func (m *Metrics) authEvent(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.authEvents.WithLabelValues(op, outcome).Inc()
}
