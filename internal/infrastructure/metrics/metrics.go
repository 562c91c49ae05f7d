package metrics

import (
	"strconv"
	"time"

	"invoicing-service/internal/unitofwork"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. It implements unitofwork.Observer.
type Metrics struct {
	uowEvents    *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ unitofwork.Observer = (*Metrics)(nil)

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uowEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "invoicing",
				Subsystem: "uow",
				Name:      "events_total",
				Help:      "Unit of work lifecycle events.",
			},
			[]string{"label", "event"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "invoicing",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "invoicing",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	reg.MustRegister(m.uowEvents, m.httpRequests, m.httpDuration)
	return m
}

func (m *Metrics) Observe(label string, ev unitofwork.Event) {
	m.uowEvents.WithLabelValues(label, string(ev)).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	s := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, route, s).Inc()
	m.httpDuration.WithLabelValues(method, route, s).Observe(d.Seconds())
}
