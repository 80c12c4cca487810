// Package metrics exposes fleetglint's Prometheus collectors on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters, gauges and histograms for fleetglint.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry                 *prometheus.Registry
	ingestReportsTotal       *prometheus.CounterVec
	ingestDurationSeconds    prometheus.Histogram
	alertTransitionsTotal    *prometheus.CounterVec
	commandTransitionsTotal  *prometheus.CounterVec
	notifySentTotal          *prometheus.CounterVec
	rateLimitRejectedTotal   prometheus.Counter
	eventsSubscribers        prometheus.Gauge
	eventsDroppedSubscribers prometheus.Counter
}

// New constructs a metrics registry and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	ingestReportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetglint",
			Subsystem: "ingest",
			Name:      "reports_total",
			Help:      "Agent reports by outcome.",
		},
		[]string{"result"},
	)
	ingestDurationSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fleetglint",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Time spent processing an accepted report.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
	alertTransitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetglint",
			Subsystem: "alerts",
			Name:      "transitions_total",
			Help:      "Alert lifecycle transitions (created, refreshed, resolved).",
		},
		[]string{"type", "transition"},
	)
	commandTransitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetglint",
			Subsystem: "commands",
			Name:      "transitions_total",
			Help:      "Commands entering each status.",
		},
		[]string{"status"},
	)
	notifySentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetglint",
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Outbound notifications by provider and result.",
		},
		[]string{"provider", "result"},
	)
	rateLimitRejectedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetglint",
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Agent requests rejected by the per-source rate limit.",
		},
	)
	eventsSubscribers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fleetglint",
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Connected real-time subscribers.",
		},
	)
	eventsDroppedSubscribers := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetglint",
			Subsystem: "events",
			Name:      "dropped_subscribers_total",
			Help:      "Subscribers disconnected because their queue was full or a write failed.",
		},
	)

	registry.MustRegister(
		ingestReportsTotal,
		ingestDurationSeconds,
		alertTransitionsTotal,
		commandTransitionsTotal,
		notifySentTotal,
		rateLimitRejectedTotal,
		eventsSubscribers,
		eventsDroppedSubscribers,
	)

	return &Metrics{
		registry:                 registry,
		ingestReportsTotal:       ingestReportsTotal,
		ingestDurationSeconds:    ingestDurationSeconds,
		alertTransitionsTotal:    alertTransitionsTotal,
		commandTransitionsTotal:  commandTransitionsTotal,
		notifySentTotal:          notifySentTotal,
		rateLimitRejectedTotal:   rateLimitRejectedTotal,
		eventsSubscribers:        eventsSubscribers,
		eventsDroppedSubscribers: eventsDroppedSubscribers,
	}
}

// Handler returns an HTTP handler that serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncIngest(result string) {
	if m == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.ingestReportsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveIngest(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		return
	}
	m.ingestDurationSeconds.Observe(seconds)
}

func (m *Metrics) IncAlertTransition(alertType, transition string) {
	if m == nil {
		return
	}
	m.alertTransitionsTotal.WithLabelValues(alertType, transition).Inc()
}

func (m *Metrics) AddAlertTransitions(alertType, transition string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.alertTransitionsTotal.WithLabelValues(alertType, transition).Add(float64(n))
}

func (m *Metrics) IncCommandStatus(status string) {
	if m == nil {
		return
	}
	m.commandTransitionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncNotify(provider, result string) {
	if m == nil {
		return
	}
	m.notifySentTotal.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitRejectedTotal.Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.eventsSubscribers.Set(float64(n))
}

func (m *Metrics) IncDroppedSubscriber() {
	if m == nil {
		return
	}
	m.eventsDroppedSubscribers.Inc()
}
