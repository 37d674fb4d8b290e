// Package metrics exposes relay counters in Prometheus format.
// All methods are safe on a nil *Metrics so tests can skip instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wirerelay"

// Metrics holds the collectors for one server instance.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive    prometheus.Gauge
	sessionsTotal     *prometheus.CounterVec
	channels          prometheus.Gauge
	nicknames         prometheus.Gauge
	commands          *prometheus.CounterVec
	broadcasts        prometheus.Counter
	deliveriesDropped prometheus.Counter
	whispers          *prometheus.CounterVec
}

// New builds collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Connected sessions.",
		}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions accepted, by transport.",
		}, []string{"transport"}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels",
			Help:      "Channels with at least one member.",
		}),
		nicknames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nicknames",
			Help:      "Registered nicknames.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by verb.",
		}, []string{"command"}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Chat lines fanned out to a channel.",
		}),
		deliveriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_dropped_total",
			Help:      "Lines not delivered because the recipient queue was full or closed.",
		}),
		whispers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "whispers_total",
			Help:      "Private messages, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.sessionsActive,
		m.sessionsTotal,
		m.channels,
		m.nicknames,
		m.commands,
		m.broadcasts,
		m.deliveriesDropped,
		m.whispers,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) SessionOpened(transport string) {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
	m.sessionsTotal.WithLabelValues(transport).Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) SetChannels(n int) {
	if m == nil {
		return
	}
	m.channels.Set(float64(n))
}

func (m *Metrics) SetNicknames(n int) {
	if m == nil {
		return
	}
	m.nicknames.Set(float64(n))
}

func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name).Inc()
}

func (m *Metrics) Broadcast() {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
}

func (m *Metrics) DeliveryDropped() {
	if m == nil {
		return
	}
	m.deliveriesDropped.Inc()
}

func (m *Metrics) Whisper(result string) {
	if m == nil {
		return
	}
	m.whispers.WithLabelValues(result).Inc()
}
