// Package metrics exposes Prometheus collectors for the coordinator and the
// message channel.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	messages *prometheus.CounterVec
	items    *prometheus.GaugeVec
	badge    prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prodhelper",
			Name:      "messages_total",
			Help:      "Messages handled, by type and outcome.",
		}, []string{"type", "outcome"}),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "prodhelper",
			Name:      "collection_items",
			Help:      "Records currently stored per collection.",
		}, []string{"collection"}),
		badge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prodhelper",
			Name:      "badge_total",
			Help:      "Total item count shown on the badge.",
		}),
	}
	reg.MustRegister(m.messages, m.items, m.badge)
	return m
}

// ObserveMessage counts one handled message.
func (m *Metrics) ObserveMessage(msgType, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(msgType, outcome).Inc()
}

// SetCounts records per-collection sizes and the badge total.
func (m *Metrics) SetCounts(links, notes, tasks int) {
	if m == nil {
		return
	}
	m.items.WithLabelValues("savedLinks").Set(float64(links))
	m.items.WithLabelValues("savedNotes").Set(float64(notes))
	m.items.WithLabelValues("tasks").Set(float64(tasks))
	m.badge.Set(float64(links + notes + tasks))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
