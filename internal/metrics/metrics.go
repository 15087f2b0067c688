// Package metrics exposes Prometheus collectors for a depot's pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons.
const (
	DropMalformed   = "malformed"
	DropOwnPort     = "own_port"
	DropDuplicate   = "duplicate_port"
	DropDialFailed  = "dial_failed"
	DropUnknownPeer = "unknown_destination"
	DropClosedLink  = "closed_link"
)

// Metrics holds the collectors of one depot. Each depot registers into its
// own registry so several can live in one process.
type Metrics struct {
	Registry *prometheus.Registry

	Messages       *prometheus.CounterVec
	Dropped        *prometheus.CounterVec
	QueueRetries   prometheus.Counter
	QueueDepth     prometheus.Gauge
	TornDown       prometheus.Counter
	Neighbours     prometheus.Gauge
	DeferredQueued prometheus.Gauge
	Dumps          prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depot",
			Name:      "messages_total",
			Help:      "Messages processed by the worker, by command.",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depot",
			Name:      "messages_dropped_total",
			Help:      "Messages dropped without effect, by reason.",
		}, []string{"reason"}),
		QueueRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "depot",
			Name:      "queue_full_retries_total",
			Help:      "Enqueue attempts that found the queue full.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "depot",
			Name:      "queue_depth",
			Help:      "Messages waiting for the worker.",
		}),
		TornDown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "depot",
			Name:      "links_torn_down_total",
			Help:      "Links closed after a bad introduction.",
		}),
		Neighbours: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "depot",
			Name:      "neighbours",
			Help:      "Confirmed neighbours.",
		}),
		DeferredQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "depot",
			Name:      "deferred_records",
			Help:      "Commands parked awaiting Execute.",
		}),
		Dumps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "depot",
			Name:      "dumps_total",
			Help:      "State dumps written.",
		}),
	}
	m.Registry.MustRegister(
		m.Messages,
		m.Dropped,
		m.QueueRetries,
		m.QueueDepth,
		m.TornDown,
		m.Neighbours,
		m.DeferredQueued,
		m.Dumps,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
