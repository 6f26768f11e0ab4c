// Package metrics holds the prometheus collectors of the subscription
// manager and the backfill runner. A nil collector set records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contractbind"

// Subscriptions instruments the subscription manager.
type Subscriptions struct {
	ticks        prometheus.Counter
	tickFailures prometheus.Counter
	delivered    *prometheus.CounterVec
	decodeErrors prometheus.Counter
	active       prometheus.Gauge
	cursor       prometheus.Gauge
}

// NewSubscriptions registers the subscription collectors on reg.
func NewSubscriptions(reg prometheus.Registerer) *Subscriptions {
	f := promauto.With(reg)
	return &Subscriptions{
		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "ticks_total",
			Help:      "Polling ticks executed.",
		}),
		tickFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "tick_failures_total",
			Help:      "Polling ticks that failed to read the head or the logs.",
		}),
		delivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "events_delivered_total",
			Help:      "Decoded events delivered to callbacks.",
		}, []string{"event"}),
		decodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "decode_errors_total",
			Help:      "Logs that matched a subscription but failed to decode.",
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Active subscriptions.",
		}),
		cursor: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "last_seen_block",
			Help:      "Last block processed by the polling driver.",
		}),
	}
}

func (m *Subscriptions) Tick() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *Subscriptions) TickFailed() {
	if m != nil {
		m.tickFailures.Inc()
	}
}

func (m *Subscriptions) Delivered(event string) {
	if m != nil {
		m.delivered.WithLabelValues(event).Inc()
	}
}

func (m *Subscriptions) DecodeFailed() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Subscriptions) SetActive(n int) {
	if m != nil {
		m.active.Set(float64(n))
	}
}

func (m *Subscriptions) SetCursor(block uint64) {
	if m != nil {
		m.cursor.Set(float64(block))
	}
}

// Backfill instruments the backfill runner.
type Backfill struct {
	batches      prometheus.Counter
	stored       prometheus.Counter
	decodeErrors prometheus.Counter
	lastBlock    prometheus.Gauge
}

// NewBackfill registers the backfill collectors on reg.
func NewBackfill(reg prometheus.Registerer) *Backfill {
	f := promauto.With(reg)
	return &Backfill{
		batches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "batches_total",
			Help:      "Block ranges processed.",
		}),
		stored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "events_stored_total",
			Help:      "Decoded events written to storage.",
		}),
		decodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "decode_errors_total",
			Help:      "Logs that could not be decoded.",
		}),
		lastBlock: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "last_processed_block",
			Help:      "Last block whose batch was committed.",
		}),
	}
}

func (m *Backfill) BatchDone(stored int, lastBlock uint64) {
	if m != nil {
		m.batches.Inc()
		m.stored.Add(float64(stored))
		m.lastBlock.Set(float64(lastBlock))
	}
}

func (m *Backfill) DecodeFailed() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}
