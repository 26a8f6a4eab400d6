// Package metrics bundles the hub's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gathering_place"

// Command outcome label values.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeErrored  = "errored"
)

// Resync mode label values.
const (
	ResyncDelta    = "delta"
	ResyncSnapshot = "snapshot"
)

// Metrics holds the hub collectors. A nil *Metrics is a valid no-op recorder
// so wiring stays optional in tests and tooling.
type Metrics struct {
	activeLanes       prometheus.Gauge
	connectedClients  prometheus.Gauge
	commandsHandled   *prometheus.CounterVec
	eventsAppended    prometheus.Counter
	broadcastsDropped prometheus.Counter
	laneHalts         prometheus.Counter
	resyncs           *prometheus.CounterVec
	snapshotsSaved    prometheus.Counter
	commandLatency    prometheus.Histogram
}

// New creates the hub collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeLanes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_session_lanes",
			Help:      "Number of resident session lanes",
		}),
		connectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Number of connected websocket clients",
		}),
		commandsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_handled_total",
			Help:      "Total number of commands handled by outcome",
		}, []string{"outcome"}),
		eventsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_appended_total",
			Help:      "Total number of events appended to the journal",
		}),
		broadcastsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_dropped_total",
			Help:      "Total number of events dropped for slow subscribers",
		}),
		laneHalts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lane_halts_total",
			Help:      "Total number of session lanes halted on invariant violations",
		}),
		resyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Total number of resyncs served by mode",
		}, []string{"mode"}),
		snapshotsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_saved_total",
			Help:      "Total number of session snapshots persisted",
		}),
		commandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_seconds",
			Help:      "Command handling latency inside the session lane",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	reg.MustRegister(
		m.activeLanes,
		m.connectedClients,
		m.commandsHandled,
		m.eventsAppended,
		m.broadcastsDropped,
		m.laneHalts,
		m.resyncs,
		m.snapshotsSaved,
		m.commandLatency,
	)

	return m
}

// LaneStarted records a session lane coming online.
func (m *Metrics) LaneStarted() {
	if m == nil {
		return
	}
	m.activeLanes.Inc()
}

// LaneStopped records a session lane going away.
func (m *Metrics) LaneStopped() {
	if m == nil {
		return
	}
	m.activeLanes.Dec()
}

// ClientConnected records a websocket client attaching.
func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.connectedClients.Inc()
}

// ClientDisconnected records a websocket client detaching.
func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.connectedClients.Dec()
}

// CommandHandled records one handled command with its outcome label.
func (m *Metrics) CommandHandled(outcome string) {
	if m == nil {
		return
	}
	m.commandsHandled.WithLabelValues(outcome).Inc()
}

// EventsAppended records events written to the journal.
func (m *Metrics) EventsAppended(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.eventsAppended.Add(float64(count))
}

// BroadcastDropped records an event dropped for a slow subscriber.
func (m *Metrics) BroadcastDropped() {
	if m == nil {
		return
	}
	m.broadcastsDropped.Inc()
}

// LaneHalted records a session lane halting on an invariant violation.
func (m *Metrics) LaneHalted() {
	if m == nil {
		return
	}
	m.laneHalts.Inc()
}

// ResyncServed records one resync with its mode label.
func (m *Metrics) ResyncServed(mode string) {
	if m == nil {
		return
	}
	m.resyncs.WithLabelValues(mode).Inc()
}

// SnapshotSaved records a persisted session snapshot.
func (m *Metrics) SnapshotSaved() {
	if m == nil {
		return
	}
	m.snapshotsSaved.Inc()
}

// ObserveCommandLatency records how long a command spent inside the lane.
func (m *Metrics) ObserveCommandLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.commandLatency.Observe(duration.Seconds())
}
