package reactor

import "github.com/prometheus/client_golang/prometheus"

// Registerer is the subset of *prometheus.Registry the reactor needs.
// Accepting the interface rather than a concrete type lets callers pass
// prometheus.DefaultRegisterer, a dedicated test registry, or nil.
type Registerer interface {
	MustRegister(...prometheus.Collector)
}

// Metrics are the reactor's observable counters and gauges, namespaced
// "nakamoto" the way the teacher namespaces its own under "neogo".
type Metrics struct {
	peersConnected   prometheus.Gauge
	messagesSent     *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	bytesWritten     prometheus.Counter
	decodeErrors     prometheus.Counter
}

// NewMetrics builds a Metrics and registers it with reg, if reg is
// non-nil. A nil Registerer is useful in tests that don't care about
// metrics and don't want to collide with prometheus.DefaultRegisterer
// across test runs.
func NewMetrics(reg Registerer) *Metrics {
	m := &Metrics{
		peersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nakamoto",
			Subsystem: "reactor",
			Name:      "peers_connected",
			Help:      "Number of peer connections with an active reader goroutine.",
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nakamoto",
			Subsystem: "reactor",
			Name:      "messages_sent_total",
			Help:      "Messages written to peers, by command.",
		}, []string{"command"}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nakamoto",
			Subsystem: "reactor",
			Name:      "messages_received_total",
			Help:      "Messages decoded from peers, by command.",
		}, []string{"command"}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nakamoto",
			Subsystem: "reactor",
			Name:      "bytes_written_total",
			Help:      "Total bytes written to peer connections, including frame headers.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nakamoto",
			Subsystem: "reactor",
			Name:      "decode_errors_total",
			Help:      "Frames that failed to decode or were rejected (wrong magic, oversized).",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.peersConnected,
			m.messagesSent,
			m.messagesReceived,
			m.bytesWritten,
			m.decodeErrors,
		)
	}

	return m
}
