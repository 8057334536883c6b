package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the routing engine.
type Metrics struct {
	// Routing transitions by kind and outcome
	Transitions *prometheus.CounterVec

	// Dossiers created
	Created prometheus.Counter

	// Full transition latency including persistence
	TransitionLatency *prometheus.HistogramVec

	// Notifications dropped because the dispatcher queue was full
	NotificationsDropped prometheus.Counter
}

// New creates a new Metrics instance with all routing metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sged_dossier_transitions_total",
			Help: "Total routing transitions by kind and outcome",
		}, []string{"kind", "outcome"}), // kind: "exit", "arrival", "processing"

		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sged_dossiers_created_total",
			Help: "Total dossiers created",
		}),

		TransitionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sged_dossier_transition_duration_seconds",
			Help:    "Duration of routing transitions including persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),

		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sged_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full",
		}),
	}
}

// IncrementTransition records a routing transition outcome.
func (m *Metrics) IncrementTransition(kind, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(kind, outcome).Inc()
	}
}

// IncrementCreated records a dossier creation.
func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.Created.Inc()
	}
}

// ObserveTransitionLatency records how long a transition took end to end.
func (m *Metrics) ObserveTransitionLatency(kind string, d time.Duration) {
	if m != nil {
		m.TransitionLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// IncrementNotificationsDropped records a dropped notification.
func (m *Metrics) IncrementNotificationsDropped() {
	if m != nil {
		m.NotificationsDropped.Inc()
	}
}
