package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TaskMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_task_mutations_total",
			Help: "Total number of task mutations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	TaskConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kanban_task_conflicts_total",
			Help: "Total number of updates rejected because of a stale version.",
		},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_events_published_total",
			Help: "Total number of broadcast events by type.",
		},
		[]string{"type"},
	)

	EventSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kanban_event_subscribers",
			Help: "Number of currently connected event subscribers.",
		},
	)

	EventEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kanban_event_evictions_total",
			Help: "Total number of subscribers disconnected for falling behind.",
		},
	)

	AuditAppendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_audit_appends_total",
			Help: "Total number of audit appends by outcome.",
		},
		[]string{"outcome"},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeDropped  = "dropped"
)

// Collectors returns every custom kanban collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		TaskMutationsTotal,
		TaskConflictsTotal,
		EventsPublishedTotal,
		EventSubscribers,
		EventEvictionsTotal,
		AuditAppendsTotal,
	}
}

// Register registers all custom kanban metrics with the given registerer.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(Collectors()...)
}
