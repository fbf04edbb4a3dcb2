package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	shoppingdomain "shoplist-go/internal/domain/shopping"
)

var (
	ArchiveDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplist_archive_decisions_total",
		Help: "Archive guard decisions by outcome (acquired, suppressed, cooling).",
	},
		[]string{"decision"},
	)

	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplist_mutations_total",
		Help: "Committed list and history mutations by operation.",
	},
		[]string{"op"},
	)

	VersionConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplist_version_conflicts_total",
		Help: "Active list saves rejected because of a concurrent write.",
	},
		[]string{"op"},
	)

	GuardSlots = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shoplist_archive_guard_slots",
		Help: "Names currently held by the duplicate-archive guard.",
	})

	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shoplist_realtime_clients",
		Help: "Connected WebSocket clients.",
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplist_events_published_total",
		Help: "Change notifications published by topic.",
	},
		[]string{"topic"},
	)

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoplist_events_dropped_total",
		Help: "Notifications not delivered because a client send buffer was full.",
	})
)

// Workflow adapts the package counters to shoppingdomain.Metrics.
type Workflow struct{}

func (Workflow) ObserveArchive(decision shoppingdomain.GuardDecision) {
	ArchiveDecisionsTotal.WithLabelValues(decision.String()).Inc()
}

func (Workflow) ObserveMutation(op string) {
	MutationsTotal.WithLabelValues(op).Inc()
}

func (Workflow) ObserveVersionConflict(op string) {
	VersionConflictsTotal.WithLabelValues(op).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
