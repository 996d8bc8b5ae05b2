package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for dispatcher and ledger health.
var (
	EventsAdmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_events_admitted_total",
			Help: "Total number of events admitted per lane",
		},
		[]string{"lane"},
	)

	EventsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_events_rejected_total",
			Help: "Total number of admissions rejected, by reason",
		},
		[]string{"reason"},
	)

	EventsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_events_completed_total",
			Help: "Total number of events processed successfully per lane",
		},
		[]string{"lane"},
	)

	EventsRetriedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_events_retried_total",
			Help: "Total number of retry requeues per lane",
		},
		[]string{"lane"},
	)

	EventsDeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_events_dead_lettered_total",
			Help: "Total number of events that exhausted retries",
		},
		[]string{"lane"},
	)

	EventProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderflow_event_processing_duration_seconds",
			Help:    "Duration of the processing callback per lane",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"lane"},
	)

	OrdersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderflow_orders_created_total",
			Help: "Total number of orders created",
		},
	)

	OrderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_order_transitions_total",
			Help: "Total number of applied order status transitions",
		},
		[]string{"to"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registerer.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EventsAdmittedTotal,
			EventsRejectedTotal,
			EventsCompletedTotal,
			EventsRetriedTotal,
			EventsDeadLetteredTotal,
			EventProcessingDuration,
			OrdersCreatedTotal,
			OrderTransitionsTotal,
		)
	})
}
