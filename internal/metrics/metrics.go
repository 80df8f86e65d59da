package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teramotors",
			Name:      "bookings_total",
			Help:      "Count of booking attempts by outcome.",
		},
		[]string{"status"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "teramotors",
			Name:      "booking_conflicts_total",
			Help:      "Count of bookings rejected by the conflict guard.",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teramotors",
			Name:      "status_transitions_total",
			Help:      "Count of appointment lifecycle transitions.",
		},
		[]string{"to"},
	)

	invalidTransitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "teramotors",
			Name:      "invalid_transitions_total",
			Help:      "Count of rejected lifecycle transitions.",
		},
	)

	remindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teramotors",
			Name:      "reminders_total",
			Help:      "Count of reminder notifications by result.",
		},
		[]string{"status"},
	)

	slotQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "teramotors",
			Name:      "slot_queries_total",
			Help:      "Count of available-slot queries.",
		},
	)

	slotQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "teramotors",
			Name:      "slot_query_duration_seconds",
			Help:      "Time to answer an available-slot query.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsTotal,
			bookingConflicts,
			statusTransitions,
			invalidTransitions,
			remindersTotal,
			slotQueries,
			slotQueryDuration,
		)
	})
}

func IncBooking(status string) {
	bookingsTotal.WithLabelValues(status).Inc()
}

func IncConflict() {
	bookingConflicts.Inc()
}

func IncTransition(to string) {
	statusTransitions.WithLabelValues(to).Inc()
}

func IncInvalidTransition() {
	invalidTransitions.Inc()
}

func IncReminder(status string) {
	remindersTotal.WithLabelValues(status).Inc()
}

func ObserveSlotQuery(d time.Duration) {
	slotQueries.Inc()
	slotQueryDuration.Observe(d.Seconds())
}
