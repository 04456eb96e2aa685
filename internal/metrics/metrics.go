package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "consultbot"

var (
	once sync.Once

	registrationCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_created_total",
			Help:      "Count of committed registrations.",
		},
	)

	bookingConflict = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflict_total",
			Help:      "Count of date conflicts by stage (select, commit).",
		},
		[]string{"stage"},
	)

	flowCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_cancelled_total",
			Help:      "Count of registration flows cancelled by users.",
		},
	)

	subscriptionCheck = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_check_total",
			Help:      "Count of channel membership checks by result.",
		},
		[]string{"result"},
	)

	notification = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_total",
			Help:      "Count of operator notifications by result.",
		},
		[]string{"result"},
	)

	operatorAction = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operator_action_total",
			Help:      "Count of operator actions by kind.",
		},
		[]string{"action"},
	)

	updateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent handling one Telegram update.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			registrationCreated,
			bookingConflict,
			flowCancelled,
			subscriptionCheck,
			notification,
			operatorAction,
			updateDuration,
		)
	})
}

func IncRegistrationCreated() {
	registrationCreated.Inc()
}

func IncBookingConflict(stage string) {
	bookingConflict.WithLabelValues(stage).Inc()
}

func IncFlowCancelled() {
	flowCancelled.Inc()
}

func IncSubscriptionCheck(result string) {
	subscriptionCheck.WithLabelValues(result).Inc()
}

func IncNotification(result string) {
	notification.WithLabelValues(result).Inc()
}

func IncOperatorAction(action string) {
	operatorAction.WithLabelValues(action).Inc()
}

func ObserveUpdate(kind string, seconds float64) {
	updateDuration.WithLabelValues(kind).Observe(seconds)
}
