package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		activationsTotal,
		paymentsRevenueKopecks,
		entitlementsExpired,
	)
}

var (
	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activations_total",
			Help: "Activation attempts by outcome (success or error kind).",
		},
		[]string{"outcome"},
	)

	paymentsRevenueKopecks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_revenue_kopecks_total",
			Help: "Total monetary value of succeeded payments, in kopecks.",
		},
	)

	entitlementsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "entitlements_expired_total",
			Help: "Entitlement rows deactivated by the reaper.",
		},
	)
)

func IncActivation(outcome string) {
	activationsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddRevenue(kopecks int64) {
	paymentsRevenueKopecks.Add(float64(kopecks))
}

func AddEntitlementsExpired(n int) {
	entitlementsExpired.Add(float64(n))
}
