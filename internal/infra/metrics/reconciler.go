package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(reconcileFindingsTotal, reconcileRedrivesTotal)
}

var (
	reconcileFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_findings_total",
			Help: "Discrepancies detected per sweep, by kind.",
		},
		[]string{"kind"},
	)

	reconcileRedrivesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_redrives_total",
			Help: "Automatic activation re-drives, by result.",
		},
		[]string{"result"},
	)
)

func IncReconcileFinding(kind string) {
	reconcileFindingsTotal.WithLabelValues(norm(kind)).Inc()
}

func IncReconcileRedrive(result string) {
	reconcileRedrivesTotal.WithLabelValues(norm(result)).Inc()
}
