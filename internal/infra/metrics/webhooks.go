package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(webhookDeliveriesTotal) }

var webhookDeliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Provider webhook deliveries by reported status and admission outcome.",
	},
	[]string{"status", "outcome"}, // outcome: admitted, duplicate, duplicate_incomplete, error
)

func IncWebhook(status, outcome string) {
	webhookDeliveriesTotal.WithLabelValues(norm(status), norm(outcome)).Inc()
}
