// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "whatsapp_copilot"

var (
	InboundMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inbound_messages_total",
		Help:      "Inbound webhooks by message type and dispatch outcome.",
	}, []string{"type", "outcome"})

	OutboundMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbound_messages_total",
		Help:      "WhatsApp sends by kind (reply, notification, payment) and result.",
	}, []string{"kind", "result"})

	ThresholdBreaches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "threshold_breaches_total",
		Help:      "Replies suppressed because the sender reached the threshold.",
	}, []string{"tier"})

	PaymentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_outcomes_total",
		Help:      "Terminal payment orchestrator states.",
	}, []string{"state"})

	PaymentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payment_duration_seconds",
		Help:      "Time from STK push initiation to terminal state.",
		Buckets:   []float64{1, 5, 10, 15, 20, 25, 30, 45, 60},
	})

	NotificationsCleared = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_cleared_total",
		Help:      "Expired notification flags cleared by the sweeper.",
	})
)

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
