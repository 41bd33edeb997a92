// Package metrics holds the domain counters exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcomes.
const (
	WebhookProcessed    = "processed"
	WebhookIgnored      = "ignored"
	WebhookDuplicate    = "duplicate"
	WebhookRejected     = "rejected"
	WebhookUnknownOrder = "unknown_order"
	WebhookError        = "error"
)

var (
	webhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_webhooks_total",
			Help: "Payment webhooks received, by outcome",
		},
		[]string{"outcome"},
	)

	reconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_reconciliations_total",
			Help: "Order payment reconciliations, by target status and whether the order changed",
		},
		[]string{"status", "changed"},
	)

	signaturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_signatures_total",
			Help: "Checkout signing requests, by outcome",
		},
		[]string{"outcome"},
	)

	sideEffectsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_side_effects_delivered_total",
			Help: "Outbox side effects delivered, by kind",
		},
		[]string{"kind"},
	)

	sideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_side_effect_failures_total",
			Help: "Outbox side effect delivery failures, by kind and whether retries are exhausted",
		},
		[]string{"kind", "exhausted"},
	)
)

func RecordWebhook(outcome string) {
	webhooksTotal.WithLabelValues(outcome).Inc()
}

func RecordReconciliation(status string, changed bool) {
	reconciliationsTotal.WithLabelValues(status, boolLabel(changed)).Inc()
}

func RecordSignature(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	signaturesTotal.WithLabelValues(outcome).Inc()
}

func RecordSideEffectDelivered(kind string) {
	sideEffectsDelivered.WithLabelValues(kind).Inc()
}

func RecordSideEffectFailure(kind string, exhausted bool) {
	sideEffectFailures.WithLabelValues(kind, boolLabel(exhausted)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}

	return "false"
}
