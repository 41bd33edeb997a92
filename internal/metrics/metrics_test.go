package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSideEffectFailure(t *testing.T) {
	before := testutil.ToFloat64(sideEffectFailures.WithLabelValues("order.confirmation", "true"))

	RecordSideEffectFailure("order.confirmation", true)

	after := testutil.ToFloat64(sideEffectFailures.WithLabelValues("order.confirmation", "true"))
	assert.InDelta(t, before+1, after, 0.0001)
}

func TestRecordWebhook(t *testing.T) {
	before := testutil.ToFloat64(webhooksTotal.WithLabelValues(WebhookIgnored))

	RecordWebhook(WebhookIgnored)
	RecordWebhook(WebhookIgnored)

	assert.InDelta(t, before+2, testutil.ToFloat64(webhooksTotal.WithLabelValues(WebhookIgnored)), 0.0001)
}
