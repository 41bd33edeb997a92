package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	queue       string
	contentType string
	body        []byte
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, queue, contentType string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{queue: queue, contentType: contentType, body: body})

	return nil
}

func TestDispatch(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub, "order.notifications")

	payload, err := json.Marshal(outbox.OrderConfirmation{
		OrderNumber:   "ORD-1",
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		Total:         119392,
		Currency:      "COP",
	})
	require.NoError(t, err)

	require.NoError(t, n.Dispatch(context.Background(), outbox.OutboxMessage{
		Kind:    outbox.KindOrderConfirmation,
		Payload: payload,
	}))

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "order.notifications", pub.sent[0].queue)
	assert.Equal(t, "application/json", pub.sent[0].contentType)

	var req EmailRequest
	require.NoError(t, json.Unmarshal(pub.sent[0].body, &req))
	assert.Equal(t, "order_confirmation", req.Template)
	assert.Equal(t, "ana@example.com", req.To)
	assert.Equal(t, "Order ORD-1 confirmed", req.Subject)
	assert.EqualValues(t, 119392, req.Data.Total)
}

func TestDispatch_Errors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	n := NewNotifier(pub, "q")

	assert.ErrorContains(t, n.Dispatch(context.Background(), outbox.OutboxMessage{Payload: []byte("{")}),
		"failed to unmarshal confirmation payload")
	assert.ErrorContains(t, n.Notify(context.Background(), outbox.OrderConfirmation{OrderNumber: "ORD-1"}),
		"no customer email")
	assert.ErrorContains(t, n.Notify(context.Background(), outbox.OrderConfirmation{
		OrderNumber: "ORD-1", CustomerEmail: "a@b.co",
	}), "channel closed")
}
