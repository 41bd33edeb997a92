// Package stock publishes inventory decrements for paid orders.
package stock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"go.opentelemetry.io/otel"
)

type publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Publisher sends stock decrements to the inventory topic. Messages are keyed by product
// so decrements for one product stay ordered.
type Publisher struct {
	publisher publisher
	topic     string
}

func NewPublisher(publisher publisher, topic string) *Publisher {
	return &Publisher{publisher: publisher, topic: topic}
}

// Dispatch delivers an outbox stock decrement message.
func (p *Publisher) Dispatch(ctx context.Context, msg outbox.OutboxMessage) error {
	ctx, span := otel.Tracer("service").Start(ctx, "Publisher.Dispatch")
	defer span.End()

	var dec outbox.StockDecrement
	if err := json.Unmarshal(msg.Payload, &dec); err != nil {
		return fmt.Errorf("failed to unmarshal stock payload: %w", err)
	}
	if dec.ProductID == "" || dec.Quantity <= 0 {
		return fmt.Errorf("invalid stock decrement for order %s", dec.OrderNumber)
	}

	return p.publisher.Publish(ctx, p.topic, dec.ProductID, msg.Payload)
}
