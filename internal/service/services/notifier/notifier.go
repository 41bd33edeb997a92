// Package notifier sends order confirmation email requests to the mail queue.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"go.opentelemetry.io/otel"
)

const confirmationTemplate = "order_confirmation"

type publisher interface {
	Publish(ctx context.Context, queue, contentType string, body []byte) error
}

// EmailRequest is consumed by the mail sender.
type EmailRequest struct {
	Template string                   `json:"template"`
	To       string                   `json:"to"`
	Subject  string                   `json:"subject"`
	Data     outbox.OrderConfirmation `json:"data"`
}

// Notifier publishes confirmation requests.
type Notifier struct {
	publisher publisher
	queue     string
}

// NewNotifier creates a Notifier publishing to queue.
func NewNotifier(publisher publisher, queue string) *Notifier {
	return &Notifier{publisher: publisher, queue: queue}
}

// Notify publishes the confirmation email request for a paid order.
func (n *Notifier) Notify(ctx context.Context, c outbox.OrderConfirmation) error {
	ctx, span := otel.Tracer("service").Start(ctx, "Notifier.Notify")
	defer span.End()

	if c.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", c.OrderNumber)
	}

	body, err := json.Marshal(EmailRequest{
		Template: confirmationTemplate,
		To:       c.CustomerEmail,
		Subject:  "Order " + c.OrderNumber + " confirmed",
		Data:     c,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	if err := n.publisher.Publish(ctx, n.queue, outbox.ContentTypeJSON, body); err != nil {
		return err
	}

	slog.Info("Order confirmation queued", "reference", c.OrderNumber)

	return nil
}

// Dispatch delivers an outbox confirmation message.
func (n *Notifier) Dispatch(ctx context.Context, msg outbox.OutboxMessage) error {
	var c outbox.OrderConfirmation
	if err := json.Unmarshal(msg.Payload, &c); err != nil {
		return fmt.Errorf("failed to unmarshal confirmation payload: %w", err)
	}

	return n.Notify(ctx, c)
}
