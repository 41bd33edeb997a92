package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
)

// IOutboxRepository defines the interface for outbox operations.
type IOutboxRepository interface {
	// Insert adds a new message to the outbox. It reports false when a message with the
	// same dedup key already exists.
	Insert(ctx context.Context, msg outbox.OutboxMessage) (bool, error)

	// GetPendingMessages retrieves unprocessed messages that are ready for retry
	GetPendingMessages(ctx context.Context, limit int) ([]outbox.OutboxMessage, error)

	// MarkProcessed records successful delivery. The row is kept so the dedup key
	// keeps blocking repeats.
	MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error

	// UpdateRetry updates retry count and error information
	UpdateRetry(
		ctx context.Context,
		id int64,
		retryCount int,
		lastError string,
		nextRetryAt time.Time,
	) error

	// ListExhausted returns unprocessed messages that ran out of retries.
	ListExhausted(ctx context.Context, limit int) ([]outbox.OutboxMessage, error)
}
