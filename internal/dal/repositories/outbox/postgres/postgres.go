package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
)

var outboxColumns = []string{
	"id",
	"kind",
	"dedup_key",
	"order_number",
	"payload",
	"content_type",
	"retry_count",
	"max_retries",
	"last_error",
	"created_at",
	"updated_at",
	"next_retry_at",
	"processed_at",
}

// Conn is satisfied by both *sql.DB and *sql.Tx.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// OutboxRepository implements the outbox repository for PostgreSQL.
type OutboxRepository struct {
	conn Conn
	now  func() time.Time
}

// NewOutboxRepository creates a new outbox repository.
func NewOutboxRepository(conn Conn) *OutboxRepository {
	return &OutboxRepository{
		conn: conn,
		now:  time.Now,
	}
}

// Insert adds a new message to the outbox. A message whose dedup key already exists is
// skipped and Insert reports false.
func (r *OutboxRepository) Insert(ctx context.Context, msg outbox.OutboxMessage) (bool, error) {
	query, args, err := sq.Insert("outbox").
		Columns(
			"kind",
			"dedup_key",
			"order_number",
			"payload",
			"content_type",
			"retry_count",
			"max_retries",
			"last_error",
			"created_at",
			"updated_at",
			"next_retry_at",
		).
		Values(
			string(msg.Kind),
			msg.DedupKey,
			msg.OrderNumber,
			string(msg.Payload),
			msg.ContentType,
			msg.RetryCount,
			msg.MaxRetries,
			msg.LastError,
			msg.CreatedAt,
			msg.UpdatedAt,
			msg.NextRetryAt,
		).
		Suffix("ON CONFLICT (dedup_key) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build insert query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert outbox message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

// GetPendingMessages retrieves unprocessed messages that are ready for retry.
func (r *OutboxRepository) GetPendingMessages(
	ctx context.Context,
	limit int,
) ([]outbox.OutboxMessage, error) {
	return r.list(ctx, sq.Select(outboxColumns...).
		From("outbox").
		Where(sq.Eq{"processed_at": nil}).
		Where(sq.LtOrEq{"next_retry_at": r.now()}).
		Where(sq.Expr("retry_count < max_retries")).
		OrderBy("next_retry_at ASC").
		Limit(uint64(limit)),
	)
}

// ListExhausted returns unprocessed messages that ran out of retries, newest first.
func (r *OutboxRepository) ListExhausted(ctx context.Context, limit int) ([]outbox.OutboxMessage, error) {
	return r.list(ctx, sq.Select(outboxColumns...).
		From("outbox").
		Where(sq.Eq{"processed_at": nil}).
		Where(sq.Expr("retry_count >= max_retries")).
		OrderBy("updated_at DESC").
		Limit(uint64(limit)),
	)
}

// MarkProcessed records successful delivery of a message.
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error {
	query, args, err := sq.Update("outbox").
		Set("processed_at", processedAt).
		Set("updated_at", processedAt).
		Set("last_error", "").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	_, err = r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message processed: %w", err)
	}

	return nil
}

// UpdateRetry updates retry count and error information.
func (r *OutboxRepository) UpdateRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	query, args, err := sq.Update("outbox").
		Set("retry_count", retryCount).
		Set("last_error", lastError).
		Set("next_retry_at", nextRetryAt).
		Set("updated_at", r.now()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	_, err = r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update outbox message: %w", err)
	}

	return nil
}

func (r *OutboxRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]outbox.OutboxMessage, error) {
	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []outbox.OutboxMessage
	for rows.Next() {
		var (
			msg         outbox.OutboxMessage
			kind        string
			processedAt sql.NullTime
		)
		err := rows.Scan(
			&msg.ID,
			&kind,
			&msg.DedupKey,
			&msg.OrderNumber,
			&msg.Payload,
			&msg.ContentType,
			&msg.RetryCount,
			&msg.MaxRetries,
			&msg.LastError,
			&msg.CreatedAt,
			&msg.UpdatedAt,
			&msg.NextRetryAt,
			&processedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		msg.Kind = outbox.Kind(kind)
		if processedAt.Valid {
			t := processedAt.Time
			msg.ProcessedAt = &t
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox messages: %w", err)
	}

	return messages, nil
}
