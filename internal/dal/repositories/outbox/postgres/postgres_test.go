package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) (*OutboxRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewOutboxRepository(db)
	repo.now = func() time.Time { return fixedNow }

	return repo, mock
}

func TestInsert_Dedup(t *testing.T) {
	repo, mock := newRepo(t)
	msg := outbox.OutboxMessage{
		Kind:        outbox.KindOrderConfirmation,
		DedupKey:    "confirmation:ORD-1",
		OrderNumber: "ORD-1",
		Payload:     []byte(`{"orderNumber":"ORD-1"}`),
		ContentType: "application/json",
		MaxRetries:  5,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
		NextRetryAt: fixedNow,
	}

	mock.ExpectExec(`INSERT INTO outbox .* ON CONFLICT \(dedup_key\) DO NOTHING`).
		WithArgs("order.confirmation", "confirmation:ORD-1", "ORD-1", `{"orderNumber":"ORD-1"}`,
			"application/json", 0, 5, "", fixedNow, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO outbox`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Insert(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, inserted)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPendingMessages(t *testing.T) {
	repo, mock := newRepo(t)

	rows := sqlmock.NewRows(outboxColumns).
		AddRow(int64(7), "stock.decrement", "stock:ORD-1:p-1", "ORD-1", []byte(`{}`), "application/json",
			1, 5, "broker down", fixedNow, fixedNow, fixedNow, nil)

	mock.ExpectQuery(`SELECT .* FROM outbox WHERE processed_at IS NULL AND next_retry_at <= \$1 AND retry_count < max_retries ORDER BY next_retry_at ASC LIMIT 50`).
		WithArgs(fixedNow).
		WillReturnRows(rows)

	msgs, err := repo.GetPendingMessages(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.EqualValues(t, 7, msgs[0].ID)
	assert.Equal(t, outbox.KindStockDecrement, msgs[0].Kind)
	assert.Equal(t, 1, msgs[0].RetryCount)
	assert.Equal(t, "broker down", msgs[0].LastError)
	assert.Nil(t, msgs[0].ProcessedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListExhausted(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`FROM outbox WHERE processed_at IS NULL AND retry_count >= max_retries ORDER BY updated_at DESC LIMIT 10`).
		WillReturnRows(sqlmock.NewRows(outboxColumns))

	msgs, err := repo.ListExhausted(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMarkProcessed(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(`UPDATE outbox SET processed_at = \$1, updated_at = \$2, last_error = \$3 WHERE id = \$4`).
		WithArgs(fixedNow, fixedNow, "", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkProcessed(context.Background(), 7, fixedNow))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRetry(t *testing.T) {
	repo, mock := newRepo(t)
	next := fixedNow.Add(time.Minute)

	mock.ExpectExec(`UPDATE outbox SET retry_count = \$1, last_error = \$2, next_retry_at = \$3, updated_at = \$4 WHERE id = \$5`).
		WithArgs(2, "timeout", next, fixedNow, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateRetry(context.Background(), 7, 2, "timeout", next))
	require.NoError(t, mock.ExpectationsWereMet())
}
