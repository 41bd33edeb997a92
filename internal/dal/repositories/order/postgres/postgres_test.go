package postgresrepo

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corray333/backend-labs/checkout/internal/service/models/currency"
	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/orderitem"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderID = uuid.MustParse("3f8c1b7e-6a4e-4d2b-9d11-0c9a5f1e2b33")

func newRepo(t *testing.T) (*PostgresOrderRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresOrderRepository(db), mock
}

func orderRow(status string, paidAt driver.Value, version int64) *sqlmock.Rows {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	return sqlmock.NewRows(orderColumns).AddRow(
		orderID.String(),
		"ORD-20260301-ABC123",
		int64(100000),
		int64(15000),
		int64(4392),
		int64(119392),
		"COP",
		[]byte(`[{"productId":"p-1","name":"Oud 50ml","unitPrice":50000,"quantity":2,"trackStock":true}]`),
		[]byte(`{"line1":"Calle 1","city":"Bogota","region":"DC","country":"CO"}`),
		[]byte(`{"name":"Ana","email":"ana@example.com","phone":"3000000000"}`),
		nil,
		nil,
		status,
		false,
		paidAt,
		"waiting",
		version,
		created,
		created,
	)
}

func TestGetByNumber(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT id, number, .* FROM orders WHERE number = \$1`).
		WithArgs("ORD-20260301-ABC123").
		WillReturnRows(orderRow("awaiting_payment", nil, 1))

	o, err := repo.GetByNumber(context.Background(), "ORD-20260301-ABC123")
	require.NoError(t, err)

	assert.Equal(t, orderID, o.ID)
	assert.Equal(t, currency.CurrencyCOP, o.Currency)
	assert.Equal(t, order.StatusAwaitingPayment, o.Status)
	assert.Equal(t, order.FulfillmentWaiting, o.FulfillmentStatus)
	assert.EqualValues(t, 119392, o.Total)
	assert.Equal(t, []orderitem.OrderItem{
		{ProductID: "p-1", Name: "Oud 50ml", UnitPrice: 50000, Quantity: 2, TrackStock: true},
	}, o.Items)
	assert.Equal(t, "ana@example.com", o.Customer.Email)
	assert.Equal(t, "Bogota", o.ShippingAddress.City)
	assert.Empty(t, o.PaymentID)
	assert.Nil(t, o.PaidAt)
	assert.EqualValues(t, 1, o.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByNumber_PaidAt(t *testing.T) {
	repo, mock := newRepo(t)
	paidAt := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM orders WHERE number = \$1`).
		WithArgs("ORD-20260301-ABC123").
		WillReturnRows(orderRow("paid", paidAt, 2))

	o, err := repo.GetByNumber(context.Background(), "ORD-20260301-ABC123")
	require.NoError(t, err)
	require.NotNil(t, o.PaidAt)
	assert.True(t, paidAt.Equal(*o.PaidAt))
	assert.Equal(t, order.StatusPaid, o.Status)
}

func TestGetByNumber_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`FROM orders WHERE number = \$1`).
		WithArgs("ORD-MISSING").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	_, err := repo.GetByNumber(context.Background(), "ORD-MISSING")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestInsert(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO orders \(id,number,.*customer_email\) VALUES`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), order.Order{
		ID:                orderID,
		Number:            "ORD-20260301-ABC123",
		Subtotal:          100000,
		Total:             100000,
		Currency:          currency.CurrencyCOP,
		Customer:          order.Customer{Email: "Ana@Example.com"},
		Status:            order.StatusAwaitingPayment,
		FulfillmentStatus: order.FulfillmentWaiting,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_DuplicateNumber(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(`INSERT INTO orders`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_number_key"})

	err := repo.Insert(context.Background(), order.Order{ID: orderID, Currency: currency.CurrencyCOP})
	assert.ErrorIs(t, err, order.ErrDuplicateNumber)
}

func TestUpdatePayment(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE orders SET status = \$1, payment_id = \$2, payment_method = \$3, is_verified = \$4, paid_at = \$5, updated_at = \$6, version = version \+ 1 WHERE id = \$7 AND version = \$8`).
		WithArgs("paid", "pay_1", "CARD", true, now, now, orderID, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePayment(context.Background(), order.PaymentUpdate{
		OrderID:         orderID,
		ExpectedVersion: 1,
		Status:          order.StatusPaid,
		PaymentID:       "pay_1",
		PaymentMethod:   "CARD",
		IsVerified:      true,
		PaidAt:          &now,
		UpdatedAt:       now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePayment_VersionConflict(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(`UPDATE orders SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePayment(context.Background(), order.PaymentUpdate{
		OrderID:         orderID,
		ExpectedVersion: 3,
		Status:          order.StatusFailed,
		UpdatedAt:       time.Now(),
	})
	assert.ErrorIs(t, err, order.ErrVersionConflict)
}

func TestUpdateFulfillment(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectExec(`UPDATE orders SET fulfillment_status = \$1, updated_at = \$2 WHERE number = \$3`).
		WithArgs("processing", now, "ORD-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders SET fulfillment_status`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateFulfillment(context.Background(), "ORD-1", order.FulfillmentProcessing, now))
	assert.ErrorIs(t,
		repo.UpdateFulfillment(context.Background(), "ORD-2", order.FulfillmentProcessing, now),
		order.ErrNotFound,
	)
}

func TestQuery_Filters(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`FROM orders WHERE status IN \(\$1,\$2\) AND customer_email = \$3 ORDER BY created_at DESC LIMIT 20 OFFSET 40`).
		WithArgs("paid", "pending", "ana@example.com").
		WillReturnRows(orderRow("paid", time.Now(), 2))

	orders, err := repo.Query(context.Background(), &order.QueryOrdersModel{
		Statuses:      []order.Status{order.StatusPaid, order.StatusPending},
		CustomerEmail: "ANA@example.com",
		Limit:         20,
		Offset:        40,
	})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_Error(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`FROM orders`).WillReturnError(errors.New("connection reset"))

	_, err := repo.Query(context.Background(), &order.QueryOrdersModel{})
	assert.ErrorContains(t, err, "failed to query orders")
}
