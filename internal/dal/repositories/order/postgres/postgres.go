package postgresrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/checkout/internal/service/models/currency"
	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/orderitem"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var orderColumns = []string{
	"id",
	"number",
	"subtotal",
	"shipping_cost",
	"fees",
	"total",
	"currency",
	"items",
	"shipping_address",
	"customer",
	"payment_method",
	"payment_id",
	"status",
	"is_verified",
	"paid_at",
	"fulfillment_status",
	"version",
	"created_at",
	"updated_at",
}

// Conn is satisfied by both *sql.DB and *sql.Tx.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresOrderRepository struct {
	conn Conn
}

func NewPostgresOrderRepository(conn Conn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Insert stores a new order.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("failed to marshal customer: %w", err)
	}

	query, args, err := sq.Insert("orders").
		Columns(append(orderColumns, "customer_email")...).
		Values(
			o.ID,
			o.Number,
			o.Subtotal,
			o.ShippingCost,
			o.Fees,
			o.Total,
			o.Currency.String(),
			string(items),
			string(address),
			string(customer),
			nullString(o.PaymentMethod),
			nullString(o.PaymentID),
			string(o.Status),
			o.IsVerified,
			nullTime(o.PaidAt),
			string(o.FulfillmentStatus),
			o.Version,
			o.CreatedAt,
			o.UpdatedAt,
			strings.ToLower(o.Customer.Email),
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return order.ErrDuplicateNumber
		}

		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetByNumber returns the order with the given number.
func (r *PostgresOrderRepository) GetByNumber(ctx context.Context, number string) (order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"number": number}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build select query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	return o, nil
}

// Query retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Numbers) > 0 {
		builder = builder.Where(sq.Eq{"number": filter.Numbers})
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}

	if len(filter.FulfillmentStatuses) > 0 {
		statuses := make([]string, len(filter.FulfillmentStatuses))
		for i, s := range filter.FulfillmentStatuses {
			statuses[i] = string(s)
		}
		builder = builder.Where(sq.Eq{"fulfillment_status": statuses})
	}

	if filter.CustomerEmail != "" {
		builder = builder.Where(sq.Eq{"customer_email": strings.ToLower(filter.CustomerEmail)})
	}

	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// UpdatePayment writes the payment fields and bumps the version in one statement. The
// statement only matches while the row still has the expected version.
func (r *PostgresOrderRepository) UpdatePayment(ctx context.Context, u order.PaymentUpdate) error {
	query, args, err := sq.Update("orders").
		Set("status", string(u.Status)).
		Set("payment_id", nullString(u.PaymentID)).
		Set("payment_method", nullString(u.PaymentMethod)).
		Set("is_verified", u.IsVerified).
		Set("paid_at", nullTime(u.PaidAt)).
		Set("updated_at", u.UpdatedAt).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": u.OrderID}).
		Where(sq.Eq{"version": u.ExpectedVersion}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return order.ErrVersionConflict
	}

	return nil
}

// UpdateFulfillment sets the fulfillment status. It does not touch the version, which
// only guards payment state.
func (r *PostgresOrderRepository) UpdateFulfillment(
	ctx context.Context,
	number string,
	status order.FulfillmentStatus,
	updatedAt time.Time,
) error {
	query, args, err := sq.Update("orders").
		Set("fulfillment_status", string(status)).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"number": number}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update fulfillment status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return order.ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (order.Order, error) {
	var (
		o                        order.Order
		cur, status, fulfillment string
		items, address, customer []byte
		paymentMethod, paymentID sql.NullString
		paidAt                   sql.NullTime
	)

	err := row.Scan(
		&o.ID,
		&o.Number,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Fees,
		&o.Total,
		&cur,
		&items,
		&address,
		&customer,
		&paymentMethod,
		&paymentID,
		&status,
		&o.IsVerified,
		&paidAt,
		&fulfillment,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	if o.Currency, err = currency.ParseCurrency(cur); err != nil {
		return order.Order{}, err
	}
	if o.Status, err = order.ParseStatus(status); err != nil {
		return order.Order{}, err
	}
	if o.FulfillmentStatus, err = order.ParseFulfillmentStatus(fulfillment); err != nil {
		return order.Order{}, err
	}

	o.Items = []orderitem.OrderItem{}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return order.Order{}, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return order.Order{}, fmt.Errorf("failed to unmarshal customer: %w", err)
	}

	o.PaymentMethod = paymentMethod.String
	o.PaymentID = paymentID.String
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}

	return o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}
