package iorder

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
)

// IOrderRepository is an interface for order postgres repository.
type IOrderRepository interface {
	// Insert stores a new order. Returns order.ErrDuplicateNumber if the number is taken.
	Insert(ctx context.Context, o order.Order) error
	// GetByNumber returns order.ErrNotFound if no order has the given number.
	GetByNumber(ctx context.Context, number string) (order.Order, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	// UpdatePayment writes all payment fields in one statement guarded by the expected
	// version. Returns order.ErrVersionConflict when the guard does not match.
	UpdatePayment(ctx context.Context, update order.PaymentUpdate) error
	UpdateFulfillment(
		ctx context.Context,
		number string,
		status order.FulfillmentStatus,
		updatedAt time.Time,
	) error
}
