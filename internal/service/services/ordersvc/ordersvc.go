package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/checkout/internal/service/models/currency"
	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"github.com/corray333/backend-labs/checkout/internal/service/services/paysession"
	"github.com/corray333/backend-labs/checkout/internal/service/services/pricing"
	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	numberAttempts   = 3
)

var (
	// ErrInvalidOrder is returned for checkouts that cannot be priced.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrNotPayable is returned when a payment session is requested for an order that is
	// not awaiting payment.
	ErrNotPayable = errors.New("order is not awaiting payment")
)

type initiator interface {
	Initiate(ctx context.Context, req signing.Request) (paysession.Session, error)
}

// OrderService is a service for managing orders.
type OrderService struct {
	newUOW     iuow.Factory
	calculator *pricing.Calculator
	initiator  initiator
	now        func() time.Time
	newNumber  func(time.Time) string
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{now: time.Now, newNumber: newOrderNumber}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("ordersvc: unit of work factory is required")
	}
	if s.calculator == nil {
		panic("ordersvc: fee calculator is required")
	}

	return s
}

// WithUnitOfWorkFactory sets the transaction factory for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(f iuow.Factory) option {
	return func(s *OrderService) {
		s.newUOW = f
	}
}

// WithCalculator sets the fee calculator for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCalculator(c *pricing.Calculator) option {
	return func(s *OrderService) {
		s.calculator = c
	}
}

// WithInitiator sets the payment session initiator for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithInitiator(i initiator) option {
	return func(s *OrderService) {
		s.initiator = i
	}
}

// CreateOrderInput is a validated checkout submission.
type CreateOrderInput struct {
	Items           []orderitem.OrderItem
	ShippingCost    int64
	Currency        currency.Currency
	Customer        order.Customer
	ShippingAddress order.ShippingAddress
	PaymentMethod   string
}

// Quote returns the fee breakdown for a subtotal and shipping cost.
func (s *OrderService) Quote(subtotal, shipping int64) pricing.FeeBreakdown {
	return s.calculator.Calculate(subtotal, shipping)
}

// CreateOrder snapshots the cart and stores an order awaiting payment. The total
// includes processor fees.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(in.Items) == 0 {
		return order.Order{}, fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 || item.UnitPrice < 0 || item.UnitPrice > pricing.MaxAmount {
			return order.Order{}, fmt.Errorf("%w: bad line for product %s", ErrInvalidOrder, item.ProductID)
		}
	}
	if in.ShippingCost < 0 || in.ShippingCost > pricing.MaxAmount {
		return order.Order{}, fmt.Errorf("%w: shipping cost out of range", ErrInvalidOrder)
	}

	subtotal, err := orderitem.Subtotal(in.Items)
	if err != nil {
		return order.Order{}, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}
	if subtotal > pricing.MaxAmount {
		return order.Order{}, fmt.Errorf("%w: subtotal exceeds %d", ErrInvalidOrder, pricing.MaxAmount)
	}

	breakdown := s.calculator.Calculate(subtotal, in.ShippingCost)
	if breakdown.Total <= 0 {
		return order.Order{}, fmt.Errorf("%w: nothing to charge", ErrInvalidOrder)
	}

	now := s.now().UTC()
	o := order.Order{
		ID:                uuid.New(),
		Subtotal:          breakdown.Subtotal,
		ShippingCost:      breakdown.Shipping,
		Fees:              breakdown.Fees,
		Total:             breakdown.Total,
		Currency:          in.Currency,
		Items:             in.Items,
		ShippingAddress:   in.ShippingAddress,
		Customer:          in.Customer,
		PaymentMethod:     strings.ToUpper(strings.TrimSpace(in.PaymentMethod)),
		Status:            order.StatusAwaitingPayment,
		FulfillmentStatus: order.FulfillmentWaiting,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	work := s.newUOW()
	for i := 0; i < numberAttempts; i++ {
		o.Number = s.newNumber(now)
		err = work.OrderRepository().Insert(ctx, o)
		if !errors.Is(err, order.ErrDuplicateNumber) {
			break
		}
		slog.Warn("Order number collision, regenerating", "reference", o.Number)
	}
	if err != nil {
		span.RecordError(err)

		return order.Order{}, err
	}

	span.SetAttributes(attribute.String("order.reference", o.Number))
	slog.Info("Order created", "reference", o.Number, "total", o.Total, "currency", o.Currency.String())

	return o, nil
}

// GetOrder returns the order with the given number.
func (s *OrderService) GetOrder(ctx context.Context, number string) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.GetOrder")
	defer span.End()

	return s.newUOW().OrderRepository().GetByNumber(ctx, number)
}

// ListOrders returns orders matching the filter, newest first.
func (s *OrderService) ListOrders(ctx context.Context, query order.QueryOrdersModel) ([]order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.ListOrders")
	defer span.End()

	if query.Limit <= 0 {
		query.Limit = defaultListLimit
	}
	if query.Limit > maxListLimit {
		query.Limit = maxListLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	return s.newUOW().OrderRepository().Query(ctx, &query)
}

// SetFulfillment updates the fulfillment status. Payment state is untouched.
func (s *OrderService) SetFulfillment(
	ctx context.Context,
	number string,
	status order.FulfillmentStatus,
) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.SetFulfillment")
	defer span.End()

	repo := s.newUOW().OrderRepository()
	if err := repo.UpdateFulfillment(ctx, number, status, s.now().UTC()); err != nil {
		return order.Order{}, err
	}

	slog.Info("Fulfillment status changed", "reference", number, "fulfillment_status", status)

	return repo.GetByNumber(ctx, number)
}

// StartPaymentSession signs a payment session for an order awaiting payment. The order
// number is the payment reference, so every attempt targets the same order.
func (s *OrderService) StartPaymentSession(ctx context.Context, number string) (paysession.Session, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.StartPaymentSession")
	defer span.End()

	o, err := s.newUOW().OrderRepository().GetByNumber(ctx, number)
	if err != nil {
		return paysession.Session{}, err
	}
	if o.Status != order.StatusAwaitingPayment {
		return paysession.Session{}, fmt.Errorf("%w: order is %s", ErrNotPayable, o.Status)
	}
	if s.initiator == nil {
		return paysession.Session{}, fmt.Errorf("%w: no initiator configured", signing.ErrSigningFailed)
	}

	return s.initiator.Initiate(ctx, signing.Request{
		Amount:        o.Total,
		Currency:      o.Currency.String(),
		Reference:     o.Number,
		CustomerEmail: o.Customer.Email,
	})
}

// ListFailedSideEffects returns side effects that exhausted their retries.
func (s *OrderService) ListFailedSideEffects(ctx context.Context, limit int) ([]outbox.OutboxMessage, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	return s.newUOW().OutboxRepository().ListExhausted(ctx, limit)
}

// newOrderNumber returns ORD-YYYYMMDD-XXXXXX with six random hex digits.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])

	return "ORD-" + now.Format("20060102") + "-" + suffix
}
