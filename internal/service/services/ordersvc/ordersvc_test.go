package ordersvc

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/dal/uow/uowtest"
	"github.com/corray333/backend-labs/checkout/internal/service/models/currency"
	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"github.com/corray333/backend-labs/checkout/internal/service/services/paysession"
	"github.com/corray333/backend-labs/checkout/internal/service/services/pricing"
	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeInitiator struct {
	got signing.Request
	err error
}

func (f *fakeInitiator) Initiate(_ context.Context, req signing.Request) (paysession.Session, error) {
	f.got = req
	if f.err != nil {
		return paysession.Session{}, f.err
	}

	return paysession.Session{Reference: req.Reference, Amount: req.Amount, Signature: "sig"}, nil
}

func newService(store *uowtest.Store, init *fakeInitiator) *OrderService {
	s := MustNewOrderService(
		WithUnitOfWorkFactory(store.Factory()),
		WithCalculator(pricing.NewCalculator(decimal.RequireFromString("0.0295"), 1000)),
		WithInitiator(init),
	)
	s.now = func() time.Time { return fixedNow }

	return s
}

func checkout() CreateOrderInput {
	return CreateOrderInput{
		Items: []orderitem.OrderItem{
			{ProductID: "oud-50", Name: "Oud 50ml", UnitPrice: 50000, Quantity: 2, TrackStock: true},
		},
		ShippingCost:  0,
		Currency:      currency.CurrencyCOP,
		Customer:      order.Customer{Name: "Ana", Email: "ana@example.com", Phone: "3000000000"},
		PaymentMethod: "card",
	}
}

func TestCreateOrder(t *testing.T) {
	store := uowtest.NewStore()
	s := newService(store, &fakeInitiator{})

	o, err := s.CreateOrder(context.Background(), checkout())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ORD-20260301-[0-9A-F]{6}$`), o.Number)
	assert.EqualValues(t, 100000, o.Subtotal)
	assert.EqualValues(t, 3950, o.Fees)
	assert.EqualValues(t, 103950, o.Total)
	assert.Equal(t, o.Subtotal+o.ShippingCost+o.Fees, o.Total)
	assert.Equal(t, order.StatusAwaitingPayment, o.Status)
	assert.Equal(t, order.FulfillmentWaiting, o.FulfillmentStatus)
	assert.Equal(t, "CARD", o.PaymentMethod)
	assert.False(t, o.IsVerified)
	assert.EqualValues(t, 1, o.Version)

	stored, found := store.Order(o.Number)
	require.True(t, found)
	assert.Equal(t, o, stored)
}

func TestCreateOrder_Invalid(t *testing.T) {
	s := newService(uowtest.NewStore(), &fakeInitiator{})

	empty := checkout()
	empty.Items = nil
	badQty := checkout()
	badQty.Items[0].Quantity = 0
	negativeShipping := checkout()
	negativeShipping.ShippingCost = -1

	for _, in := range []CreateOrderInput{empty, badQty, negativeShipping} {
		_, err := s.CreateOrder(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidOrder)
	}
}

func TestCreateOrder_AmountLimits(t *testing.T) {
	s := newService(uowtest.NewStore(), &fakeInitiator{})

	atLimit := checkout()
	atLimit.Items = []orderitem.OrderItem{{ProductID: "vault", UnitPrice: pricing.MaxAmount, Quantity: 1}}
	atLimit.ShippingCost = pricing.MaxAmount

	o, err := s.CreateOrder(context.Background(), atLimit)
	require.NoError(t, err)
	assert.Equal(t, pricing.MaxAmount, o.Subtotal)
	assert.Equal(t, o.Subtotal+o.ShippingCost+o.Fees, o.Total)
	assert.Positive(t, o.Total)

	overPrice := checkout()
	overPrice.Items[0].UnitPrice = pricing.MaxAmount + 1
	overShipping := checkout()
	overShipping.ShippingCost = pricing.MaxAmount + 1
	overSubtotal := checkout()
	overSubtotal.Items = []orderitem.OrderItem{
		{ProductID: "a", UnitPrice: pricing.MaxAmount, Quantity: 1},
		{ProductID: "b", UnitPrice: 1, Quantity: 1},
	}
	wrapping := checkout()
	wrapping.Items = []orderitem.OrderItem{{ProductID: "a", UnitPrice: pricing.MaxAmount, Quantity: 1 << 30}}

	for _, in := range []CreateOrderInput{overPrice, overShipping, overSubtotal, wrapping} {
		_, err := s.CreateOrder(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidOrder)
	}
}

func TestCreateOrder_RetriesOnNumberCollision(t *testing.T) {
	store := uowtest.NewStore()
	s := newService(store, &fakeInitiator{})

	taken, err := s.CreateOrder(context.Background(), checkout())
	require.NoError(t, err)

	numbers := []string{taken.Number, taken.Number, "ORD-20260301-FRESH1"}
	s.newNumber = func(time.Time) string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}

	o, err := s.CreateOrder(context.Background(), checkout())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260301-FRESH1", o.Number)

	numbers = []string{taken.Number, taken.Number, taken.Number}
	_, err = s.CreateOrder(context.Background(), checkout())
	assert.ErrorIs(t, err, order.ErrDuplicateNumber)
}

func TestStartPaymentSession(t *testing.T) {
	store := uowtest.NewStore()
	init := &fakeInitiator{}
	s := newService(store, init)

	o, err := s.CreateOrder(context.Background(), checkout())
	require.NoError(t, err)

	session, err := s.StartPaymentSession(context.Background(), o.Number)
	require.NoError(t, err)
	assert.Equal(t, o.Number, session.Reference)
	assert.Equal(t, signing.Request{
		Amount:        103950,
		Currency:      "COP",
		Reference:     o.Number,
		CustomerEmail: "ana@example.com",
	}, init.got)
}

func TestStartPaymentSession_Refusals(t *testing.T) {
	store := uowtest.NewStore()
	s := newService(store, &fakeInitiator{err: errors.New("signing endpoint returned 500")})

	_, err := s.StartPaymentSession(context.Background(), "ORD-NOPE")
	assert.ErrorIs(t, err, order.ErrNotFound)

	o, err := s.CreateOrder(context.Background(), checkout())
	require.NoError(t, err)
	_, err = s.StartPaymentSession(context.Background(), o.Number)
	assert.ErrorContains(t, err, "signing endpoint returned 500")

	paid := o
	paid.Number = "ORD-PAID"
	paid.Status = order.StatusPaid
	now := fixedNow
	paid.PaidAt = &now
	store.PutOrder(paid)

	_, err = s.StartPaymentSession(context.Background(), "ORD-PAID")
	assert.ErrorIs(t, err, ErrNotPayable)
}

func TestSetFulfillment(t *testing.T) {
	store := uowtest.NewStore()
	s := newService(store, &fakeInitiator{})

	o, err := s.CreateOrder(context.Background(), checkout())
	require.NoError(t, err)

	updated, err := s.SetFulfillment(context.Background(), o.Number, order.FulfillmentProcessing)
	require.NoError(t, err)
	assert.Equal(t, order.FulfillmentProcessing, updated.FulfillmentStatus)
	assert.Equal(t, order.StatusAwaitingPayment, updated.Status)
	assert.Equal(t, o.Version, updated.Version)

	_, err = s.SetFulfillment(context.Background(), "ORD-NOPE", order.FulfillmentFinished)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestListOrders(t *testing.T) {
	store := uowtest.NewStore()
	s := newService(store, &fakeInitiator{})

	for i := 0; i < 3; i++ {
		i := i
		s.now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Minute) }
		_, err := s.CreateOrder(context.Background(), checkout())
		require.NoError(t, err)
	}

	orders, err := s.ListOrders(context.Background(), order.QueryOrdersModel{Limit: 2})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.True(t, orders[0].CreatedAt.After(orders[1].CreatedAt))

	orders, err = s.ListOrders(context.Background(), order.QueryOrdersModel{Statuses: []order.Status{order.StatusPaid}})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestListFailedSideEffects(t *testing.T) {
	store := uowtest.NewStore()
	s := newService(store, &fakeInitiator{})

	_, err := store.OutboxRepo().Insert(context.Background(), outbox.OutboxMessage{
		Kind: outbox.KindOrderConfirmation, DedupKey: "confirmation:ORD-1", RetryCount: 5, MaxRetries: 5,
	})
	require.NoError(t, err)
	_, err = store.OutboxRepo().Insert(context.Background(), outbox.OutboxMessage{
		Kind: outbox.KindStockDecrement, DedupKey: "stock:ORD-1:p", RetryCount: 1, MaxRetries: 5,
	})
	require.NoError(t, err)

	failed, err := s.ListFailedSideEffects(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "confirmation:ORD-1", failed[0].DedupKey)
}

func TestQuote(t *testing.T) {
	s := newService(uowtest.NewStore(), &fakeInitiator{})

	assert.Equal(t, pricing.FeeBreakdown{
		Subtotal: 100000, Shipping: 0, BaseTotal: 100000, Fees: 3950, Total: 103950,
	}, s.Quote(100000, 0))
}
