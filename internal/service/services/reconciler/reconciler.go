// Package reconciler moves orders through payment states in response to processor
// webhooks and back-office actions.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/checkout/internal/metrics"
	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrOrderNotFound means the reference does not match any order. Orders are never
	// created from webhooks.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition means a back-office action does not apply to the order's
	// current state.
	ErrInvalidTransition = errors.New("invalid order transition")
)

// dedupStore remembers webhook results that were already applied.
type dedupStore interface {
	Recall(ctx context.Context, key string) (string, bool, error)
	Remember(ctx context.Context, key, value string) error
}

// Input is a verified payment processor notification.
type Input struct {
	Reference         string
	ProcessorStatus   string
	PaymentID         string
	PaymentMethodType string
	// Amount is what the shopper paid, in minor units of Currency.
	Amount   int64
	Currency string
}

// Result describes what reconciliation did.
type Result struct {
	Reference string       `json:"reference"`
	Status    order.Status `json:"orderStatus"`
	// Changed is true when the order row was written.
	Changed bool `json:"changed"`
	// Duplicate is true when the notification had already been applied.
	Duplicate bool `json:"duplicate"`
}

// Reconciler applies payment status changes to orders.
type Reconciler struct {
	newUOW           iuow.Factory
	dedup            dedupStore
	autoVerified     map[string]struct{}
	outboxMaxRetries int
	now              func() time.Time
}

// option is a function that configures the Reconciler.
type option func(*Reconciler)

// MustNewReconciler creates a new Reconciler. It panics without a unit of work factory.
func MustNewReconciler(opts ...option) *Reconciler {
	r := &Reconciler{
		autoVerified:     map[string]struct{}{},
		outboxMaxRetries: 5,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.newUOW == nil {
		panic("reconciler: unit of work factory is required")
	}

	return r
}

// WithUnitOfWorkFactory sets the transaction factory.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(f iuow.Factory) option {
	return func(r *Reconciler) {
		r.newUOW = f
	}
}

// WithDedupStore enables the webhook result cache.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDedupStore(store dedupStore) option {
	return func(r *Reconciler) {
		r.dedup = store
	}
}

// WithAutoVerifiedMethods sets the payment method types whose payments need no manual
// verification when marked paid by an operator.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAutoVerifiedMethods(methods []string) option {
	return func(r *Reconciler) {
		for _, m := range methods {
			r.autoVerified[strings.ToUpper(strings.TrimSpace(m))] = struct{}{}
		}
	}
}

// WithOutboxMaxRetries sets the delivery attempts granted to enqueued side effects.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOutboxMaxRetries(n int) option {
	return func(r *Reconciler) {
		if n > 0 {
			r.outboxMaxRetries = n
		}
	}
}

// Reconcile applies a processor status to the order referenced by in. It is safe to
// call repeatedly with the same input: the second call writes nothing and enqueues no
// side effects. A paid order is never moved out of paid here.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) (Result, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Reconciler.Reconcile")
	defer span.End()

	target := MapStatus(in.ProcessorStatus)
	span.SetAttributes(
		attribute.String("order.reference", in.Reference),
		attribute.String("order.target_status", target.String()),
	)

	log := slog.With("reference", in.Reference, "processor_status", in.ProcessorStatus)

	key := dedupKey(in)
	if r.dedup != nil && in.PaymentID != "" {
		if res, ok := r.recall(ctx, key, in.Reference, log); ok {
			return res, nil
		}
	}

	var res Result
	err := r.withRetry(ctx, func(work iuow.IUnitOfWork) error {
		o, err := work.OrderRepository().GetByNumber(ctx, in.Reference)
		if errors.Is(err, order.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		res = Result{Reference: o.Number, Status: o.Status}

		target := target
		if target == order.StatusPaid && !paidInFull(o, in) {
			log.Warn("Approved payment does not match order total, holding as pending",
				"expected_amount", o.Total,
				"expected_currency", o.Currency.String(),
				"amount", in.Amount,
				"currency", in.Currency,
			)
			target = order.StatusPending
		}

		if o.Status == order.StatusPaid && target != order.StatusPaid {
			log.Warn("Ignoring status change for paid order", "order_status", o.Status, "target", target)

			return nil
		}
		if o.Status == target && o.PaymentID == in.PaymentID {
			res.Duplicate = true

			return nil
		}

		update := order.PaymentUpdate{
			OrderID:         o.ID,
			ExpectedVersion: o.Version,
			Status:          target,
			PaymentID:       in.PaymentID,
			PaymentMethod:   in.PaymentMethodType,
			IsVerified:      o.IsVerified,
			PaidAt:          o.PaidAt,
			UpdatedAt:       r.now(),
		}
		if update.PaymentMethod == "" {
			update.PaymentMethod = o.PaymentMethod
		}
		if target == order.StatusPaid {
			// Processor approval needs no manual verification.
			update.IsVerified = true
			if o.Status != order.StatusPaid {
				paidAt := update.UpdatedAt
				update.PaidAt = &paidAt
			}
		}

		if err := r.apply(ctx, work, o, update); err != nil {
			return err
		}

		res.Status = target
		res.Changed = true

		return nil
	})
	if err != nil {
		span.RecordError(err)

		return Result{}, err
	}

	metrics.RecordReconciliation(res.Status.String(), res.Changed)
	log.Info("Order reconciled", "order_status", res.Status, "changed", res.Changed)

	if r.dedup != nil && in.PaymentID != "" {
		if err := r.dedup.Remember(ctx, key, res.Status.String()); err != nil {
			log.Warn("Failed to remember webhook result", "error", err)
		}
	}

	return res, nil
}

func dedupKey(in Input) string {
	return in.Reference + ":" + in.PaymentID + ":" + strings.ToUpper(strings.TrimSpace(in.ProcessorStatus))
}

// recall answers from the dedup cache only while the order still holds the cached
// status. An operator action since then invalidates the entry.
func (r *Reconciler) recall(ctx context.Context, key, reference string, log *slog.Logger) (Result, bool) {
	cached, found, err := r.dedup.Recall(ctx, key)
	if err != nil {
		log.Warn("Failed to recall webhook result", "error", err)

		return Result{}, false
	}
	if !found {
		return Result{}, false
	}

	o, err := r.newUOW().OrderRepository().GetByNumber(ctx, reference)
	if err != nil {
		log.Warn("Failed to read order for cached webhook result", "error", err)

		return Result{}, false
	}
	if o.Status.String() != cached {
		log.Info("Cached webhook result is stale", "cached_status", cached, "order_status", o.Status)

		return Result{}, false
	}

	log.Info("Duplicate webhook skipped", "order_status", o.Status)
	metrics.RecordReconciliation(o.Status.String(), false)

	return Result{Reference: o.Number, Status: o.Status, Duplicate: true}, true
}

// paidInFull reports whether the processor charged the order's total in its currency.
func paidInFull(o order.Order, in Input) bool {
	return in.Amount == o.Total && strings.EqualFold(strings.TrimSpace(in.Currency), o.Currency.String())
}

// MarkPaid records a payment confirmed outside the processor, such as cash on delivery.
// The order is verified only when method is auto-verified.
func (r *Reconciler) MarkPaid(ctx context.Context, number, method string) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Reconciler.MarkPaid")
	defer span.End()

	method = strings.ToUpper(strings.TrimSpace(method))

	return r.adminUpdate(ctx, number, func(o order.Order, now time.Time) (order.PaymentUpdate, error) {
		if o.Status == order.StatusPaid {
			return order.PaymentUpdate{}, fmt.Errorf("%w: order is already paid", ErrInvalidTransition)
		}
		if method == "" {
			method = o.PaymentMethod
		}
		_, verified := r.autoVerified[strings.ToUpper(method)]

		return order.PaymentUpdate{
			OrderID:         o.ID,
			ExpectedVersion: o.Version,
			Status:          order.StatusPaid,
			PaymentID:       o.PaymentID,
			PaymentMethod:   method,
			IsVerified:      verified,
			PaidAt:          &now,
			UpdatedAt:       now,
		}, nil
	})
}

// Unpay moves a paid order back to awaiting payment.
func (r *Reconciler) Unpay(ctx context.Context, number string) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Reconciler.Unpay")
	defer span.End()

	return r.adminUpdate(ctx, number, func(o order.Order, now time.Time) (order.PaymentUpdate, error) {
		if o.Status != order.StatusPaid {
			return order.PaymentUpdate{}, fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
		}

		return order.PaymentUpdate{
			OrderID:         o.ID,
			ExpectedVersion: o.Version,
			Status:          order.StatusAwaitingPayment,
			PaymentID:       o.PaymentID,
			PaymentMethod:   o.PaymentMethod,
			IsVerified:      false,
			PaidAt:          nil,
			UpdatedAt:       now,
		}, nil
	})
}

// Verify marks a paid order's payment as checked by an operator.
func (r *Reconciler) Verify(ctx context.Context, number string) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Reconciler.Verify")
	defer span.End()

	return r.adminUpdate(ctx, number, func(o order.Order, now time.Time) (order.PaymentUpdate, error) {
		if o.Status != order.StatusPaid {
			return order.PaymentUpdate{}, fmt.Errorf("%w: only paid orders can be verified", ErrInvalidTransition)
		}

		return order.PaymentUpdate{
			OrderID:         o.ID,
			ExpectedVersion: o.Version,
			Status:          o.Status,
			PaymentID:       o.PaymentID,
			PaymentMethod:   o.PaymentMethod,
			IsVerified:      true,
			PaidAt:          o.PaidAt,
			UpdatedAt:       now,
		}, nil
	})
}

func (r *Reconciler) adminUpdate(
	ctx context.Context,
	number string,
	build func(o order.Order, now time.Time) (order.PaymentUpdate, error),
) (order.Order, error) {
	var updated order.Order
	err := r.withRetry(ctx, func(work iuow.IUnitOfWork) error {
		o, err := work.OrderRepository().GetByNumber(ctx, number)
		if errors.Is(err, order.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		update, err := build(o, r.now())
		if err != nil {
			return err
		}

		if err := r.apply(ctx, work, o, update); err != nil {
			return err
		}
		updated = update.Apply(o)

		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	slog.Info("Order payment state changed by operator",
		"reference", updated.Number,
		"order_status", updated.Status,
		"is_verified", updated.IsVerified,
	)
	metrics.RecordReconciliation(updated.Status.String(), true)

	return updated, nil
}

// apply writes update and, on entry into paid, enqueues the order's side effects in
// the same transaction.
func (r *Reconciler) apply(ctx context.Context, work iuow.IUnitOfWork, o order.Order, update order.PaymentUpdate) error {
	if err := work.OrderRepository().UpdatePayment(ctx, update); err != nil {
		return err
	}

	if update.Status != order.StatusPaid || o.Status == order.StatusPaid {
		return nil
	}

	msgs, err := r.sideEffects(update.Apply(o))
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		inserted, err := work.OutboxRepository().Insert(ctx, msg)
		if err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", msg.Kind, err)
		}
		if !inserted {
			slog.Info("Side effect already enqueued", "reference", o.Number, "dedup_key", msg.DedupKey)
		}
	}

	return nil
}

func (r *Reconciler) sideEffects(o order.Order) ([]outbox.OutboxMessage, error) {
	now := r.now()
	newMessage := func(kind outbox.Kind, key string, payload any) (outbox.OutboxMessage, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return outbox.OutboxMessage{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
		}

		return outbox.OutboxMessage{
			Kind:        kind,
			DedupKey:    key,
			OrderNumber: o.Number,
			Payload:     body,
			ContentType: outbox.ContentTypeJSON,
			MaxRetries:  r.outboxMaxRetries,
			CreatedAt:   now,
			UpdatedAt:   now,
			NextRetryAt: now,
		}, nil
	}

	confirmation := outbox.OrderConfirmation{
		OrderNumber:   o.Number,
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		Total:         o.Total,
		Currency:      o.Currency.String(),
		PaymentMethod: o.PaymentMethod,
		IsVerified:    o.IsVerified,
		Items:         make([]outbox.Line, 0, len(o.Items)),
	}
	if o.PaidAt != nil {
		confirmation.PaidAt = *o.PaidAt
	}
	for _, item := range o.Items {
		confirmation.Items = append(confirmation.Items, outbox.Line{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	msg, err := newMessage(outbox.KindOrderConfirmation, outbox.ConfirmationKey(o.Number), confirmation)
	if err != nil {
		return nil, err
	}
	msgs := []outbox.OutboxMessage{msg}

	// One decrement per product; repeated lines for a product are summed.
	quantities := map[string]int{}
	var products []string
	for _, item := range o.Items {
		if !item.TrackStock || item.Quantity <= 0 {
			continue
		}
		if _, seen := quantities[item.ProductID]; !seen {
			products = append(products, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}
	for _, productID := range products {
		msg, err := newMessage(outbox.KindStockDecrement, outbox.StockKey(o.Number, productID), outbox.StockDecrement{
			OrderNumber: o.Number,
			ProductID:   productID,
			Quantity:    quantities[productID],
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

// withRetry runs fn in a transaction, retrying once from a fresh read when the
// version guard rejects the write.
func (r *Reconciler) withRetry(ctx context.Context, fn func(work iuow.IUnitOfWork) error) error {
	const attempts = 2

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = r.inTx(ctx, fn)
		if !errors.Is(err, order.ErrVersionConflict) {
			return err
		}
		slog.Warn("Order changed concurrently, retrying", "attempt", attempt)
	}

	return err
}

func (r *Reconciler) inTx(ctx context.Context, fn func(work iuow.IUnitOfWork) error) error {
	work := r.newUOW()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := work.Rollback(); err != nil {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(work); err != nil {
		return err
	}

	if err := work.Commit(); err != nil {
		if errors.Is(err, order.ErrVersionConflict) {
			return err
		}

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
