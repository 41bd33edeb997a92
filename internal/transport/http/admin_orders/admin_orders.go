// Package adminorders holds the back-office order actions. Every route here sits behind
// the admin bearer token middleware.
package adminorders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"github.com/corray333/backend-labs/checkout/internal/service/services/reconciler"
	"github.com/corray333/backend-labs/checkout/pkg/http/response"
	"github.com/go-chi/chi/v5"
)

type paymentService interface {
	MarkPaid(ctx context.Context, number, method string) (order.Order, error)
	Unpay(ctx context.Context, number string) (order.Order, error)
	Verify(ctx context.Context, number string) (order.Order, error)
}

type fulfillmentService interface {
	SetFulfillment(ctx context.Context, number string, status order.FulfillmentStatus) (order.Order, error)
}

type sideEffectService interface {
	ListFailedSideEffects(ctx context.Context, limit int) ([]outbox.OutboxMessage, error)
}

type markPaidRequest struct {
	Method string `json:"method"`
}

type fulfillmentRequest struct {
	Status string `json:"status"`
}

type failedSideEffect struct {
	ID          int64           `json:"id"`
	Kind        outbox.Kind     `json:"kind"`
	OrderNumber string          `json:"orderNumber"`
	RetryCount  int             `json:"retryCount"`
	LastError   string          `json:"lastError"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// MarkPaid records a payment confirmed outside the processor. The body is optional.
//
//	@Summary	Mark order paid
//	@Tags		admin
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		number	path		string			true	"Order number"
//	@Param		request	body		markPaidRequest	false	"Payment method"
//	@Success	200		{object}	order.Order
//	@Failure	404		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/api/admin/orders/{number}/mark-paid [post]
func MarkPaid(w http.ResponseWriter, r *http.Request, service paymentService) {
	req := markPaidRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "invalid JSON body")

		return
	}

	number := chi.URLParam(r, "number")
	o, err := service.MarkPaid(r.Context(), number, req.Method)
	writeOrder(w, number, o, err)
}

// Unpay moves a paid order back to awaiting payment.
//
//	@Summary	Unpay order
//	@Tags		admin
//	@Produce	json
//	@Security	BearerAuth
//	@Param		number	path		string	true	"Order number"
//	@Success	200		{object}	order.Order
//	@Failure	404		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/api/admin/orders/{number}/unpay [post]
func Unpay(w http.ResponseWriter, r *http.Request, service paymentService) {
	number := chi.URLParam(r, "number")
	o, err := service.Unpay(r.Context(), number)
	writeOrder(w, number, o, err)
}

// Verify marks a paid order's payment as checked.
//
//	@Summary	Verify payment
//	@Tags		admin
//	@Produce	json
//	@Security	BearerAuth
//	@Param		number	path		string	true	"Order number"
//	@Success	200		{object}	order.Order
//	@Failure	404		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/api/admin/orders/{number}/verify [post]
func Verify(w http.ResponseWriter, r *http.Request, service paymentService) {
	number := chi.URLParam(r, "number")
	o, err := service.Verify(r.Context(), number)
	writeOrder(w, number, o, err)
}

// SetFulfillment updates the fulfillment status.
//
//	@Summary	Set fulfillment status
//	@Tags		admin
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		number	path		string				true	"Order number"
//	@Param		request	body		fulfillmentRequest	true	"waiting, processing, finished or cancelled"
//	@Success	200		{object}	order.Order
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	404		{object}	response.ErrorBody
//	@Router		/api/admin/orders/{number}/fulfillment [put]
func SetFulfillment(w http.ResponseWriter, r *http.Request, service fulfillmentService) {
	req := fulfillmentRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON body")

		return
	}

	status, err := order.ParseFulfillmentStatus(req.Status)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())

		return
	}

	number := chi.URLParam(r, "number")
	o, err := service.SetFulfillment(r.Context(), number, status)
	writeOrder(w, number, o, err)
}

// FailedSideEffects lists notifications and stock events that exhausted their retries.
//
//	@Summary	List failed side effects
//	@Tags		admin
//	@Produce	json
//	@Security	BearerAuth
//	@Param		limit	query		int	false	"Maximum rows"
//	@Success	200		{array}		failedSideEffect
//	@Router		/api/admin/side-effects/failed [get]
func FailedSideEffects(w http.ResponseWriter, r *http.Request, service sideEffectService) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, err := service.ListFailedSideEffects(r.Context(), limit)
	if err != nil {
		slog.Error("Error listing failed side effects", "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to list side effects")

		return
	}

	out := make([]failedSideEffect, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, failedSideEffect{
			ID:          m.ID,
			Kind:        m.Kind,
			OrderNumber: m.OrderNumber,
			RetryCount:  m.RetryCount,
			LastError:   m.LastError,
			Payload:     json.RawMessage(m.Payload),
			CreatedAt:   m.CreatedAt,
			UpdatedAt:   m.UpdatedAt,
		})
	}

	response.JSON(w, http.StatusOK, out)
}

func writeOrder(w http.ResponseWriter, number string, o order.Order, err error) {
	switch {
	case err == nil:
		response.JSON(w, http.StatusOK, o)
	case errors.Is(err, reconciler.ErrOrderNotFound), errors.Is(err, order.ErrNotFound):
		response.Error(w, http.StatusNotFound, "order not found")
	case errors.Is(err, reconciler.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrVersionConflict):
		response.Error(w, http.StatusConflict, "order was modified concurrently, retry")
	default:
		slog.Error("Error updating order", "reference", number, "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to update order")
	}
}
