package paymentsession

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/checkout/internal/service/services/paysession"
	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"github.com/corray333/backend-labs/checkout/pkg/http/response"
	"github.com/go-chi/chi/v5"
)

// service is an interface for the service layer.
type service interface {
	StartPaymentSession(ctx context.Context, number string) (paysession.Session, error)
}

// StartSession returns a freshly signed payment session for an order awaiting payment.
//
//	@Summary	Start payment session
//	@Tags		payments
//	@Produce	json
//	@Param		number	path		string	true	"Order number"
//	@Success	200		{object}	paysession.Session
//	@Failure	404		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Failure	500		{object}	response.ErrorBody
//	@Router		/api/orders/{number}/payment-session [post]
func StartSession(w http.ResponseWriter, r *http.Request, service service) {
	number := chi.URLParam(r, "number")

	session, err := service.StartPaymentSession(r.Context(), number)
	switch {
	case err == nil:
		response.JSON(w, http.StatusOK, session)
	case errors.Is(err, order.ErrNotFound):
		response.Error(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ordersvc.ErrNotPayable):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, signing.ErrMissingKey), errors.Is(err, signing.ErrSigningFailed):
		slog.Error("Failed to start payment session", "reference", number, "error", err)
		response.Error(w, http.StatusInternalServerError, "payment could not be initialized")
	default:
		slog.Error("Error starting payment session", "reference", number, "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to start payment session")
	}
}
