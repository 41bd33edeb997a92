package getorder

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/pkg/http/response"
	"github.com/go-chi/chi/v5"
)

// service is an interface for the service layer.
type service interface {
	GetOrder(ctx context.Context, number string) (order.Order, error)
}

// GetOrder returns an order by its number. Used by the confirmation page to poll status.
//
//	@Summary	Get order
//	@Tags		orders
//	@Produce	json
//	@Param		number	path		string	true	"Order number"
//	@Success	200		{object}	order.Order
//	@Failure	404		{object}	response.ErrorBody
//	@Failure	500		{object}	response.ErrorBody
//	@Router		/api/orders/{number} [get]
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	number := chi.URLParam(r, "number")

	o, err := service.GetOrder(r.Context(), number)
	if errors.Is(err, order.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "order not found")

		return
	}
	if err != nil {
		slog.Error("Error getting order", "reference", number, "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to get order")

		return
	}

	response.JSON(w, http.StatusOK, o)
}
