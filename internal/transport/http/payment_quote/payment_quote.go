package paymentquote

import (
	"encoding/json"
	"net/http"

	"github.com/corray333/backend-labs/checkout/internal/service/services/pricing"
	"github.com/corray333/backend-labs/checkout/pkg/http/response"
)

type service interface {
	Quote(subtotal, shipping int64) pricing.FeeBreakdown
}

type quoteRequest struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
}

// Quote returns the fee breakdown shown at checkout. Malformed amounts count as zero.
//
//	@Summary	Quote processor fees
//	@Tags		payments
//	@Accept		json
//	@Produce	json
//	@Param		request	body		quoteRequest	true	"Amounts in minor units"
//	@Success	200		{object}	pricing.FeeBreakdown
//	@Failure	400		{object}	response.ErrorBody
//	@Router		/api/payments/quote [post]
func Quote(w http.ResponseWriter, r *http.Request, service service) {
	req := quoteRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON body")

		return
	}

	response.JSON(w, http.StatusOK, service.Quote(
		pricing.CoerceAmount(req.Subtotal),
		pricing.CoerceAmount(req.Shipping),
	))
}
