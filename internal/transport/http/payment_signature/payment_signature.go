package paymentsignature

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/corray333/backend-labs/checkout/internal/metrics"
	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"github.com/corray333/backend-labs/checkout/pkg/http/response"
	"github.com/go-playground/validator/v10"
)

// service is an interface for the service layer.
type service interface {
	Sign(ctx context.Context, req signing.Request) (signing.Result, error)
}

var validate = validator.New()

// Sign handles the signing request. The private key never leaves the server.
//
//	@Summary	Sign a payment initiation
//	@Tags		payments
//	@Accept		json
//	@Produce	json
//	@Param		request	body		signing.Request	true	"Payment to sign"
//	@Success	200		{object}	signing.Result
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	500		{object}	response.ErrorBody
//	@Router		/api/payments/signature [post]
func Sign(w http.ResponseWriter, r *http.Request, service service) {
	req := signing.Request{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON body")

		return
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.Reference = strings.TrimSpace(req.Reference)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)

	if err := validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "amount, currency, reference and customerEmail are required")

		return
	}

	res, err := service.Sign(r.Context(), req)
	if err != nil {
		metrics.RecordSignature(false)
		if errors.Is(err, signing.ErrMissingKey) {
			slog.Error("Payment signing requested without a private key")
			response.Error(w, http.StatusInternalServerError, "payment signing is not configured")

			return
		}
		slog.Error("Error signing payment", "reference", req.Reference, "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to sign payment")

		return
	}

	metrics.RecordSignature(true)
	response.JSON(w, http.StatusOK, res)
}
