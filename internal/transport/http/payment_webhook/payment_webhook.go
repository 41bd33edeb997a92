package paymentwebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/checkout/internal/metrics"
	"github.com/corray333/backend-labs/checkout/internal/service/models/payment"
	"github.com/corray333/backend-labs/checkout/internal/service/services/reconciler"
	"github.com/corray333/backend-labs/checkout/internal/service/services/webhook"
	"github.com/corray333/backend-labs/checkout/pkg/http/response"
)

// maxBodyBytes caps the webhook body read.
const maxBodyBytes = 1 << 20

// verifier authenticates and decodes notifications.
type verifier interface {
	Verify(raw []byte, checksum string) error
	Parse(raw []byte) (payment.Event, error)
}

// service is an interface for the service layer.
type service interface {
	Reconcile(ctx context.Context, in reconciler.Input) (reconciler.Result, error)
}

type webhookResponse struct {
	Status      string `json:"status"`
	OrderStatus string `json:"orderStatus,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// Handle receives payment processor notifications. The checksum is checked against the
// exact bytes received before anything is decoded.
//
//	@Summary	Payment processor webhook
//	@Tags		payments
//	@Accept		json
//	@Produce	json
//	@Param		X-Event-Checksum	header		string	true	"Hex HMAC-SHA256 of the raw body"
//	@Success	200					{object}	webhookResponse
//	@Failure	400					{object}	response.ErrorBody
//	@Failure	401					{object}	response.ErrorBody
//	@Failure	404					{object}	response.ErrorBody
//	@Failure	500					{object}	response.ErrorBody
//	@Router		/api/webhooks/payments [post]
func Handle(w http.ResponseWriter, r *http.Request, verifier verifier, service service) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordWebhook(metrics.WebhookRejected)
		response.Error(w, http.StatusBadRequest, "failed to read body")

		return
	}

	if err := verifier.Verify(raw, r.Header.Get(webhook.ChecksumHeader)); err != nil {
		metrics.RecordWebhook(metrics.WebhookRejected)
		switch {
		case errors.Is(err, webhook.ErrNotConfigured):
			slog.Error("Webhook received but no secret is configured")
			response.Error(w, http.StatusInternalServerError, "webhook verification is not configured")
		case errors.Is(err, webhook.ErrMissingChecksum):
			response.Error(w, http.StatusBadRequest, "missing checksum header")
		default:
			slog.Warn("Webhook checksum mismatch", "remote_addr", r.RemoteAddr)
			response.Error(w, http.StatusUnauthorized, "invalid checksum")
		}

		return
	}

	ev, err := verifier.Parse(raw)
	if err != nil {
		metrics.RecordWebhook(metrics.WebhookRejected)
		slog.Warn("Malformed webhook payload", "error", err)
		response.Error(w, http.StatusBadRequest, "malformed payload")

		return
	}

	if !webhook.Actionable(ev) {
		metrics.RecordWebhook(metrics.WebhookIgnored)
		slog.Info("Ignoring webhook event", "event", ev.Event)
		response.JSON(w, http.StatusOK, webhookResponse{Status: "ignored"})

		return
	}

	res, err := service.Reconcile(r.Context(), reconciler.Input{
		Reference:         ev.Data.Reference,
		ProcessorStatus:   ev.Data.Status,
		PaymentID:         ev.Data.ID,
		PaymentMethodType: ev.Data.PaymentMethod.Type,
		Amount:            ev.Data.Amount,
		Currency:          ev.Data.Currency,
	})
	if errors.Is(err, reconciler.ErrOrderNotFound) {
		metrics.RecordWebhook(metrics.WebhookUnknownOrder)
		slog.Warn("Webhook for unknown order", "reference", ev.Data.Reference)
		response.Error(w, http.StatusNotFound, "order not found")

		return
	}
	if err != nil {
		metrics.RecordWebhook(metrics.WebhookError)
		slog.Error("Failed to reconcile webhook", "reference", ev.Data.Reference, "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to process webhook")

		return
	}

	if res.Duplicate {
		metrics.RecordWebhook(metrics.WebhookDuplicate)
	} else {
		metrics.RecordWebhook(metrics.WebhookProcessed)
	}

	slog.Info("Webhook processed",
		"reference", res.Reference,
		"processor_status", ev.Data.Status,
		"order_status", res.Status,
		"changed", res.Changed,
	)

	response.JSON(w, http.StatusOK, webhookResponse{
		Status:      "success",
		OrderStatus: res.Status.String(),
		Reference:   res.Reference,
	})
}
