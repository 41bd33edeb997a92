package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const maxResponseBytes = 64 << 10

// Client calls a remote signing endpoint. It never retries: a failed attempt is surfaced
// to the caller, who may start a new session.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a Client with an explicit request timeout.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Sign posts req to the signing endpoint and decodes {signature, timestamp}.
func (c *Client) Sign(ctx context.Context, req signing.Request) (signing.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return signing.Result{}, fmt.Errorf("failed to marshal signing request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return signing.Result{}, fmt.Errorf("failed to build signing request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return signing.Result{}, fmt.Errorf("failed to call signing endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return signing.Result{}, fmt.Errorf("failed to read signing response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		if er.Error == "" {
			er.Error = http.StatusText(resp.StatusCode)
		}

		return signing.Result{}, fmt.Errorf("signing endpoint returned %d: %s", resp.StatusCode, er.Error)
	}

	var res signing.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return signing.Result{}, fmt.Errorf("malformed signing response: %w", err)
	}
	if res.Signature == "" || res.Timestamp == 0 {
		return signing.Result{}, errors.New("malformed signing response: missing signature or timestamp")
	}

	return res, nil
}
