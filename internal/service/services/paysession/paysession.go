// Package paysession builds signed payment sessions for the embedded widget or the hosted
// checkout redirect.
package paysession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"go.opentelemetry.io/otel"
)

var ErrInvalidRequest = errors.New("invalid payment session request")

// signer obtains an integrity signature. Implementations must not retry.
type signer interface {
	Sign(ctx context.Context, req signing.Request) (signing.Result, error)
}

// Config holds the client-safe settings of the payment processor.
type Config struct {
	PublicKey      string
	CheckoutURL    string
	RedirectURL    string
	CancelURL      string
	PaymentMethods []string
}

// Session is everything the client needs to mount the widget or follow CheckoutURL.
type Session struct {
	PublicKey      string   `json:"publicKey"`
	Amount         int64    `json:"amount"`
	Currency       string   `json:"currency"`
	Reference      string   `json:"reference"`
	CustomerEmail  string   `json:"customerEmail"`
	RedirectURL    string   `json:"redirectUrl"`
	CancelURL      string   `json:"cancelUrl"`
	PaymentMethods []string `json:"paymentMethods"`
	Signature      string   `json:"signature"`
	Timestamp      int64    `json:"timestamp"`
	CheckoutURL    string   `json:"checkoutUrl"`
}

// Initiator builds payment sessions.
type Initiator struct {
	signer signer
	cfg    Config
}

// NewInitiator creates a new Initiator.
func NewInitiator(signer signer, cfg Config) *Initiator {
	return &Initiator{
		signer: signer,
		cfg:    cfg,
	}
}

// Initiate requests a fresh signature for req and assembles the session. The reference
// must be stable for an order so repeated attempts reach the same webhook target.
func (i *Initiator) Initiate(ctx context.Context, req signing.Request) (Session, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Initiator.Initiate")
	defer span.End()

	if req.Amount <= 0 || req.Currency == "" || req.Reference == "" || req.CustomerEmail == "" {
		return Session{}, ErrInvalidRequest
	}

	res, err := i.signer.Sign(ctx, req)
	if err != nil {
		slog.Error("Failed to sign payment session", "reference", req.Reference, "error", err)

		return Session{}, fmt.Errorf("%w: %w", signing.ErrSigningFailed, err)
	}
	if res.Signature == "" {
		return Session{}, fmt.Errorf("%w: empty signature", signing.ErrSigningFailed)
	}

	session := Session{
		PublicKey:      i.cfg.PublicKey,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Reference:      req.Reference,
		CustomerEmail:  req.CustomerEmail,
		RedirectURL:    i.cfg.RedirectURL,
		CancelURL:      i.cfg.CancelURL,
		PaymentMethods: i.cfg.PaymentMethods,
		Signature:      res.Signature,
		Timestamp:      res.Timestamp,
	}
	session.CheckoutURL = i.checkoutURL(session)

	return session, nil
}

// checkoutURL carries the widget parameters and the signature as a query string.
func (i *Initiator) checkoutURL(s Session) string {
	if i.cfg.CheckoutURL == "" {
		return ""
	}

	q := url.Values{}
	q.Set("public-key", s.PublicKey)
	q.Set("currency", s.Currency)
	q.Set("amount-in-cents", strconv.FormatInt(s.Amount, 10))
	q.Set("reference", s.Reference)
	q.Set("customer-data:email", s.CustomerEmail)
	q.Set("signature:integrity", s.Signature)
	q.Set("timestamp", strconv.FormatInt(s.Timestamp, 10))
	if s.RedirectURL != "" {
		q.Set("redirect-url", s.RedirectURL)
	}
	if s.CancelURL != "" {
		q.Set("cancel-url", s.CancelURL)
	}

	return i.cfg.CheckoutURL + "?" + q.Encode()
}

// LocalSigner signs in-process with the server private key.
type LocalSigner struct {
	signer *signing.Signer
	now    func() time.Time
}

// NewLocalSigner creates a LocalSigner.
func NewLocalSigner(s *signing.Signer) *LocalSigner {
	return &LocalSigner{signer: s, now: time.Now}
}

// Sign implements signer with a server-generated millisecond timestamp.
func (l *LocalSigner) Sign(_ context.Context, req signing.Request) (signing.Result, error) {
	ts := l.now().UnixMilli()

	sig, err := l.signer.Sign(req, ts)
	if err != nil {
		return signing.Result{}, err
	}

	return signing.Result{Signature: sig, Timestamp: ts}, nil
}
