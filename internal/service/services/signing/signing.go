// Package signing produces the integrity signature that authorizes a payment initiation
// request. The private key stays on the server; clients only ever receive signatures.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrMissingKey is returned when no private key is provisioned.
	ErrMissingKey = errors.New("payment private key is not configured")
	// ErrSigningFailed wraps any failure to obtain a signature from a signer.
	ErrSigningFailed = errors.New("failed to obtain payment signature")
)

// Request is the body accepted by the signing endpoint.
type Request struct {
	Amount        int64  `json:"amount"        validate:"gt=0"`
	Currency      string `json:"currency"      validate:"required,len=3"`
	Reference     string `json:"reference"     validate:"required,max=64"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
}

// Result is the body returned by the signing endpoint.
type Result struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// Signer computes HMAC-SHA256 signatures keyed by the processor private key.
type Signer struct {
	key []byte
}

// NewSigner creates a Signer. An empty key is allowed at construction so the service can
// boot; every Sign call then fails with ErrMissingKey.
func NewSigner(privateKey string) *Signer {
	return &Signer{key: []byte(privateKey)}
}

// Configured reports whether a private key is present.
func (s *Signer) Configured() bool {
	return len(s.key) > 0
}

// Sign returns the hex signature for req at timestamp ts.
func (s *Signer) Sign(req Request, ts int64) (string, error) {
	if !s.Configured() {
		return "", ErrMissingKey
	}

	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(message(req, ts)))

	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares it in constant time.
func (s *Signer) Verify(req Request, ts int64, signature string) bool {
	expected, err := s.Sign(req, ts)
	if err != nil {
		return false
	}

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// message concatenates amount, currency, reference, customer email and timestamp.
func message(req Request, ts int64) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(req.Amount, 10))
	b.WriteString(req.Currency)
	b.WriteString(req.Reference)
	b.WriteString(req.CustomerEmail)
	b.WriteString(strconv.FormatInt(ts, 10))

	return b.String()
}
