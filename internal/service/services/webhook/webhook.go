// Package webhook authenticates and decodes payment processor notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/corray333/backend-labs/checkout/internal/service/models/payment"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrNotConfigured means no webhook secret is provisioned; events must not be accepted.
	ErrNotConfigured = errors.New("webhook secret is not configured")
	// ErrMissingChecksum means the checksum header was absent or empty.
	ErrMissingChecksum = errors.New("missing webhook checksum")
	// ErrChecksumMismatch means the body was not signed with the shared secret.
	ErrChecksumMismatch = errors.New("webhook checksum mismatch")
	// ErrMalformedPayload means the body is not a well-formed event.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// ChecksumHeader carries the hex HMAC-SHA256 of the raw request body.
const ChecksumHeader = "X-Event-Checksum"

// Verifier checks webhook checksums and decodes verified payloads.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the shared webhook secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Configured reports whether a secret is provisioned.
func (v *Verifier) Configured() bool {
	return len(v.secret) > 0
}

// Checksum returns the hex HMAC-SHA256 of raw.
func (v *Verifier) Checksum(raw []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(raw)

	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks checksum against the exact bytes received. The comparison is constant
// time.
func (v *Verifier) Verify(raw []byte, checksum string) error {
	if !v.Configured() {
		return ErrNotConfigured
	}

	checksum = strings.ToLower(strings.TrimSpace(checksum))
	if checksum == "" {
		return ErrMissingChecksum
	}

	if !hmac.Equal([]byte(v.Checksum(raw)), []byte(checksum)) {
		return ErrChecksumMismatch
	}

	return nil
}

// Parse validates raw against the envelope schema and, for actionable event types, the
// event specific schema before decoding it. Unknown event types decode with only the
// envelope fields checked; callers ignore them.
func (v *Verifier) Parse(raw []byte) (payment.Event, error) {
	if err := validate(envelopeLoader, raw); err != nil {
		return payment.Event{}, err
	}

	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return payment.Event{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	schema, actionable := eventSchemas[head.Event]
	if !actionable {
		return payment.Event{Event: head.Event}, nil
	}

	if err := validate(schema, raw); err != nil {
		return payment.Event{}, err
	}

	var ev payment.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return payment.Event{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return ev, nil
}

// Actionable reports whether ev should be reconciled.
func Actionable(ev payment.Event) bool {
	return ev.Event == payment.EventTransactionUpdated
}

func validate(schema gojsonschema.JSONLoader, raw []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for i, e := range result.Errors() {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(e.Field())
			sb.WriteString(": ")
			sb.WriteString(e.Description())
		}

		return fmt.Errorf("%w: %s", ErrMalformedPayload, sb.String())
	}

	return nil
}
