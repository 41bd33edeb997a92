package paysession

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	calls []signing.Request
	res   signing.Result
	err   error
}

func (f *fakeSigner) Sign(_ context.Context, req signing.Request) (signing.Result, error) {
	f.calls = append(f.calls, req)

	return f.res, f.err
}

func testConfig() Config {
	return Config{
		PublicKey:      "pub_test_123",
		CheckoutURL:    "https://checkout.example.com/p/",
		RedirectURL:    "https://shop.example.com/checkout/result",
		CancelURL:      "https://shop.example.com/cart",
		PaymentMethods: []string{"CARD", "PSE"},
	}
}

func testRequest() signing.Request {
	return signing.Request{Amount: 103950, Currency: "COP", Reference: "ORD-1", CustomerEmail: "ana@example.com"}
}

func TestInitiate_BuildsSession(t *testing.T) {
	fs := &fakeSigner{res: signing.Result{Signature: "abc123", Timestamp: 1760700000000}}
	in := NewInitiator(fs, testConfig())

	s, err := in.Initiate(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "pub_test_123", s.PublicKey)
	assert.Equal(t, int64(103950), s.Amount)
	assert.Equal(t, "ORD-1", s.Reference)
	assert.Equal(t, "abc123", s.Signature)
	assert.Equal(t, []string{"CARD", "PSE"}, s.PaymentMethods)
	require.Len(t, fs.calls, 1)

	u, err := url.Parse(s.CheckoutURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "abc123", q.Get("signature:integrity"))
	assert.Equal(t, "103950", q.Get("amount-in-cents"))
	assert.Equal(t, "ORD-1", q.Get("reference"))
	assert.Equal(t, "https://shop.example.com/checkout/result", q.Get("redirect-url"))
}

func TestInitiate_SigningFailure(t *testing.T) {
	fs := &fakeSigner{err: errors.New("connection refused")}
	in := NewInitiator(fs, testConfig())

	_, err := in.Initiate(context.Background(), testRequest())
	assert.ErrorIs(t, err, signing.ErrSigningFailed)
	assert.Len(t, fs.calls, 1)
}

func TestInitiate_EmptySignature(t *testing.T) {
	in := NewInitiator(&fakeSigner{}, testConfig())

	_, err := in.Initiate(context.Background(), testRequest())
	assert.ErrorIs(t, err, signing.ErrSigningFailed)
}

func TestInitiate_InvalidRequest(t *testing.T) {
	fs := &fakeSigner{}
	in := NewInitiator(fs, testConfig())

	req := testRequest()
	req.Reference = ""
	_, err := in.Initiate(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, fs.calls)
}

func TestInitiate_StableReferenceFreshSignature(t *testing.T) {
	ls := NewLocalSigner(signing.NewSigner("prv_test"))
	tick := time.UnixMilli(1760700000000)
	ls.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	in := NewInitiator(ls, testConfig())

	first, err := in.Initiate(context.Background(), testRequest())
	require.NoError(t, err)
	second, err := in.Initiate(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, first.Reference, second.Reference)
	assert.NotEqual(t, first.Timestamp, second.Timestamp)
	assert.NotEqual(t, first.Signature, second.Signature)
	assert.True(t, signing.NewSigner("prv_test").Verify(testRequest(), second.Timestamp, second.Signature))
}

func TestLocalSigner_MissingKey(t *testing.T) {
	_, err := NewLocalSigner(signing.NewSigner("")).Sign(context.Background(), testRequest())
	assert.ErrorIs(t, err, signing.ErrMissingKey)
}
