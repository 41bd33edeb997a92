package signer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() signing.Request {
	return signing.Request{Amount: 103950, Currency: "COP", Reference: "ORD-1", CustomerEmail: "ana@example.com"}
}

func TestClient_Sign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req signing.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testRequest(), req)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"signature":"deadbeef","timestamp":1760700000000}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, time.Second).Sign(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, signing.Result{Signature: "deadbeef", Timestamp: 1760700000000}, res)
}

func TestClient_Sign_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"payment private key is not configured"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Sign(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "not configured")
}

func TestClient_Sign_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"signature":`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Sign(context.Background(), testRequest())
	assert.ErrorContains(t, err, "malformed")
}

func TestClient_Sign_MissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"signature":"abc"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Sign(context.Background(), testRequest())
	assert.ErrorContains(t, err, "missing signature or timestamp")
}

func TestClient_Sign_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(srv.URL, 50*time.Millisecond).Sign(context.Background(), testRequest())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
