package paymentquote

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/checkout/internal/service/services/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakeQuoter struct {
	calc *pricing.Calculator
}

func (f fakeQuoter) Quote(subtotal, shipping int64) pricing.FeeBreakdown {
	return f.calc.Calculate(subtotal, shipping)
}

func newQuoter(feePercentage string, fixedFee int64) fakeQuoter {
	return fakeQuoter{calc: pricing.NewCalculator(decimal.RequireFromString(feePercentage), fixedFee)}
}

func TestQuote(t *testing.T) {
	svc := newQuoter("0.0295", 1000)

	cases := map[string]string{
		`{"subtotal":100000,"shipping":0}`: `{"subtotal":100000,"shipping":0,"baseTotal":100000,"fees":3950,"total":103950}`,
		`{"subtotal":-5,"shipping":-1}`:    `{"subtotal":0,"shipping":0,"baseTotal":0,"fees":1000,"total":1000}`,
		`{"subtotal":1e19,"shipping":1e19}`: `{"subtotal":1000000000000000,"shipping":1000000000000000,` +
			`"baseTotal":2000000000000000,"fees":59000000001000,"total":2059000000001000}`,
	}

	for body, want := range cases {
		rec := httptest.NewRecorder()
		Quote(rec, httptest.NewRequest(http.MethodPost, "/api/payments/quote", bytes.NewBufferString(body)), svc)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, want, rec.Body.String())
	}
}

func TestQuote_BadBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Quote(rec, httptest.NewRequest(http.MethodPost, "/api/payments/quote", bytes.NewBufferString(`{"subtotal":"abc"}`)),
		newQuoter("0", 0))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
