package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" cop ")
	require.NoError(t, err)
	assert.Equal(t, CurrencyCOP, c)

	c, err = ParseCurrency("USD")
	require.NoError(t, err)
	assert.Equal(t, CurrencyUSD, c)

	_, err = ParseCurrency("RUB")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}
