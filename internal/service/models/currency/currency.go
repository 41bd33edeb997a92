package currency

import (
	"database/sql/driver"
	"errors"
	"strings"
)

// Currency is an ISO 4217 code. Amounts in this service are always int64 minor units
// of the currency (cents for COP/USD).
type Currency string

const (
	CurrencyCOP Currency = "COP"
	CurrencyUSD Currency = "USD"
)

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

// ParseCurrency accepts a code in any case.
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case CurrencyCOP.String():
		return CurrencyCOP, nil
	case CurrencyUSD.String():
		return CurrencyUSD, nil
	default:
		return "", ErrInvalidCurrency
	}
}
