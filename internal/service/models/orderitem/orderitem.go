package orderitem

import (
	"errors"
	"math"
)

// ErrAmountOverflow is returned when line totals do not fit in int64 minor units.
var ErrAmountOverflow = errors.New("amount overflow")

// OrderItem is a line item snapshot captured at checkout time. It is never updated after
// the order is created, so later catalog price changes do not reach placed orders.
type OrderItem struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
	TrackStock bool   `json:"trackStock"`
}

// LineTotal returns unit price times quantity. Negative prices or quantities count as zero.
func (i OrderItem) LineTotal() (int64, error) {
	if i.UnitPrice < 0 || i.Quantity < 0 {
		return 0, nil
	}
	qty := int64(i.Quantity)
	if qty != 0 && i.UnitPrice > math.MaxInt64/qty {
		return 0, ErrAmountOverflow
	}

	return i.UnitPrice * qty, nil
}

// Subtotal sums the line totals of items.
func Subtotal(items []OrderItem) (int64, error) {
	var sum int64
	for _, item := range items {
		line, err := item.LineTotal()
		if err != nil {
			return 0, err
		}
		if sum > math.MaxInt64-line {
			return 0, ErrAmountOverflow
		}
		sum += line
	}

	return sum, nil
}
