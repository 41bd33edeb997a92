package reconciler

import (
	"strings"

	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/payment"
)

// MapStatus maps a processor transaction status to an order status. Unknown values map
// to pending so an unexpected status can never mark an order paid or failed.
func MapStatus(processorStatus string) order.Status {
	switch strings.ToUpper(strings.TrimSpace(processorStatus)) {
	case payment.ProcessorApproved:
		return order.StatusPaid
	case payment.ProcessorDeclined, payment.ProcessorError:
		return order.StatusFailed
	case payment.ProcessorCancelled, payment.ProcessorVoided:
		return order.StatusCancelled
	default:
		return order.StatusPending
	}
}
