package order

import "errors"

// Status is the payment state of an order.
type Status string

const (
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPending         Status = "pending"
	StatusPaid            Status = "paid"
	StatusFailed          Status = "failed"
	StatusCancelled       Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a persisted or user supplied status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusAwaitingPayment, StatusPending, StatusPaid, StatusFailed, StatusCancelled:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// FulfillmentStatus is tracked by back-office staff independently of Status.
type FulfillmentStatus string

const (
	FulfillmentWaiting    FulfillmentStatus = "waiting"
	FulfillmentProcessing FulfillmentStatus = "processing"
	FulfillmentFinished   FulfillmentStatus = "finished"
	FulfillmentCancelled  FulfillmentStatus = "cancelled"
)

var ErrInvalidFulfillmentStatus = errors.New("invalid fulfillment status")

func (s FulfillmentStatus) String() string {
	return string(s)
}

func ParseFulfillmentStatus(s string) (FulfillmentStatus, error) {
	switch fs := FulfillmentStatus(s); fs {
	case FulfillmentWaiting, FulfillmentProcessing, FulfillmentFinished, FulfillmentCancelled:
		return fs, nil
	default:
		return "", ErrInvalidFulfillmentStatus
	}
}
