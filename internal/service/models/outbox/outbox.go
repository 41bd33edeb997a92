package outbox

import (
	"time"
)

// Kind identifies the side effect a message carries.
type Kind string

const (
	KindOrderConfirmation Kind = "order.confirmation"
	KindStockDecrement    Kind = "stock.decrement"
)

// OutboxMessage is a side effect recorded in the same transaction as the order state
// change that caused it. DedupKey is unique, so the same side effect is never enqueued
// twice for one order.
type OutboxMessage struct {
	ID          int64
	Kind        Kind
	DedupKey    string
	OrderNumber string
	Payload     []byte
	ContentType string
	RetryCount  int
	MaxRetries  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	NextRetryAt time.Time
	ProcessedAt *time.Time
}

// ContentTypeJSON is the content type of every payload the service enqueues.
const ContentTypeJSON = "application/json"

// OrderConfirmation is the payload of a KindOrderConfirmation message.
type OrderConfirmation struct {
	OrderNumber   string    `json:"orderNumber"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Total         int64     `json:"total"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"paymentMethod"`
	IsVerified    bool      `json:"isVerified"`
	PaidAt        time.Time `json:"paidAt"`
	Items         []Line    `json:"items"`
}

// Line is an item line in a confirmation.
type Line struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// StockDecrement is the payload of a KindStockDecrement message.
type StockDecrement struct {
	OrderNumber string `json:"orderNumber"`
	ProductID   string `json:"productId"`
	Quantity    int    `json:"quantity"`
}

// ConfirmationKey is the dedup key of an order's confirmation message.
func ConfirmationKey(orderNumber string) string {
	return "confirmation:" + orderNumber
}

// StockKey is the dedup key of an order's stock decrement for one product.
func StockKey(orderNumber, productID string) string {
	return "stock:" + orderNumber + ":" + productID
}
