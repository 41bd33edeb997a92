package payment

// EventTransactionUpdated is the only webhook event that drives reconciliation.
const EventTransactionUpdated = "transaction.updated"

// Processor statuses reported by the payment processor.
const (
	ProcessorApproved  = "APPROVED"
	ProcessorDeclined  = "DECLINED"
	ProcessorError     = "ERROR"
	ProcessorPending   = "PENDING"
	ProcessorCancelled = "CANCELLED"
	ProcessorVoided    = "VOIDED"
)

// PaymentMethod describes how the shopper paid.
type PaymentMethod struct {
	Type         string `json:"type"`
	Installments *int   `json:"installments,omitempty"`
}

// Transaction is the data section of a transaction webhook.
type Transaction struct {
	ID            string        `json:"id"`
	Reference     string        `json:"reference"`
	Status        string        `json:"status"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	CustomerEmail string        `json:"customer_email"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`
}

// Event is an inbound webhook notification. It is only trusted after its checksum has
// been verified against the raw request body.
type Event struct {
	Event     string      `json:"event"`
	Data      Transaction `json:"data"`
	Timestamp int64       `json:"timestamp"`
	Checksum  string      `json:"checksum"`
}
