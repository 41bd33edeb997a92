package order

import (
	"errors"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/service/models/currency"
	"github.com/corray333/backend-labs/checkout/internal/service/models/orderitem"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no order matches the lookup.
	ErrNotFound = errors.New("order not found")
	// ErrVersionConflict is returned when a guarded update lost a race with another writer.
	ErrVersionConflict = errors.New("order version conflict")
	// ErrDuplicateNumber is returned when a generated order number already exists.
	ErrDuplicateNumber = errors.New("duplicate order number")
)

// Customer is the buyer snapshot taken at checkout.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ShippingAddress is the delivery address snapshot taken at checkout.
type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
	Notes      string `json:"notes,omitempty"`
}

// Order represents a checkout. Monetary fields are int64 minor units of Currency.
type Order struct {
	ID                uuid.UUID             `json:"id"`
	Number            string                `json:"orderNumber"`
	Subtotal          int64                 `json:"subtotal"`
	ShippingCost      int64                 `json:"shippingCost"`
	Fees              int64                 `json:"fees"`
	Total             int64                 `json:"total"`
	Currency          currency.Currency     `json:"currency"`
	Items             []orderitem.OrderItem `json:"items"`
	ShippingAddress   ShippingAddress       `json:"shippingAddress"`
	Customer          Customer              `json:"customer"`
	PaymentMethod     string                `json:"paymentMethod"`
	PaymentID         string                `json:"paymentId"`
	Status            Status                `json:"status"`
	IsVerified        bool                  `json:"isVerified"`
	PaidAt            *time.Time            `json:"paidAt,omitempty"`
	FulfillmentStatus FulfillmentStatus     `json:"fulfillmentStatus,omitempty"`
	Version           int64                 `json:"version"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// PaymentUpdate is the set of payment fields written together in one statement.
// The write only applies while the stored version equals ExpectedVersion.
type PaymentUpdate struct {
	OrderID         uuid.UUID
	ExpectedVersion int64
	Status          Status
	PaymentID       string
	PaymentMethod   string
	IsVerified      bool
	PaidAt          *time.Time
	UpdatedAt       time.Time
}

// Apply returns a copy of o with the update applied and the version bumped.
func (u PaymentUpdate) Apply(o Order) Order {
	o.Status = u.Status
	o.PaymentID = u.PaymentID
	o.PaymentMethod = u.PaymentMethod
	o.IsVerified = u.IsVerified
	o.PaidAt = u.PaidAt
	o.UpdatedAt = u.UpdatedAt
	o.Version = u.ExpectedVersion + 1

	return o
}
