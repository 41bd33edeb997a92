package createorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/checkout/internal/service/models/currency"
	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/checkout/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/checkout/pkg/http/response"
	"github.com/go-playground/validator/v10"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, in ordersvc.CreateOrderInput) (order.Order, error)
}

// validate caches struct metadata across requests; it is safe for concurrent use.
var validate = validator.New()

// itemInCreateOrderRequest represents an item in a create order request.
type itemInCreateOrderRequest struct {
	ProductID  string `json:"productId"  validate:"required,max=64"`
	Name       string `json:"name"       validate:"required,max=200"`
	UnitPrice  int64  `json:"unitPrice"  validate:"gte=0,lte=1000000000000000"`
	Quantity   int    `json:"quantity"   validate:"gt=0,lte=1000"`
	TrackStock bool   `json:"trackStock"`
}

func (r *itemInCreateOrderRequest) toModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ProductID:  r.ProductID,
		Name:       r.Name,
		UnitPrice:  r.UnitPrice,
		Quantity:   r.Quantity,
		TrackStock: r.TrackStock,
	}
}

type customerInCreateOrderRequest struct {
	Name  string `json:"name"  validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,max=32"`
}

type addressInCreateOrderRequest struct {
	Line1      string `json:"line1"      validate:"required,max=200"`
	Line2      string `json:"line2"      validate:"max=200"`
	City       string `json:"city"       validate:"required,max=100"`
	Region     string `json:"region"     validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	Country    string `json:"country"    validate:"required,len=2"`
	Notes      string `json:"notes"      validate:"max=500"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	Items           []itemInCreateOrderRequest   `json:"items"           validate:"required,min=1,max=100,dive"`
	ShippingCost    int64                        `json:"shippingCost"    validate:"gte=0,lte=1000000000000000"`
	Currency        string                       `json:"currency"        validate:"required"`
	Customer        customerInCreateOrderRequest `json:"customer"`
	ShippingAddress addressInCreateOrderRequest  `json:"shippingAddress"`
	PaymentMethod   string                       `json:"paymentMethod"   validate:"max=64"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validate.Struct(r)
}

func (r *createOrderRequest) toModel() (ordersvc.CreateOrderInput, error) {
	cur, err := currency.ParseCurrency(r.Currency)
	if err != nil {
		return ordersvc.CreateOrderInput{}, err
	}

	items := make([]orderitem.OrderItem, len(r.Items))
	for i := range r.Items {
		items[i] = r.Items[i].toModel()
	}

	return ordersvc.CreateOrderInput{
		Items:        items,
		ShippingCost: r.ShippingCost,
		Currency:     cur,
		Customer: order.Customer{
			Name:  r.Customer.Name,
			Email: r.Customer.Email,
			Phone: r.Customer.Phone,
		},
		ShippingAddress: order.ShippingAddress{
			Line1:      r.ShippingAddress.Line1,
			Line2:      r.ShippingAddress.Line2,
			City:       r.ShippingAddress.City,
			Region:     r.ShippingAddress.Region,
			PostalCode: r.ShippingAddress.PostalCode,
			Country:    r.ShippingAddress.Country,
			Notes:      r.ShippingAddress.Notes,
		},
		PaymentMethod: r.PaymentMethod,
	}, nil
}

// CreateOrder handles checkout submission.
//
//	@Summary	Submit checkout
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Param		request	body		createOrderRequest	true	"Cart and buyer details"
//	@Success	201		{object}	order.Order
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	500		{object}	response.ErrorBody
//	@Router		/api/orders [post]
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON body")
		slog.Warn("Error decoding request body for create order", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())

		return
	}

	in, err := req.toModel()
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())

		return
	}

	created, err := service.CreateOrder(r.Context(), in)
	if errors.Is(err, ordersvc.ErrInvalidOrder) {
		response.Error(w, http.StatusBadRequest, err.Error())

		return
	}
	if err != nil {
		slog.Error("Error creating order", "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to create order")

		return
	}

	response.JSON(w, http.StatusCreated, created)
}
