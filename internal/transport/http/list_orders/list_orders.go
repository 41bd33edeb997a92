package listorders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/pkg/http/response"
	"github.com/gorilla/schema"
)

// service is an interface for the service layer.
type service interface {
	ListOrders(ctx context.Context, query order.QueryOrdersModel) ([]order.Order, error)
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	return d
}()

// queryOrdersRequest represents the admin list filters.
type queryOrdersRequest struct {
	Numbers     []string `schema:"number"`
	Statuses    []string `schema:"status"`
	Fulfillment []string `schema:"fulfillment"`
	Email       string   `schema:"email"`
	Limit       int      `schema:"limit"`
	Offset      int      `schema:"offset"`
}

// ToModel converts the request to the repository query, rejecting unknown states.
func (q *queryOrdersRequest) ToModel() (order.QueryOrdersModel, error) {
	model := order.QueryOrdersModel{
		Numbers:       q.Numbers,
		CustomerEmail: q.Email,
		Limit:         q.Limit,
		Offset:        q.Offset,
	}

	for _, s := range q.Statuses {
		st, err := order.ParseStatus(s)
		if err != nil {
			return order.QueryOrdersModel{}, err
		}
		model.Statuses = append(model.Statuses, st)
	}

	for _, s := range q.Fulfillment {
		fs, err := order.ParseFulfillmentStatus(s)
		if err != nil {
			return order.QueryOrdersModel{}, err
		}
		model.FulfillmentStatuses = append(model.FulfillmentStatuses, fs)
	}

	return model, nil
}

// ListOrders returns orders for the back office, newest first.
//
//	@Summary	List orders
//	@Tags		admin
//	@Produce	json
//	@Security	BearerAuth
//	@Param		status		query		[]string	false	"Payment status filter"
//	@Param		fulfillment	query		[]string	false	"Fulfillment status filter"
//	@Param		email		query		string		false	"Customer email"
//	@Param		limit		query		int			false	"Page size"
//	@Param		offset		query		int			false	"Page offset"
//	@Success	200			{array}		order.Order
//	@Failure	400			{object}	response.ErrorBody
//	@Failure	401			{object}	response.ErrorBody
//	@Router		/api/admin/orders [get]
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		slog.Warn("Error decoding list orders query", "error", err)

		return
	}

	model, err := query.ToModel()
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())

		return
	}

	orders, err := service.ListOrders(r.Context(), model)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to list orders")
		slog.Error("Error getting orders", "error", err)

		return
	}

	if orders == nil {
		orders = []order.Order{}
	}

	response.JSON(w, http.StatusOK, orders)
}
