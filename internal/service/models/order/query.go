package order

// QueryOrdersModel represents filter parameters for querying orders
type QueryOrdersModel struct {
	Numbers             []string            `json:"numbers,omitempty"`
	Statuses            []Status            `json:"statuses,omitempty"`
	FulfillmentStatuses []FulfillmentStatus `json:"fulfillmentStatuses,omitempty"`
	CustomerEmail       string              `json:"customerEmail,omitempty"`
	Limit               int                 `json:"limit,omitempty"`
	Offset              int                 `json:"offset,omitempty"`
}
