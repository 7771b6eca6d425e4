package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
)

// LineItemInput is one requested SKU/quantity pair at checkout.
type LineItemInput struct {
	SKU      string
	Quantity int
}

// CreateOrderInput carries everything checkout needs from the caller.
type CreateOrderInput struct {
	UserID          uuid.UUID
	Items           []LineItemInput
	ShippingAddress *string
	ContactPhone    *string
	Notes           *string
	PaymentTxnID    string
}

// LineItemView is the API shape of a priced order line.
type LineItemView struct {
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// OrderView is the API shape of a persisted order.
type OrderView struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Items         []LineItemView      `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}

func toOrderView(order *models.Order) OrderView {
	view := OrderView{
		ID:            order.ID,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, LineItemView{
			SKU:             item.SKU,
			Name:            item.Name,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			LineTotal:       item.LineTotal,
		})
	}
	return view
}
