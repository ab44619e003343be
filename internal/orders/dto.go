package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// SubmitInput carries the checkout payload. Missing shipping or payment
// details fall back to the authenticated user's saved defaults.
type SubmitInput struct {
	ShippingMethod  enums.ShippingMethod `json:"shipping_method" validate:"required"`
	ShippingAddress *types.Address       `json:"shipping_address,omitempty"`
	PickupStoreCode *string              `json:"pickup_store_code,omitempty"`
	PaymentMethod   *enums.PaymentMethod `json:"payment_method,omitempty"`
	SaveAsDefaults  bool                 `json:"save_as_defaults,omitempty"`
}

// OrderItemDTO is the API shape of one frozen order line.
type OrderItemDTO struct {
	ProductID   *uuid.UUID           `json:"product_id,omitempty"`
	InventoryID *uuid.UUID           `json:"inventory_id,omitempty"`
	Name        string               `json:"name"`
	SetCode     *string              `json:"set_code,omitempty"`
	Language    *enums.CardLanguage  `json:"language,omitempty"`
	Condition   *enums.CardCondition `json:"condition,omitempty"`
	Quantity    int                  `json:"quantity"`
	UnitPrice   string               `json:"unit_price"`
	LineTotal   string               `json:"line_total"`
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID              uuid.UUID      `json:"id"`
	OrderNumber     int64          `json:"order_number"`
	Status          string         `json:"status"`
	ShippingMethod  string         `json:"shipping_method"`
	ShippingAddress *types.Address `json:"shipping_address,omitempty"`
	PickupStoreCode *string        `json:"pickup_store_code,omitempty"`
	PaymentMethod   string         `json:"payment_method"`
	Currency        string         `json:"currency"`
	Items           []OrderItemDTO `json:"items"`
	ItemsTotal      string         `json:"items_total"`
	ShippingTotal   string         `json:"shipping_total"`
	TaxTotal        string         `json:"tax_total"`
	GrandTotal      string         `json:"grand_total"`
	PaidAt          *time.Time     `json:"paid_at,omitempty"`
	DeliveredAt     *time.Time     `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// FromModel converts an order to its API shape.
func FromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, line := range order.Items {
		items = append(items, OrderItemDTO{
			ProductID:   line.ProductID,
			InventoryID: line.InventoryID,
			Name:        line.Name,
			SetCode:     line.SetCode,
			Language:    line.Language,
			Condition:   line.Condition,
			Quantity:    line.Quantity,
			UnitPrice:   types.FormatMoney(line.UnitPrice),
			LineTotal:   types.FormatMoney(line.LineTotal),
		})
	}
	return &OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status.String(),
		ShippingMethod:  order.ShippingMethod.String(),
		ShippingAddress: order.ShippingAddress,
		PickupStoreCode: order.PickupStoreCode,
		PaymentMethod:   order.PaymentMethod.String(),
		Currency:        order.Currency.String(),
		Items:           items,
		ItemsTotal:      types.FormatMoney(order.ItemsTotal),
		ShippingTotal:   types.FormatMoney(order.ShippingTotal),
		TaxTotal:        types.FormatMoney(order.TaxTotal),
		GrandTotal:      types.FormatMoney(order.GrandTotal),
		PaidAt:          order.PaidAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
	}
}
