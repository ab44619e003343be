package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/cardhaus-backend/pkg/enums"
)

// OrderCreatedEvent signals a cart successfully converted into an order.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID            `json:"order_id"`
	OrderNumber    int64                `json:"order_number"`
	UserID         *uuid.UUID           `json:"user_id,omitempty"`
	ShippingMethod enums.ShippingMethod `json:"shipping_method"`
	PaymentMethod  enums.PaymentMethod  `json:"payment_method"`
	GrandTotal     string               `json:"grand_total"`
	Currency       enums.Currency       `json:"currency"`
	ItemCount      int                  `json:"item_count"`
}

// OrderPaidEvent is emitted when an order reaches paid.
type OrderPaidEvent struct {
	OrderID    uuid.UUID  `json:"order_id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Via        string     `json:"via"`
	GrandTotal string     `json:"grand_total"`
	PaidAt     time.Time  `json:"paid_at"`
}

// OrderDeliveredEvent covers both delivered and picked_up terminal states.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	UserID      *uuid.UUID        `json:"user_id,omitempty"`
	Status      enums.OrderStatus `json:"status"`
	DeliveredAt time.Time         `json:"delivered_at"`
}

// OrderCancelledEvent is emitted whenever a pending order is cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	CancelledAt time.Time  `json:"cancelled_at"`
	Reason      string     `json:"reason,omitempty"`
}
