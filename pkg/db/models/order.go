package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// Order is the immutable snapshot produced at checkout. Only status,
// paid_at, delivered_at, cancelled_at and remote_order_ref mutate after
// creation; totals and items are frozen.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     int64                `gorm:"column:order_number;not null;uniqueIndex;autoIncrement"`
	UserID          *uuid.UUID           `gorm:"column:user_id;type:uuid;index"`
	SessionToken    *string              `gorm:"column:session_token;index"`
	CartID          uuid.UUID            `gorm:"column:cart_id;type:uuid;not null"`
	Status          enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	ShippingMethod  enums.ShippingMethod `gorm:"column:shipping_method;type:shipping_method;not null"`
	ShippingAddress *types.Address       `gorm:"column:shipping_address;type:address_t"`
	PickupStoreCode *string              `gorm:"column:pickup_store_code"`
	PaymentMethod   enums.PaymentMethod  `gorm:"column:payment_method;type:payment_method;not null"`
	Currency        enums.Currency       `gorm:"column:currency;not null;default:'USD'"`
	ItemsTotal      decimal.Decimal      `gorm:"column:items_total;type:numeric(12,2);not null"`
	ShippingTotal   decimal.Decimal      `gorm:"column:shipping_total;type:numeric(12,2);not null"`
	TaxTotal        decimal.Decimal      `gorm:"column:tax_total;type:numeric(12,2);not null"`
	GrandTotal      decimal.Decimal      `gorm:"column:grand_total;type:numeric(12,2);not null"`
	RemoteOrderRef  *string              `gorm:"column:remote_order_ref;index"`
	PaidAt          *time.Time           `gorm:"column:paid_at"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	CancelledAt     *time.Time           `gorm:"column:cancelled_at"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Attempts        []PaymentAttempt     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
