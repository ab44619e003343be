package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// CartRecord is the mutable pre-checkout aggregate. Exactly one of UserID
// and SessionToken is set. Totals are recomputed server-side on every
// mutation and never accepted from clients.
type CartRecord struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          *uuid.UUID            `gorm:"column:user_id;type:uuid;index"`
	SessionToken    *string               `gorm:"column:session_token;index"`
	Status          enums.CartStatus      `gorm:"column:status;type:cart_status;not null;default:'active'"`
	ShippingMethod  *enums.ShippingMethod `gorm:"column:shipping_method;type:shipping_method"`
	ShippingAddress *types.Address        `gorm:"column:shipping_address;type:address_t"`
	PaymentMethod   *enums.PaymentMethod  `gorm:"column:payment_method;type:payment_method"`
	Currency        enums.Currency        `gorm:"column:currency;not null;default:'USD'"`
	ItemsTotal      decimal.Decimal       `gorm:"column:items_total;type:numeric(12,2);not null;default:0"`
	ShippingTotal   decimal.Decimal       `gorm:"column:shipping_total;type:numeric(12,2);not null;default:0"`
	TaxTotal        decimal.Decimal       `gorm:"column:tax_total;type:numeric(12,2);not null;default:0"`
	GrandTotal      decimal.Decimal       `gorm:"column:grand_total;type:numeric(12,2);not null;default:0"`
	ConvertedAt     *time.Time            `gorm:"column:converted_at"`
	Items           []CartItem            `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
