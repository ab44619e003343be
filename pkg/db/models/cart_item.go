package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaus/cardhaus-backend/pkg/enums"
)

// CartItem is one line of a cart, keyed by inventory variant. Display fields
// are snapshots taken when the line was added.
type CartItem struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID      uuid.UUID            `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:uq_cart_line"`
	ProductID   uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	InventoryID uuid.UUID            `gorm:"column:inventory_id;type:uuid;not null;uniqueIndex:uq_cart_line"`
	Name        string               `gorm:"column:name;not null"`
	SetCode     *string              `gorm:"column:set_code"`
	ImageURL    *string              `gorm:"column:image_url"`
	Language    *enums.CardLanguage  `gorm:"column:language;type:card_language"`
	Condition   *enums.CardCondition `gorm:"column:condition;type:card_condition"`
	Quantity    int                  `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal      `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
