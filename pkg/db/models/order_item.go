package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaus/cardhaus-backend/pkg/enums"
)

// OrderItem captures one frozen line of an order. Later price or catalog
// edits never touch these rows.
type OrderItem struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	ProductID   *uuid.UUID           `gorm:"column:product_id;type:uuid"`
	InventoryID *uuid.UUID           `gorm:"column:inventory_id;type:uuid"`
	Name        string               `gorm:"column:name;not null"`
	SetCode     *string              `gorm:"column:set_code"`
	Language    *enums.CardLanguage  `gorm:"column:language;type:card_language"`
	Condition   *enums.CardCondition `gorm:"column:condition;type:card_condition"`
	Quantity    int                  `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal      `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
