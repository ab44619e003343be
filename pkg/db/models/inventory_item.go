package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaus/cardhaus-backend/pkg/enums"
)

// InventoryItem is a sellable variant of a product. Language and condition
// are both nil for accessories. stock_qty never goes negative; decrements
// run through the guarded ledger UPDATE.
type InventoryItem struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID            `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_inventory_variant"`
	Language  *enums.CardLanguage  `gorm:"column:language;type:card_language;uniqueIndex:uq_inventory_variant"`
	Condition *enums.CardCondition `gorm:"column:condition;type:card_condition;uniqueIndex:uq_inventory_variant"`
	Price     decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null"`
	StockQty  int                  `gorm:"column:stock_qty;not null;default:0;check:stock_qty >= 0"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
