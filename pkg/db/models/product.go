package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/cardhaus-backend/pkg/enums"
)

// Product represents a catalog listing. Sellable stock and pricing live on
// its InventoryItem variants.
type Product struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string            `gorm:"column:name;not null"`
	SetCode   *string           `gorm:"column:set_code"`
	Game      enums.Game        `gorm:"column:game;type:game;not null"`
	Kind      enums.ProductKind `gorm:"column:kind;type:product_kind;not null;default:'card'"`
	ImageURL  *string           `gorm:"column:image_url"`
	IsActive  bool              `gorm:"column:is_active;not null;default:true"`
	Variants  []InventoryItem   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
