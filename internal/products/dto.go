package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// VariantDTO is the storefront view of one sellable inventory variant.
type VariantDTO struct {
	ID        uuid.UUID            `json:"id"`
	Language  *enums.CardLanguage  `json:"language,omitempty"`
	Condition *enums.CardCondition `json:"condition,omitempty"`
	Price     string               `json:"price"`
	StockQty  int                  `json:"stock_qty"`
}

// ProductDTO is the storefront view of a catalog product.
type ProductDTO struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	SetCode   *string           `json:"set_code,omitempty"`
	Game      enums.Game        `json:"game"`
	Kind      enums.ProductKind `json:"kind"`
	ImageURL  *string           `json:"image_url,omitempty"`
	IsActive  bool              `json:"is_active"`
	Variants  []VariantDTO      `json:"variants"`
	CreatedAt time.Time         `json:"created_at"`
}

// FromModel maps a product row and its preloaded variants into the API shape.
func FromModel(product models.Product) ProductDTO {
	variants := make([]VariantDTO, 0, len(product.Variants))
	for _, variant := range product.Variants {
		variants = append(variants, VariantDTO{
			ID:        variant.ID,
			Language:  variant.Language,
			Condition: variant.Condition,
			Price:     types.FormatMoney(variant.Price),
			StockQty:  variant.StockQty,
		})
	}
	return ProductDTO{
		ID:        product.ID,
		Name:      product.Name,
		SetCode:   product.SetCode,
		Game:      product.Game,
		Kind:      product.Kind,
		ImageURL:  product.ImageURL,
		IsActive:  product.IsActive,
		Variants:  variants,
		CreatedAt: product.CreatedAt,
	}
}
