package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// CartItemDTO is the API shape of one cart line.
type CartItemDTO struct {
	InventoryID uuid.UUID            `json:"inventory_id"`
	ProductID   uuid.UUID            `json:"product_id"`
	Name        string               `json:"name"`
	SetCode     *string              `json:"set_code,omitempty"`
	ImageURL    *string              `json:"image_url,omitempty"`
	Language    *enums.CardLanguage  `json:"language,omitempty"`
	Condition   *enums.CardCondition `json:"condition,omitempty"`
	Quantity    int                  `json:"quantity"`
	UnitPrice   string               `json:"unit_price"`
	LineTotal   string               `json:"line_total"`
}

// CartDTO is the API shape of the cart aggregate.
type CartDTO struct {
	ID            *uuid.UUID     `json:"id,omitempty"`
	Status        string         `json:"status"`
	Currency      string         `json:"currency"`
	Items         []CartItemDTO  `json:"items"`
	ItemsTotal    string         `json:"items_total"`
	ShippingTotal string         `json:"shipping_total"`
	TaxTotal      string         `json:"tax_total"`
	GrandTotal    string         `json:"grand_total"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

// FromModel converts a cart record to its API shape. A nil record maps to an
// empty cart, since carts are only created on the first added item.
func FromModel(cart *models.CartRecord) CartDTO {
	if cart == nil {
		zero := types.FormatMoney(RecalculateTotals(nil).Items)
		return CartDTO{
			Status:        enums.CartStatusActive.String(),
			Currency:      enums.CurrencyUSD.String(),
			Items:         []CartItemDTO{},
			ItemsTotal:    zero,
			ShippingTotal: zero,
			TaxTotal:      zero,
			GrandTotal:    zero,
		}
	}

	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, CartItemDTO{
			InventoryID: line.InventoryID,
			ProductID:   line.ProductID,
			Name:        line.Name,
			SetCode:     line.SetCode,
			ImageURL:    line.ImageURL,
			Language:    line.Language,
			Condition:   line.Condition,
			Quantity:    line.Quantity,
			UnitPrice:   types.FormatMoney(line.UnitPrice),
			LineTotal:   types.FormatMoney(line.LineTotal),
		})
	}

	id := cart.ID
	updatedAt := cart.UpdatedAt
	return CartDTO{
		ID:            &id,
		Status:        cart.Status.String(),
		Currency:      cart.Currency.String(),
		Items:         items,
		ItemsTotal:    types.FormatMoney(cart.ItemsTotal),
		ShippingTotal: types.FormatMoney(cart.ShippingTotal),
		TaxTotal:      types.FormatMoney(cart.TaxTotal),
		GrandTotal:    types.FormatMoney(cart.GrandTotal),
		UpdatedAt:     &updatedAt,
	}
}
