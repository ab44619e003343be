package cart

import (
	"github.com/shopspring/decimal"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

var (
	freeShippingThreshold = decimal.NewFromInt(100)
	flatShippingFee       = decimal.RequireFromString("10.00")
	taxRate               = decimal.RequireFromString("0.15")
)

// Totals is the server-computed charge breakdown for a cart or order.
type Totals struct {
	Items    decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Grand    decimal.Decimal
}

// RecalculateTotals derives the full breakdown from the cart lines. Pure and
// deterministic: every mutation recomputes and persists the result, client
// supplied totals are never trusted. Each stage rounds half-up to two
// decimals so stored totals match what buyers see.
func RecalculateTotals(items []models.CartItem) Totals {
	itemsTotal := decimal.Zero
	for _, line := range items {
		itemsTotal = itemsTotal.Add(LineTotal(line.UnitPrice, line.Quantity))
	}
	itemsTotal = types.RoundMoney(itemsTotal)

	if itemsTotal.IsZero() {
		return Totals{
			Items:    decimal.Zero,
			Shipping: decimal.Zero,
			Tax:      decimal.Zero,
			Grand:    decimal.Zero,
		}
	}

	shipping := flatShippingFee
	if itemsTotal.GreaterThan(freeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = types.RoundMoney(shipping)

	tax := types.RoundMoney(itemsTotal.Mul(taxRate))
	grand := types.RoundMoney(itemsTotal.Add(shipping).Add(tax))

	return Totals{
		Items:    itemsTotal,
		Shipping: shipping,
		Tax:      tax,
		Grand:    grand,
	}
}

// LineTotal computes the rounded extended price for one line.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return types.RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Apply writes the breakdown onto the cart record.
func (t Totals) Apply(cart *models.CartRecord) {
	cart.ItemsTotal = t.Items
	cart.ShippingTotal = t.Shipping
	cart.TaxTotal = t.Tax
	cart.GrandTotal = t.Grand
}
