package cart

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
)

func money(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return d
}

func TestRecalculateTotalsFixture(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{UnitPrice: money(t, "8.50"), Quantity: 3},
	}

	totals := RecalculateTotals(items)

	if got := totals.Items.StringFixed(2); got != "25.50" {
		t.Fatalf("items total: expected 25.50, got %s", got)
	}
	if got := totals.Tax.StringFixed(2); got != "3.83" {
		t.Fatalf("tax: expected 3.83, got %s", got)
	}
	if got := totals.Shipping.StringFixed(2); got != "10.00" {
		t.Fatalf("shipping: expected 10.00, got %s", got)
	}
	if got := totals.Grand.StringFixed(2); got != "39.33" {
		t.Fatalf("grand total: expected 39.33, got %s", got)
	}
}

func TestRecalculateTotalsFreeShippingOverThreshold(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{UnitPrice: money(t, "100.01"), Quantity: 1},
	}
	totals := RecalculateTotals(items)
	if !totals.Shipping.IsZero() {
		t.Fatalf("expected free shipping, got %s", totals.Shipping.StringFixed(2))
	}

	// Exactly at the threshold still pays the flat fee.
	items = []models.CartItem{{UnitPrice: money(t, "100.00"), Quantity: 1}}
	totals = RecalculateTotals(items)
	if got := totals.Shipping.StringFixed(2); got != "10.00" {
		t.Fatalf("expected flat fee at threshold, got %s", got)
	}
}

func TestRecalculateTotalsEmptyCartIsAllZero(t *testing.T) {
	t.Parallel()

	totals := RecalculateTotals(nil)
	for name, value := range map[string]decimal.Decimal{
		"items":    totals.Items,
		"shipping": totals.Shipping,
		"tax":      totals.Tax,
		"grand":    totals.Grand,
	} {
		if !value.IsZero() {
			t.Fatalf("expected zero %s, got %s", name, value.StringFixed(2))
		}
	}
}

func TestRecalculateTotalsIsDeterministic(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{UnitPrice: money(t, "0.33"), Quantity: 7},
		{UnitPrice: money(t, "19.99"), Quantity: 2},
	}
	first := RecalculateTotals(items)
	second := RecalculateTotals(items)
	if !first.Grand.Equal(second.Grand) || !first.Tax.Equal(second.Tax) {
		t.Fatalf("totals changed between runs: %+v vs %+v", first, second)
	}
}
