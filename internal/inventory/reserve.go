package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
)

// ReservationRequest asks to take Qty units of one variant out of stock.
// Name is carried along so rejections can identify the line for the buyer.
type ReservationRequest struct {
	InventoryID uuid.UUID
	Name        string
	Qty         int
}

// Reserve decrements stock for every request inside the provided transaction.
// Each decrement is guarded so stock can never go below zero even under
// concurrent submissions. Any failed line returns an error, which aborts the
// enclosing transaction and releases every prior decrement.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "reserve requires a transaction")
	}
	for _, req := range requests {
		if req.InventoryID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation missing inventory id")
		}
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("reservation for %s has non-positive quantity %d", labelFor(req), req.Qty))
		}
	}

	for _, req := range requests {
		result := tx.WithContext(ctx).Exec(
			`UPDATE inventory_items
			 SET stock_qty = stock_qty - ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND stock_qty >= ?`,
			req.Qty, req.InventoryID, req.Qty,
		)
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "reserve inventory")
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("insufficient stock for %s", labelFor(req))).
				WithDetails(map[string]any{
					"inventory_id": req.InventoryID.String(),
					"requested":    req.Qty,
				})
		}
	}
	return nil
}

// Restock returns quantity units of the variant to stock. Used by order
// cancellation rollback and admin corrections.
func Restock(ctx context.Context, tx *gorm.DB, inventoryID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}
	result := tx.WithContext(ctx).Exec(
		`UPDATE inventory_items
		 SET stock_qty = stock_qty + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		qty, inventoryID,
	)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "restock inventory")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	return nil
}

func labelFor(req ReservationRequest) string {
	if name := strings.TrimSpace(req.Name); name != "" {
		return name
	}
	return req.InventoryID.String()
}
