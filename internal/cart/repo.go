package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// Repository manages persistence for carts and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cart *models.CartRecord) error
	UpdateTotals(ctx context.Context, cartID uuid.UUID, totals Totals) error
	FindActiveByOwner(ctx context.Context, owner types.OwnerRef) (*models.CartRecord, error)
	FindItem(ctx context.Context, cartID, inventoryID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	AdjustItemQuantity(ctx context.Context, cartID, inventoryID uuid.UUID, delta, maxQty int) (int64, error)
	DeleteItem(ctx context.Context, cartID, inventoryID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	MarkConverted(ctx context.Context, cartID uuid.UUID, at time.Time) error
	ReassignToUser(ctx context.Context, cartID, userID uuid.UUID) error
	Delete(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cart *models.CartRecord) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *repository) UpdateTotals(ctx context.Context, cartID uuid.UUID, totals Totals) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"items_total":    totals.Items,
			"shipping_total": totals.Shipping,
			"tax_total":      totals.Tax,
			"grand_total":    totals.Grand,
		}).Error
}

func (r *repository) FindActiveByOwner(ctx context.Context, owner types.OwnerRef) (*models.CartRecord, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("status = ?", enums.CartStatusActive)

	switch {
	case owner.IsUser():
		query = query.Where("user_id = ?", *owner.UserID)
	case owner.IsSession():
		query = query.Where("session_token = ?", *owner.SessionToken)
	default:
		return nil, gorm.ErrRecordNotFound
	}

	var cart models.CartRecord
	if err := query.Order("created_at DESC").First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindItem(ctx context.Context, cartID, inventoryID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		First(&item, "cart_id = ? AND inventory_id = ?", cartID, inventoryID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// AdjustItemQuantity applies a relative quantity change with the guards in
// the UPDATE itself, so concurrent deltas on the same line converge instead
// of overwriting each other. The line must stay above zero and, when maxQty
// is positive, at or under maxQty. Returns the number of rows changed; zero
// means a guard rejected the delta or the line no longer exists.
func (r *repository) AdjustItemQuantity(ctx context.Context, cartID, inventoryID uuid.UUID, delta, maxQty int) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND inventory_id = ?", cartID, inventoryID).
		Where("quantity + ? > 0", delta)
	if maxQty > 0 {
		query = query.Where("quantity + ? <= ?", delta, maxQty)
	}
	result := query.Updates(map[string]any{
		"quantity":   gorm.Expr("quantity + ?", delta),
		"line_total": gorm.Expr("unit_price * (quantity + ?)", delta),
	})
	return result.RowsAffected, result.Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID, inventoryID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND inventory_id = ?", cartID, inventoryID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) MarkConverted(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": at,
		}).Error
}

func (r *repository) ReassignToUser(ctx context.Context, cartID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"user_id":       userID,
			"session_token": nil,
		}).Error
}

func (r *repository) Delete(ctx context.Context, cartID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", cartID).Delete(&models.CartRecord{}).Error
}
