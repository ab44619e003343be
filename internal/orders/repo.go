package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/pagination"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// Repository manages persistence for orders and their frozen lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByRemoteRef(ctx context.Context, remoteRef string) (*models.Order, error)
	ListByOwner(ctx context.Context, owner types.OwnerRef, limit int) ([]models.Order, error)
	List(ctx context.Context, status *enums.OrderStatus, limit int) ([]models.Order, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, stampColumn string, at time.Time) (int64, error)
	SetRemoteRef(ctx context.Context, id uuid.UUID, remoteRef string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Attempts").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByRemoteRef(ctx context.Context, remoteRef string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Attempts").
		First(&order, "remote_order_ref = ?", remoteRef).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByOwner(ctx context.Context, owner types.OwnerRef, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	switch {
	case owner.IsUser():
		query = query.Where("user_id = ?", *owner.UserID)
	case owner.IsSession():
		query = query.Where("session_token = ?", *owner.SessionToken)
	default:
		return nil, gorm.ErrRecordNotFound
	}

	var list []models.Order
	if err := query.
		Order("created_at DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) List(ctx context.Context, status *enums.OrderStatus, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var list []models.Order
	if err := query.
		Order("created_at DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// FindPendingBefore returns orders still awaiting payment that were created
// before the cutoff.
func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var list []models.Order
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// SetStatus transitions the order only while it still holds the expected
// status. Returns the number of rows updated; zero means a concurrent writer
// moved the order first.
func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, stampColumn string, at time.Time) (int64, error) {
	updates := map[string]any{"status": to}
	if stampColumn != "" {
		updates[stampColumn] = at
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) SetRemoteRef(ctx context.Context, id uuid.UUID, remoteRef string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("remote_order_ref", remoteRef).Error
}
