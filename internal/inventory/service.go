package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateItemInput describes a new sellable variant.
type CreateItemInput struct {
	ProductID uuid.UUID            `json:"product_id" validate:"required"`
	Language  *enums.CardLanguage  `json:"language,omitempty"`
	Condition *enums.CardCondition `json:"condition,omitempty"`
	Price     string               `json:"price" validate:"required"`
	StockQty  int                  `json:"stock_qty" validate:"gte=0"`
}

// Service exposes the admin-facing inventory operations. Stock decrements for
// checkout go through Reserve directly inside the order transaction.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error)
	RestockItem(ctx context.Context, inventoryID uuid.UUID, qty int) (*models.InventoryItem, error)
	SetPrice(ctx context.Context, inventoryID uuid.UUID, price string) (*models.InventoryItem, error)
	GetItem(ctx context.Context, inventoryID uuid.UUID) (*models.InventoryItem, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.InventoryItem, error)
	List(ctx context.Context, limit int) ([]models.InventoryItem, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// ServiceParams bundles the dependencies required to build an inventory service.
type ServiceParams struct {
	Repo Repository
	Tx   txRunner
}

// NewService constructs an inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{repo: params.Repo, tx: params.Tx}, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Language != nil && !input.Language.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown language %q", *input.Language))
	}
	if input.Condition != nil && !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown condition %q", *input.Condition))
	}
	if input.StockQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	price, err := types.ParseMoney(input.Price)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}

	item := &models.InventoryItem{
		ProductID: input.ProductID,
		Language:  input.Language,
		Condition: input.Condition,
		Price:     price,
		StockQty:  input.StockQty,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "create inventory item")
	}
	return item, nil
}

func (s *service) RestockItem(ctx context.Context, inventoryID uuid.UUID, qty int) (*models.InventoryItem, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return Restock(ctx, tx, inventoryID, qty)
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, inventoryID)
}

func (s *service) SetPrice(ctx context.Context, inventoryID uuid.UUID, price string) (*models.InventoryItem, error) {
	parsed, err := types.ParseMoney(price)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	if _, err := s.GetItem(ctx, inventoryID); err != nil {
		return nil, err
	}
	// Orders keep their frozen unit prices, so only future carts see this.
	if err := s.repo.UpdatePrice(ctx, inventoryID, types.FormatMoney(parsed)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update price")
	}
	return s.GetItem(ctx, inventoryID)
}

func (s *service) GetItem(ctx context.Context, inventoryID uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.FindByID(ctx, inventoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory item")
	}
	return item, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.InventoryItem, error) {
	items, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory")
	}
	return items, nil
}

func (s *service) List(ctx context.Context, limit int) ([]models.InventoryItem, error) {
	items, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory")
	}
	return items, nil
}
