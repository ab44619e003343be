package cart

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

type inventoryReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// AddItemInput identifies the variant and quantity to add.
type AddItemInput struct {
	InventoryID uuid.UUID `json:"inventory_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,gt=0"`
}

// Service exposes cart mutations. Every mutation recomputes totals inside a
// single transaction keyed by the owning user or anonymous session.
type Service interface {
	GetActiveCart(ctx context.Context, owner types.OwnerRef) (*models.CartRecord, error)
	AddItem(ctx context.Context, owner types.OwnerRef, input AddItemInput) (*models.CartRecord, error)
	UpdateQuantity(ctx context.Context, owner types.OwnerRef, inventoryID uuid.UUID, delta int) (*models.CartRecord, error)
	MergeOnSignIn(ctx context.Context, sessionToken string, userID uuid.UUID) (*models.CartRecord, error)
}

type service struct {
	repo      Repository
	inventory inventoryReader
	products  productReader
	tx        txRunner
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Repo      Repository
	Inventory inventoryReader
	Products  productReader
	Tx        txRunner
}

// NewService constructs a cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory reader is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:      params.Repo,
		inventory: params.Inventory,
		products:  params.Products,
		tx:        params.Tx,
	}, nil
}

// GetActiveCart returns the owner's active cart, or nil when none exists yet.
// Carts are created lazily on the first AddItem.
func (s *service) GetActiveCart(ctx context.Context, owner types.OwnerRef) (*models.CartRecord, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	cart, err := s.repo.FindActiveByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, owner types.OwnerRef, input AddItemInput) (*models.CartRecord, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if input.InventoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	variant, product, err := s.loadVariant(ctx, input.InventoryID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.findOrCreateCart(ctx, repo, owner)
		if err != nil {
			return err
		}

		line, err := repo.FindItem(ctx, cart.ID, variant.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}

		requested := input.Quantity
		if line != nil {
			requested += line.Quantity
		}
		if requested > variant.StockQty {
			return insufficientStock(product.Name, requested, variant.StockQty)
		}

		if line == nil {
			line = &models.CartItem{
				ID:          uuid.New(),
				CartID:      cart.ID,
				ProductID:   product.ID,
				InventoryID: variant.ID,
				Name:        product.Name,
				SetCode:     product.SetCode,
				ImageURL:    product.ImageURL,
				Language:    variant.Language,
				Condition:   variant.Condition,
				UnitPrice:   variant.Price,
				Quantity:    requested,
				LineTotal:   LineTotal(variant.Price, requested),
			}
			if err := repo.CreateItem(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart line")
			}
		} else {
			affected, err := repo.AdjustItemQuantity(ctx, cart.ID, variant.ID, input.Quantity, variant.StockQty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart line")
			}
			if affected == 0 {
				return insufficientStock(product.Name, requested, variant.StockQty)
			}
		}

		return s.persistTotals(ctx, repo, cart)
	})
	if err != nil {
		return nil, err
	}

	return s.GetActiveCart(ctx, owner)
}

func (s *service) UpdateQuantity(ctx context.Context, owner types.OwnerRef, inventoryID uuid.UUID, delta int) (*models.CartRecord, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}

	// Increments are capped by stock. The variant is read ahead of the
	// transaction; the guard inside the UPDATE stays authoritative.
	maxQty := 0
	if delta > 0 {
		variant, err := s.inventory.FindByID(ctx, inventoryID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory")
		}
		maxQty = variant.StockQty
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindActiveByOwner(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}

		line, err := repo.FindItem(ctx, cart.ID, inventoryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}

		newQty := line.Quantity + delta
		if newQty <= 0 {
			if err := repo.DeleteItem(ctx, cart.ID, inventoryID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
			}
			return s.persistTotals(ctx, repo, cart)
		}

		if delta > 0 && newQty > maxQty {
			return insufficientStock(line.Name, newQty, maxQty)
		}

		affected, err := repo.AdjustItemQuantity(ctx, cart.ID, inventoryID, delta, maxQty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart line")
		}
		if affected == 0 {
			// The line moved under us. Crossing the floor removes it, the
			// ceiling is a stock conflict.
			if delta < 0 {
				if err := repo.DeleteItem(ctx, cart.ID, inventoryID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
				}
			} else {
				return insufficientStock(line.Name, newQty, maxQty)
			}
		}
		return s.persistTotals(ctx, repo, cart)
	})
	if err != nil {
		return nil, err
	}

	return s.GetActiveCart(ctx, owner)
}

// MergeOnSignIn resolves the anonymous cart against the user's own cart when
// a session signs in. The user keeps whichever cart represents their latest
// intent: with no user cart the anonymous one is re-owned, and when both
// exist a non-empty anonymous cart replaces the user's cart outright.
func (s *service) MergeOnSignIn(ctx context.Context, sessionToken string, userID uuid.UUID) (*models.CartRecord, error) {
	if sessionToken == "" || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session token and user id are required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		anon, err := repo.FindActiveByOwner(ctx, types.SessionOwner(sessionToken))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session cart")
		}
		if anon == nil {
			return nil
		}

		own, err := repo.FindActiveByOwner(ctx, types.UserOwner(userID))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user cart")
		}

		if own == nil {
			if err := repo.ReassignToUser(ctx, anon.ID, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign cart")
			}
			return nil
		}

		if len(anon.Items) == 0 {
			if err := repo.Delete(ctx, anon.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop empty session cart")
			}
			return nil
		}

		if err := repo.Delete(ctx, own.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop superseded user cart")
		}
		if err := repo.ReassignToUser(ctx, anon.ID, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetActiveCart(ctx, types.UserOwner(userID))
}

func (s *service) findOrCreateCart(ctx context.Context, repo Repository, owner types.OwnerRef) (*models.CartRecord, error) {
	cart, err := repo.FindActiveByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	cart = &models.CartRecord{
		ID:           uuid.New(),
		UserID:       owner.UserID,
		SessionToken: owner.SessionToken,
		Status:       enums.CartStatusActive,
		Currency:     enums.CurrencyUSD,
	}
	if err := repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return cart, nil
}

func (s *service) persistTotals(ctx context.Context, repo Repository, cart *models.CartRecord) error {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
	}
	totals := RecalculateTotals(items)
	totals.Apply(cart)
	if err := repo.UpdateTotals(ctx, cart.ID, totals); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart totals")
	}
	return nil
}

func (s *service) loadVariant(ctx context.Context, inventoryID uuid.UUID) (*models.InventoryItem, *models.Product, error) {
	variant, err := s.inventory.FindByID(ctx, inventoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory")
	}
	product, err := s.products.FindByID(ctx, variant.ProductID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not for sale")
	}
	return variant, product, nil
}

func insufficientStock(name string, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeConflict,
		fmt.Sprintf("insufficient stock for %s", name)).
		WithDetails(map[string]any{
			"requested": requested,
			"available": available,
		})
}
