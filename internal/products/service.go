package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
	"github.com/cardhaus/cardhaus-backend/pkg/pagination"
)

// Service exposes catalog browse and admin product management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	Browse(ctx context.Context, params BrowseParams) (*BrowseResult, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name     string     `json:"name" validate:"required"`
	SetCode  *string    `json:"set_code,omitempty"`
	Game     enums.Game `json:"game" validate:"required"`
	Kind     enums.ProductKind `json:"kind,omitempty"`
	ImageURL *string           `json:"image_url,omitempty"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name     *string `json:"name,omitempty"`
	SetCode  *string `json:"set_code,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// BrowseParams configures catalog listing for the storefront.
type BrowseParams struct {
	Game            *enums.Game
	Query           string
	Limit           int
	Cursor          string
	IncludeInactive bool
}

// BrowseResult wraps a catalog page and the cursor for the next one.
type BrowseResult struct {
	Items  []ProductDTO `json:"items"`
	Cursor string       `json:"cursor"`
}

type service struct {
	repo Repository
}

// NewService constructs a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if !input.Game.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown game %q", input.Game))
	}
	kind := input.Kind
	if kind == "" {
		kind = enums.ProductKindCard
		if input.Game == enums.GameAccessory {
			kind = enums.ProductKindAccessory
		}
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product kind %q", kind))
	}

	product := &models.Product{
		Name:     name,
		SetCode:  input.SetCode,
		Game:     input.Game,
		Kind:     kind,
		ImageURL: input.ImageURL,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "create product")
	}
	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		updates["name"] = name
	}
	if input.SetCode != nil {
		updates["set_code"] = *input.SetCode
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, productID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
		}
	}
	return s.GetProduct(ctx, productID)
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) Browse(ctx context.Context, params BrowseParams) (*BrowseResult, error) {
	if params.Game != nil && !params.Game.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown game %q", *params.Game))
	}

	query := listProductsParams{
		Game:            params.Game,
		Query:           params.Query,
		Limit:           params.Limit,
		IncludeInactive: params.IncludeInactive,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	result := &BrowseResult{Items: make([]ProductDTO, 0, len(rows))}
	for _, row := range rows {
		result.Items = append(result.Items, FromModel(row))
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}
