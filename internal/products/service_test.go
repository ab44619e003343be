package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, schema := range []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  set_code TEXT,
  game TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT 'card',
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  language TEXT,
  condition TEXT,
  price NUMERIC NOT NULL DEFAULT 0,
  stock_qty INTEGER NOT NULL DEFAULT 0 CHECK (stock_qty >= 0),
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		if err := db.Exec(schema).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, game enums.Game, active bool, createdAt time.Time) models.Product {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		Name:      name,
		Game:      game,
		Kind:      enums.ProductKindCard,
		IsActive:  active,
		CreatedAt: createdAt,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestCreateProductDefaultsKind(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	card, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name: " Black Lotus ",
		Game: enums.GameMTG,
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if card.Name != "Black Lotus" {
		t.Fatalf("expected trimmed name, got %q", card.Name)
	}
	if card.Kind != enums.ProductKindCard {
		t.Fatalf("expected card kind, got %s", card.Kind)
	}
	if !card.IsActive {
		t.Fatal("expected new products to be active")
	}

	sleeves, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name: "Dragon Shield Sleeves",
		Game: enums.GameAccessory,
	})
	if err != nil {
		t.Fatalf("create accessory: %v", err)
	}
	if sleeves.Kind != enums.ProductKindAccessory {
		t.Fatalf("expected accessory kind, got %s", sleeves.Kind)
	}
}

func TestCreateProductRejectsBadInput(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	if _, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "  ", Game: enums.GameMTG}); err == nil {
		t.Fatal("expected error for blank name")
	}
	_, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "Charizard", Game: enums.Game("yugioh")})
	if err == nil {
		t.Fatal("expected error for unknown game")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateProductTogglesActive(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	product := seedProduct(t, db, "Pikachu Illustrator", enums.GamePokemon, true, time.Now().UTC())

	inactive := false
	updated, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsActive {
		t.Fatal("expected product to be deactivated")
	}

	if _, err := svc.UpdateProduct(context.Background(), uuid.New(), UpdateProductInput{IsActive: &inactive}); err == nil {
		t.Fatal("expected not found for unknown product")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetProductIncludesVariants(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	product := seedProduct(t, db, "Elsa, Spirit of Winter", enums.GameLorcana, true, time.Now().UTC())

	language := enums.CardLanguageEnglish
	condition := enums.CardConditionNearMint
	variant := models.InventoryItem{
		ID:        uuid.New(),
		ProductID: product.ID,
		Language:  &language,
		Condition: &condition,
		Price:     decimal.RequireFromString("12.50"),
		StockQty:  4,
	}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}

	dto, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(dto.Variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(dto.Variants))
	}
	if dto.Variants[0].Price != "12.50" {
		t.Fatalf("expected price 12.50, got %s", dto.Variants[0].Price)
	}
	if dto.Variants[0].StockQty != 4 {
		t.Fatalf("expected stock 4, got %d", dto.Variants[0].StockQty)
	}
}

func TestBrowseFiltersAndPaginates(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)

	base := time.Now().UTC().Add(-time.Hour)
	seedProduct(t, db, "Black Lotus", enums.GameMTG, true, base)
	seedProduct(t, db, "Mox Sapphire", enums.GameMTG, true, base.Add(time.Minute))
	seedProduct(t, db, "Charizard Base Set", enums.GamePokemon, true, base.Add(2*time.Minute))
	seedProduct(t, db, "Banned Proxy", enums.GameMTG, false, base.Add(3*time.Minute))

	mtg := enums.GameMTG
	page, err := svc.Browse(context.Background(), BrowseParams{Game: &mtg, Limit: 1})
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	if page.Items[0].Name != "Mox Sapphire" {
		t.Fatalf("expected newest active mtg product first, got %q", page.Items[0].Name)
	}
	if page.Cursor == "" {
		t.Fatal("expected cursor for second page")
	}

	second, err := svc.Browse(context.Background(), BrowseParams{Game: &mtg, Limit: 1, Cursor: page.Cursor})
	if err != nil {
		t.Fatalf("browse page 2: %v", err)
	}
	if len(second.Items) != 1 || second.Items[0].Name != "Black Lotus" {
		t.Fatalf("expected Black Lotus on page 2, got %+v", second.Items)
	}
	if second.Cursor != "" {
		t.Fatalf("expected no cursor past the last active mtg product, got %q", second.Cursor)
	}
}

func TestBrowseSearchesNameAndSet(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)

	now := time.Now().UTC()
	lotus := seedProduct(t, db, "Black Lotus", enums.GameMTG, true, now)
	setCode := "LEA"
	if err := db.Model(&models.Product{}).Where("id = ?", lotus.ID).Update("set_code", setCode).Error; err != nil {
		t.Fatalf("set code: %v", err)
	}
	seedProduct(t, db, "Shivan Dragon", enums.GameMTG, true, now)

	byName, err := svc.Browse(context.Background(), BrowseParams{Query: "lotus"})
	if err != nil {
		t.Fatalf("browse by name: %v", err)
	}
	if len(byName.Items) != 1 || byName.Items[0].Name != "Black Lotus" {
		t.Fatalf("expected name match, got %+v", byName.Items)
	}

	bySet, err := svc.Browse(context.Background(), BrowseParams{Query: "lea"})
	if err != nil {
		t.Fatalf("browse by set: %v", err)
	}
	if len(bySet.Items) != 1 || bySet.Items[0].ID != lotus.ID {
		t.Fatalf("expected set code match, got %+v", bySet.Items)
	}
}

func TestBrowseRejectsBadCursor(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.Browse(context.Background(), BrowseParams{Cursor: "nonsense"})
	if err == nil {
		t.Fatal("expected error for invalid cursor")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
