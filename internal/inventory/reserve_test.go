package inventory

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	schema := `
CREATE TABLE IF NOT EXISTS inventory_items (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  language TEXT,
  condition TEXT,
  price NUMERIC NOT NULL DEFAULT 0,
  stock_qty INTEGER NOT NULL DEFAULT 0 CHECK (stock_qty >= 0),
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedItem(t *testing.T, db *gorm.DB, stock int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		StockQty:  stock,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return item
}

func loadItem(t *testing.T, db *gorm.DB, id uuid.UUID) *models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	return &item
}

func TestReserveDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	itemA := seedItem(t, db, 5)
	itemB := seedItem(t, db, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []ReservationRequest{
			{InventoryID: itemA.ID, Name: "Charizard EX", Qty: 3},
			{InventoryID: itemB.ID, Name: "Elsa Rise", Qty: 1},
		})
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if got := loadItem(t, db, itemA.ID).StockQty; got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}
	if got := loadItem(t, db, itemB.ID).StockQty; got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
}

func TestReserveInsufficientStockAbortsEverything(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	itemA := seedItem(t, db, 5)
	itemB := seedItem(t, db, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []ReservationRequest{
			{InventoryID: itemA.ID, Name: "Charizard EX", Qty: 3},
			{InventoryID: itemB.ID, Name: "Elsa Rise", Qty: 2},
		})
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !strings.Contains(typed.Message(), "Elsa Rise") {
		t.Fatalf("expected failing line named, got %q", typed.Message())
	}

	// The partial decrement on the first line rolled back with the transaction.
	if got := loadItem(t, db, itemA.ID).StockQty; got != 5 {
		t.Fatalf("expected stock 5 after rollback, got %d", got)
	}
	if got := loadItem(t, db, itemB.ID).StockQty; got != 1 {
		t.Fatalf("expected stock 1 after rollback, got %d", got)
	}
}

func TestReserveRejectsInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	item := seedItem(t, db, 5)

	err := Reserve(context.Background(), db, []ReservationRequest{{InventoryID: item.ID, Qty: 0}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConcurrentReservesExhaustStockExactly(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// The shared-cache sqlite database tolerates one writer at a time, so
	// the pool serializes transactions while the goroutines race above it.
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	const stock = 5
	const attempts = 8
	item := seedItem(t, db, stock)

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- db.Transaction(func(tx *gorm.DB) error {
				return Reserve(ctx, tx, []ReservationRequest{{InventoryID: item.ID, Qty: 1}})
			})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("unexpected error %v", err)
		}
	}

	if succeeded != stock {
		t.Fatalf("expected exactly %d successful reserves, got %d", stock, succeeded)
	}
	if got := loadItem(t, db, item.ID).StockQty; got != 0 {
		t.Fatalf("expected stock exhausted, got %d", got)
	}
}

func TestRestockIncrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, 2)

	if err := Restock(ctx, db, item.ID, 3); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if got := loadItem(t, db, item.ID).StockQty; got != 5 {
		t.Fatalf("expected stock 5, got %d", got)
	}

	err := Restock(ctx, db, uuid.New(), 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
