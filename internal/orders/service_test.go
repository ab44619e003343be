package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/internal/cart"
	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
	"github.com/cardhaus/cardhaus-backend/pkg/outbox"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, schema := range []string{
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
		`CREATE TABLE IF NOT EXISTS cart_records (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  session_token TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  shipping_method TEXT,
  shipping_address TEXT,
  payment_method TEXT,
  currency TEXT NOT NULL DEFAULT 'USD',
  items_total NUMERIC NOT NULL DEFAULT 0,
  shipping_total NUMERIC NOT NULL DEFAULT 0,
  tax_total NUMERIC NOT NULL DEFAULT 0,
  grand_total NUMERIC NOT NULL DEFAULT 0,
  converted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  inventory_id TEXT NOT NULL,
  name TEXT NOT NULL,
  set_code TEXT,
  image_url TEXT,
  language TEXT,
  condition TEXT,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL DEFAULT 0,
  user_id TEXT,
  session_token TEXT,
  cart_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  shipping_method TEXT NOT NULL,
  shipping_address TEXT,
  pickup_store_code TEXT,
  payment_method TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  items_total NUMERIC NOT NULL DEFAULT 0,
  shipping_total NUMERIC NOT NULL DEFAULT 0,
  tax_total NUMERIC NOT NULL DEFAULT 0,
  grand_total NUMERIC NOT NULL DEFAULT 0,
  remote_order_ref TEXT,
  paid_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  inventory_id TEXT,
  name TEXT NOT NULL,
  set_code TEXT,
  language TEXT,
  condition TEXT,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payment_attempts (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  remote_ref TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'created',
  amount NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'USD',
  failure_reason TEXT,
  captured_at DATETIME,
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

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit requires a transaction")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, queued := range s.events {
		if queued.EventType == event.EventType && queued.AggregateID == event.AggregateID {
			return nil
		}
	}
	return s.Emit(ctx, tx, event)
}

func (s *stubEmitter) countByType(eventType enums.OutboxEventType) int {
	count := 0
	for _, event := range s.events {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

type stubProfiles struct {
	users map[uuid.UUID]*models.User
	saved int
}

func (s *stubProfiles) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubProfiles) UpdateCheckoutDefaults(_ context.Context, id uuid.UUID, address *types.Address, method *enums.PaymentMethod) error {
	if user, ok := s.users[id]; ok {
		user.DefaultShippingAddress = address
		user.PreferredPaymentMethod = method
		s.saved++
	}
	return nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type testEnv struct {
	svc      Service
	db       *gorm.DB
	emitter  *stubEmitter
	profiles *stubProfiles
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	emitter := &stubEmitter{}
	profiles := &stubProfiles{users: map[uuid.UUID]*models.User{}}
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Carts:  cart.NewRepository(db),
		Users:  profiles,
		Outbox: emitter,
		Tx:     gormTxRunner{db: db},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{svc: svc, db: db, emitter: emitter, profiles: profiles}
}

func seedVariant(t *testing.T, db *gorm.DB, price string, stock int) *models.InventoryItem {
	t.Helper()
	variant := &models.InventoryItem{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Price:     decimal.RequireFromString(price),
		StockQty:  stock,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

func seedCart(t *testing.T, db *gorm.DB, owner types.OwnerRef, variant *models.InventoryItem, qty int) *models.CartRecord {
	t.Helper()
	record := &models.CartRecord{
		ID:           uuid.New(),
		UserID:       owner.UserID,
		SessionToken: owner.SessionToken,
		Status:       enums.CartStatusActive,
		Currency:     enums.CurrencyUSD,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	line := &models.CartItem{
		ID:          uuid.New(),
		CartID:      record.ID,
		ProductID:   variant.ProductID,
		InventoryID: variant.ID,
		Name:        "Black Lotus Proxy",
		Quantity:    qty,
		UnitPrice:   variant.Price,
		LineTotal:   cart.LineTotal(variant.Price, qty),
	}
	if err := db.Create(line).Error; err != nil {
		t.Fatalf("seed cart line: %v", err)
	}
	return record
}

func deliveryInput() SubmitInput {
	method := enums.PaymentMethodCard
	return SubmitInput{
		ShippingMethod: enums.ShippingMethodDelivery,
		ShippingAddress: &types.Address{
			Line1:      "400 Binder St",
			City:       "Tulsa",
			State:      "OK",
			PostalCode: "74104",
			Country:    "US",
		},
		PaymentMethod: &method,
	}
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var item models.InventoryItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	return item.StockQty
}

func TestSubmitConvertsCartToPendingOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	variant := seedVariant(t, env.db, "8.50", 5)
	record := seedCart(t, env.db, owner, variant, 3)

	order, err := env.svc.Submit(ctx, owner, deliveryInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if got := order.GrandTotal.StringFixed(2); got != "39.33" {
		t.Fatalf("expected frozen total 39.33, got %s", got)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 3 {
		t.Fatalf("expected one frozen line of 3, got %+v", order.Items)
	}
	if got := stockOf(t, env.db, variant.ID); got != 2 {
		t.Fatalf("expected stock 2 after reservation, got %d", got)
	}

	var converted models.CartRecord
	if err := env.db.First(&converted, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("load cart: %v", err)
	}
	if converted.Status != enums.CartStatusConverted || converted.ConvertedAt == nil {
		t.Fatalf("expected converted cart, got %+v", converted)
	}
	var lineCount int64
	if err := env.db.Model(&models.CartItem{}).Where("cart_id = ?", record.ID).Count(&lineCount).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if lineCount != 0 {
		t.Fatalf("expected cart lines cleared, got %d", lineCount)
	}
	if env.emitter.countByType(enums.EventOrderCreated) != 1 {
		t.Fatal("expected one order.created event")
	}
}

func TestSubmitEmptyCartCreatesNoOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	owner := types.SessionOwner("sess-" + uuid.NewString())

	_, err := env.svc.Submit(context.Background(), owner, deliveryInput())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	var count int64
	if err := env.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no order rows, got %d", count)
	}
}

func TestSubmitInsufficientStockRollsBackEverything(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	variant := seedVariant(t, env.db, "4.00", 5)
	record := seedCart(t, env.db, owner, variant, 6)

	_, err := env.svc.Submit(ctx, owner, deliveryInput())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	if got := stockOf(t, env.db, variant.ID); got != 5 {
		t.Fatalf("expected stock untouched, got %d", got)
	}
	var cartRow models.CartRecord
	if err := env.db.First(&cartRow, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("load cart: %v", err)
	}
	if cartRow.Status != enums.CartStatusActive {
		t.Fatalf("expected cart still active, got %s", cartRow.Status)
	}
	if len(env.emitter.events) != 0 {
		t.Fatalf("expected no events, got %d", len(env.emitter.events))
	}
}

func TestSubmitFallsBackToProfileDefaults(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	method := enums.PaymentMethodCard
	env.profiles.users[userID] = &models.User{
		ID: userID,
		DefaultShippingAddress: &types.Address{
			Line1:      "1 Saved Ave",
			City:       "Tulsa",
			State:      "OK",
			PostalCode: "74104",
			Country:    "US",
		},
		PreferredPaymentMethod: &method,
	}
	owner := types.UserOwner(userID)
	variant := seedVariant(t, env.db, "2.00", 5)
	seedCart(t, env.db, owner, variant, 1)

	order, err := env.svc.Submit(ctx, owner, SubmitInput{ShippingMethod: enums.ShippingMethodDelivery})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order.ShippingAddress == nil || order.ShippingAddress.Line1 != "1 Saved Ave" {
		t.Fatalf("expected saved address used, got %+v", order.ShippingAddress)
	}
	if order.PaymentMethod != enums.PaymentMethodCard {
		t.Fatalf("expected preferred method, got %s", order.PaymentMethod)
	}
}

func TestSubmitRejectsMissingShippingAndPayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	variant := seedVariant(t, env.db, "2.00", 5)
	seedCart(t, env.db, owner, variant, 1)

	_, err := env.svc.Submit(ctx, owner, SubmitInput{ShippingMethod: enums.ShippingMethodDelivery})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected missing shipping info, got %v", err)
	}

	input := deliveryInput()
	input.PaymentMethod = nil
	_, err = env.svc.Submit(ctx, owner, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected missing payment method, got %v", err)
	}
}

func submitOrder(t *testing.T, env *testEnv, owner types.OwnerRef, input SubmitInput, qty, stock int) *models.Order {
	t.Helper()
	variant := seedVariant(t, env.db, "4.00", stock)
	seedCart(t, env.db, owner, variant, qty)
	order, err := env.svc.Submit(context.Background(), owner, input)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return order
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	order := submitOrder(t, env, owner, deliveryInput(), 1, 5)

	paid, err := env.svc.MarkPaid(ctx, order.ID, ViaProcessor)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != enums.OrderStatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid order, got %+v", paid)
	}

	again, err := env.svc.MarkPaid(ctx, order.ID, ViaProcessor)
	if err != nil {
		t.Fatalf("second mark paid: %v", err)
	}
	if !again.PaidAt.Equal(*paid.PaidAt) {
		t.Fatal("expected paid_at unchanged on replay")
	}
	if env.emitter.countByType(enums.EventOrderPaid) != 1 {
		t.Fatal("expected exactly one order.paid event")
	}
}

func TestMarkPaidRejectsFulfilledOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	order := submitOrder(t, env, owner, deliveryInput(), 1, 5)

	if _, err := env.svc.MarkPaid(ctx, order.ID, ViaManual); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if _, err := env.svc.MarkDelivered(ctx, order.ID); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}

	_, err := env.svc.MarkPaid(ctx, order.ID, ViaManual)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestMarkDeliveredMapsShippingMethodToTerminalState(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	delivery := submitOrder(t, env, types.SessionOwner("sess-"+uuid.NewString()), deliveryInput(), 1, 5)
	if _, err := env.svc.MarkPaid(ctx, delivery.ID, ViaProcessor); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	fulfilled, err := env.svc.MarkDelivered(ctx, delivery.ID)
	if err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if fulfilled.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", fulfilled.Status)
	}

	// Cash on pickup goes straight from pending to picked_up.
	cash := enums.PaymentMethodCashOnPickup
	pickup := submitOrder(t, env, types.SessionOwner("sess-"+uuid.NewString()), SubmitInput{
		ShippingMethod: enums.ShippingMethodPickup,
		PaymentMethod:  &cash,
	}, 1, 5)
	fulfilled, err = env.svc.MarkDelivered(ctx, pickup.ID)
	if err != nil {
		t.Fatalf("mark delivered from pending: %v", err)
	}
	if fulfilled.Status != enums.OrderStatusPickedUp {
		t.Fatalf("expected picked_up, got %s", fulfilled.Status)
	}

	// Electronic payment cannot skip the paid step.
	card := submitOrder(t, env, types.SessionOwner("sess-"+uuid.NewString()), deliveryInput(), 1, 5)
	_, err = env.svc.MarkDelivered(ctx, card.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelRestoresReservedStock(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	variant := seedVariant(t, env.db, "4.00", 5)
	seedCart(t, env.db, owner, variant, 3)

	order, err := env.svc.Submit(ctx, owner, deliveryInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := stockOf(t, env.db, variant.ID); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}

	cancelled, err := env.svc.Cancel(ctx, order.ID, "changed my mind")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("expected cancelled order, got %+v", cancelled)
	}
	if got := stockOf(t, env.db, variant.ID); got != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got)
	}
	if env.emitter.countByType(enums.EventOrderCancelled) != 1 {
		t.Fatal("expected one order.cancelled event")
	}

	_, err = env.svc.Cancel(ctx, order.ID, "again")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelRejectedAfterPayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	order := submitOrder(t, env, owner, deliveryInput(), 1, 5)

	if _, err := env.svc.MarkPaid(ctx, order.ID, ViaProcessor); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	_, err := env.svc.Cancel(ctx, order.ID, "too late")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGetOrderScopedToOwner(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	order := submitOrder(t, env, owner, deliveryInput(), 1, 5)

	if _, err := env.svc.GetOrder(ctx, owner, order.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}

	_, err := env.svc.GetOrder(ctx, types.SessionOwner("sess-other"), order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
}
