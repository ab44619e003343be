package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
	"github.com/cardhaus/cardhaus-backend/pkg/payproc"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

func newAttemptDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	schema := `
CREATE TABLE IF NOT EXISTS payment_attempts (
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
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

type stubProcessor struct {
	createCalls int
	captureRefs []string
	capture     payproc.CaptureResult
	captureErr  error
	secret      string
}

func (p *stubProcessor) CreateOrder(_ context.Context, amount decimal.Decimal, currency, merchantRef string) (string, error) {
	p.createCalls++
	return fmt.Sprintf("rref-%s-%s-%s", amount.StringFixed(2), currency, merchantRef[:8]), nil
}

func (p *stubProcessor) Capture(_ context.Context, remoteRef string) (payproc.CaptureResult, error) {
	p.captureRefs = append(p.captureRefs, remoteRef)
	if p.captureErr != nil {
		return payproc.CaptureResult{}, p.captureErr
	}
	return p.capture, nil
}

func (p *stubProcessor) VerifySignature(_ []byte, signature string) bool {
	return signature == p.secret
}

type stubLifecycle struct {
	orders    map[uuid.UUID]*models.Order
	paidCalls []uuid.UUID
}

func (s *stubLifecycle) GetOrder(_ context.Context, owner types.OwnerRef, orderID uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if owner.IsSession() && (order.SessionToken == nil || *order.SessionToken != *owner.SessionToken) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	copied := *order
	return &copied, nil
}

func (s *stubLifecycle) MarkPaid(_ context.Context, orderID uuid.UUID, via string) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	s.paidCalls = append(s.paidCalls, orderID)
	if order.Status != enums.OrderStatusPaid {
		order.Status = enums.OrderStatusPaid
		now := time.Now().UTC()
		order.PaidAt = &now
	}
	return order, nil
}

type stubStore struct {
	lifecycle *stubLifecycle
}

func (s *stubStore) FindByRemoteRef(_ context.Context, remoteRef string) (*models.Order, error) {
	for _, order := range s.lifecycle.orders {
		if order.RemoteOrderRef != nil && *order.RemoteOrderRef == remoteRef {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubStore) SetRemoteRef(_ context.Context, id uuid.UUID, remoteRef string) error {
	if order, ok := s.lifecycle.orders[id]; ok {
		order.RemoteOrderRef = &remoteRef
	}
	return nil
}

type stubGuard struct {
	seen map[string]bool
}

func (g *stubGuard) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *stubGuard) WebhookEventKey(provider, eventID string) string {
	return "ch:idempotency:webhook:" + provider + ":" + eventID
}

type testEnv struct {
	svc       Service
	processor *stubProcessor
	lifecycle *stubLifecycle
	attempts  AttemptRepository
	db        *gorm.DB
	owner     types.OwnerRef
	order     *models.Order
}

func newTestEnv(t *testing.T, method enums.PaymentMethod) *testEnv {
	t.Helper()
	db := newAttemptDB(t)
	token := "sess-" + uuid.NewString()
	order := &models.Order{
		ID:             uuid.New(),
		SessionToken:   &token,
		Status:         enums.OrderStatusPending,
		ShippingMethod: enums.ShippingMethodDelivery,
		PaymentMethod:  method,
		Currency:       enums.CurrencyUSD,
		GrandTotal:     decimal.RequireFromString("39.33"),
	}
	lifecycle := &stubLifecycle{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	processor := &stubProcessor{capture: payproc.CaptureResult{Status: payproc.CaptureStatusCaptured}, secret: "good-sig"}
	attempts := NewAttemptRepository(db)
	svc, err := NewService(ServiceParams{
		Processor: processor,
		Orders:    lifecycle,
		Store:     &stubStore{lifecycle: lifecycle},
		Attempts:  attempts,
		Guard:     &stubGuard{seen: map[string]bool{}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{
		svc:       svc,
		processor: processor,
		lifecycle: lifecycle,
		attempts:  attempts,
		db:        db,
		owner:     types.SessionOwner(token),
		order:     order,
	}
}

func TestCreateRemoteOrderStoresRefAndAttempt(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, enums.PaymentMethodCard)
	ctx := context.Background()

	order, err := env.svc.CreateRemoteOrder(ctx, env.owner, env.order.ID)
	if err != nil {
		t.Fatalf("create remote order: %v", err)
	}
	if order.RemoteOrderRef == nil {
		t.Fatal("expected remote ref stored")
	}

	attempt, err := env.attempts.FindLatestByOrder(ctx, env.order.ID)
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if attempt.Status != enums.PaymentAttemptStatusCreated {
		t.Fatalf("expected created attempt, got %s", attempt.Status)
	}
	if attempt.Amount.StringFixed(2) != "39.33" {
		t.Fatalf("expected frozen amount, got %s", attempt.Amount.StringFixed(2))
	}

	// A second call reuses the open remote transaction.
	if _, err := env.svc.CreateRemoteOrder(ctx, env.owner, env.order.ID); err != nil {
		t.Fatalf("second create: %v", err)
	}
	if env.processor.createCalls != 1 {
		t.Fatalf("expected one processor call, got %d", env.processor.createCalls)
	}
}

func TestCreateRemoteOrderRejectsCashOnPickup(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, enums.PaymentMethodCashOnPickup)
	_, err := env.svc.CreateRemoteOrder(context.Background(), env.owner, env.order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if env.processor.createCalls != 0 {
		t.Fatal("processor must not be called for cash orders")
	}
}

func TestApproveRejectsForeignRemoteRef(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, enums.PaymentMethodCard)
	ctx := context.Background()
	if _, err := env.svc.CreateRemoteOrder(ctx, env.owner, env.order.ID); err != nil {
		t.Fatalf("create remote order: %v", err)
	}

	_, err := env.svc.Approve(ctx, env.owner, env.order.ID, "rref-from-another-order")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(env.processor.captureRefs) != 0 {
		t.Fatal("capture must not run with a mismatched ref")
	}
	if len(env.lifecycle.paidCalls) != 0 {
		t.Fatal("order must stay pending")
	}
}

func TestApproveCapturedMarksPaid(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, enums.PaymentMethodCard)
	ctx := context.Background()
	created, err := env.svc.CreateRemoteOrder(ctx, env.owner, env.order.ID)
	if err != nil {
		t.Fatalf("create remote order: %v", err)
	}

	order, err := env.svc.Approve(ctx, env.owner, env.order.ID, *created.RemoteOrderRef)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", order.Status)
	}

	attempt, err := env.attempts.FindLatestByOrder(ctx, env.order.ID)
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if attempt.Status != enums.PaymentAttemptStatusCaptured || attempt.CapturedAt == nil {
		t.Fatalf("expected captured attempt, got %+v", attempt)
	}
}

func TestApproveFailedCaptureLeavesOrderPending(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, enums.PaymentMethodCard)
	env.processor.capture = payproc.CaptureResult{
		Status:        payproc.CaptureStatusFailed,
		FailureReason: "card declined",
	}
	ctx := context.Background()
	created, err := env.svc.CreateRemoteOrder(ctx, env.owner, env.order.ID)
	if err != nil {
		t.Fatalf("create remote order: %v", err)
	}

	_, err = env.svc.Approve(ctx, env.owner, env.order.ID, *created.RemoteOrderRef)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if env.order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", env.order.Status)
	}

	attempt, err := env.attempts.FindLatestByOrder(ctx, env.order.ID)
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if attempt.Status != enums.PaymentAttemptStatusFailed {
		t.Fatalf("expected failed attempt, got %s", attempt.Status)
	}
	if attempt.FailureReason == nil || *attempt.FailureReason != "card declined" {
		t.Fatalf("expected failure reason recorded, got %+v", attempt.FailureReason)
	}
}

func webhookBody(t *testing.T, eventID, eventType, remoteRef string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{"remote_ref": remoteRef},
	})
	if err != nil {
		t.Fatalf("marshal webhook: %v", err)
	}
	return body
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, enums.PaymentMethodCard)
	body := webhookBody(t, "evt-1", "payment.captured", "rref-x")

	err := env.svc.HandleWebhook(context.Background(), body, "tampered")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestHandleWebhookCapturesOnceUnderReplay(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, enums.PaymentMethodCard)
	ctx := context.Background()
	created, err := env.svc.CreateRemoteOrder(ctx, env.owner, env.order.ID)
	if err != nil {
		t.Fatalf("create remote order: %v", err)
	}
	body := webhookBody(t, "evt-42", "payment.captured", *created.RemoteOrderRef)

	if err := env.svc.HandleWebhook(ctx, body, "good-sig"); err != nil {
		t.Fatalf("first webhook: %v", err)
	}
	if err := env.svc.HandleWebhook(ctx, body, "good-sig"); err != nil {
		t.Fatalf("replayed webhook: %v", err)
	}

	if len(env.lifecycle.paidCalls) != 1 {
		t.Fatalf("expected one paid transition, got %d", len(env.lifecycle.paidCalls))
	}
	if env.order.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", env.order.Status)
	}
}

func TestHandleWebhookIgnoresUnknownEventKinds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, enums.PaymentMethodCard)
	body := webhookBody(t, "evt-9", "payment.refund_requested", "rref-x")
	if err := env.svc.HandleWebhook(context.Background(), body, "good-sig"); err != nil {
		t.Fatalf("expected unknown kind acknowledged, got %v", err)
	}
}
