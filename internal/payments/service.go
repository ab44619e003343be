package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/internal/orders"
	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
	"github.com/cardhaus/cardhaus-backend/pkg/metrics"
	"github.com/cardhaus/cardhaus-backend/pkg/payproc"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// webhookDedupeTTL bounds how long a processor event id blocks replays.
const webhookDedupeTTL = 24 * time.Hour

const providerName = "cardpay"

// Processor is the remote payment gateway surface used by reconciliation.
type Processor interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, merchantRef string) (string, error)
	Capture(ctx context.Context, remoteRef string) (payproc.CaptureResult, error)
	VerifySignature(payload []byte, signature string) bool
}

type orderLifecycle interface {
	GetOrder(ctx context.Context, owner types.OwnerRef, orderID uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, via string) (*models.Order, error)
}

type orderStore interface {
	FindByRemoteRef(ctx context.Context, remoteRef string) (*models.Order, error)
	SetRemoteRef(ctx context.Context, id uuid.UUID, remoteRef string) error
}

type replayGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	WebhookEventKey(provider, eventID string) string
}

// Service reconciles orders against the remote payment processor.
type Service interface {
	CreateRemoteOrder(ctx context.Context, owner types.OwnerRef, orderID uuid.UUID) (*models.Order, error)
	Approve(ctx context.Context, owner types.OwnerRef, orderID uuid.UUID, remoteRef string) (*models.Order, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type service struct {
	processor Processor
	orders    orderLifecycle
	store     orderStore
	attempts  AttemptRepository
	guard     replayGuard
	pipeline  *metrics.PipelineMetrics
}

// ServiceParams bundles the dependencies required to build a payment service.
type ServiceParams struct {
	Processor Processor
	Orders    orderLifecycle
	Store     orderStore
	Attempts  AttemptRepository
	Guard     replayGuard
	Pipeline  *metrics.PipelineMetrics
}

// NewService constructs a payment reconciliation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Processor == nil {
		return nil, fmt.Errorf("payment processor is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order lifecycle is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("order store is required")
	}
	if params.Attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("replay guard is required")
	}
	return &service{
		processor: params.Processor,
		orders:    params.Orders,
		store:     params.Store,
		attempts:  params.Attempts,
		guard:     params.Guard,
		pipeline:  params.Pipeline,
	}, nil
}

// CreateRemoteOrder opens the remote transaction for the order's frozen
// total. Cash on pickup never touches the processor. Calling it again for an
// order that already holds a remote ref reuses that ref.
func (s *service) CreateRemoteOrder(ctx context.Context, owner types.OwnerRef, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot open payment for %s order", order.Status))
	}
	if !order.PaymentMethod.IsElectronic() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment method %s is settled in person", order.PaymentMethod))
	}
	if order.RemoteOrderRef != nil {
		return order, nil
	}

	remoteRef, err := s.processor.CreateOrder(ctx, order.GrandTotal, order.Currency.String(), order.ID.String())
	if err != nil {
		return nil, err
	}

	if err := s.store.SetRemoteRef(ctx, order.ID, remoteRef); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store remote ref")
	}
	attempt := &models.PaymentAttempt{
		ID:        uuid.New(),
		OrderID:   order.ID,
		RemoteRef: remoteRef,
		Status:    enums.PaymentAttemptStatusCreated,
		Amount:    order.GrandTotal,
		Currency:  order.Currency,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment attempt")
	}

	return s.orders.GetOrder(ctx, owner, orderID)
}

// Approve captures a previously opened remote transaction. The provided ref
// must match the one stored for this order, so a captured ref from another
// order cannot be replayed here.
func (s *service) Approve(ctx context.Context, owner types.OwnerRef, orderID uuid.UUID, remoteRef string) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusPaid {
		return order, nil
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot approve payment for %s order", order.Status))
	}
	if order.RemoteOrderRef == nil || *order.RemoteOrderRef != remoteRef {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment reference does not match order")
	}

	result, err := s.processor.Capture(ctx, remoteRef)
	if err != nil {
		s.pipeline.IncCapture("error")
		return nil, err
	}

	attempt, err := s.attempts.FindLatestByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment attempt")
	}

	if result.Status != payproc.CaptureStatusCaptured {
		s.pipeline.IncCapture("failed")
		if attempt != nil {
			if err := s.attempts.MarkFailed(ctx, attempt.ID, result.FailureReason); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record failed attempt")
			}
		}
		message := "payment processor declined the capture"
		if result.FailureReason != "" {
			message = fmt.Sprintf("%s: %s", message, result.FailureReason)
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, message)
	}

	now := time.Now().UTC()
	if attempt != nil {
		if err := s.attempts.MarkCaptured(ctx, attempt.ID, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record captured attempt")
		}
	}
	s.pipeline.IncCapture("ok")

	return s.orders.MarkPaid(ctx, order.ID, orders.ViaProcessor)
}

type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		RemoteRef     string `json:"remote_ref"`
		FailureReason string `json:"failure_reason,omitempty"`
	} `json:"data"`
}

// HandleWebhook applies processor callbacks. Delivery is at least once, so
// events are deduplicated by id and the paid transition is idempotent anyway.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.processor.VerifySignature(payload, signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload")
	}
	if event.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event id is required")
	}

	fresh, err := s.guard.SetNX(ctx, s.guard.WebhookEventKey(providerName, event.ID), 1, webhookDedupeTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "webhook dedupe")
	}
	if !fresh {
		return nil
	}

	switch event.Type {
	case "payment.captured":
		return s.applyCaptured(ctx, event)
	default:
		// Unknown event kinds are acknowledged so the processor stops
		// retrying them.
		return nil
	}
}

func (s *service) applyCaptured(ctx context.Context, event webhookEvent) error {
	if event.Data.RemoteRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook missing remote ref")
	}
	order, err := s.store.FindByRemoteRef(ctx, event.Data.RemoteRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no order for remote ref")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order by remote ref")
	}

	attempt, err := s.attempts.FindLatestByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment attempt")
	}
	if attempt != nil && attempt.Status != enums.PaymentAttemptStatusCaptured {
		if err := s.attempts.MarkCaptured(ctx, attempt.ID, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record captured attempt")
		}
	}

	if _, err := s.orders.MarkPaid(ctx, order.ID, orders.ViaProcessor); err != nil {
		return err
	}
	s.pipeline.IncCapture("ok")
	return nil
}
