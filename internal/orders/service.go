package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/internal/cart"
	"github.com/cardhaus/cardhaus-backend/internal/inventory"
	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
	"github.com/cardhaus/cardhaus-backend/pkg/metrics"
	"github.com/cardhaus/cardhaus-backend/pkg/outbox"
	"github.com/cardhaus/cardhaus-backend/pkg/outbox/payloads"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// Payment capture sources recorded on the paid event.
const (
	ViaProcessor = "processor"
	ViaManual    = "manual"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userProfiles interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateCheckoutDefaults(ctx context.Context, id uuid.UUID, address *types.Address, method *enums.PaymentMethod) error
}

// Service drives the order lifecycle from checkout through fulfillment.
type Service interface {
	Submit(ctx context.Context, owner types.OwnerRef, input SubmitInput) (*models.Order, error)
	GetOrder(ctx context.Context, owner types.OwnerRef, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, owner types.OwnerRef, limit int) ([]models.Order, error)
	AdminList(ctx context.Context, status *enums.OrderStatus, limit int) ([]models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, via string) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
}

type service struct {
	repo     Repository
	carts    cart.Repository
	users    userProfiles
	outbox   outboxEmitter
	tx       txRunner
	pipeline *metrics.PipelineMetrics
}

// ServiceParams bundles the dependencies required to build an order service.
type ServiceParams struct {
	Repo     Repository
	Carts    cart.Repository
	Users    userProfiles
	Outbox   outboxEmitter
	Tx       txRunner
	Pipeline *metrics.PipelineMetrics
}

// NewService constructs an order service. Pipeline metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:     params.Repo,
		carts:    params.Carts,
		users:    params.Users,
		outbox:   params.Outbox,
		tx:       params.Tx,
		pipeline: params.Pipeline,
	}, nil
}

// Submit converts the owner's active cart into a pending order. Reservation,
// snapshot, cart conversion and the created event share one transaction, so
// a failed line leaves no trace.
func (s *service) Submit(ctx context.Context, owner types.OwnerRef, input SubmitInput) (*models.Order, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order owner is required")
	}
	if !input.ShippingMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping method is required")
	}

	started := time.Now()
	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)

		record, err := carts.FindActiveByOwner(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		details, err := s.resolveCheckoutDetails(ctx, owner, input)
		if err != nil {
			return err
		}

		requests := make([]inventory.ReservationRequest, 0, len(record.Items))
		for _, line := range record.Items {
			requests = append(requests, inventory.ReservationRequest{
				InventoryID: line.InventoryID,
				Name:        line.Name,
				Qty:         line.Quantity,
			})
		}
		if err := inventory.Reserve(ctx, tx, requests); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
				s.pipeline.IncStockRejection()
			}
			return err
		}

		totals := cart.RecalculateTotals(record.Items)
		order := &models.Order{
			ID:              uuid.New(),
			UserID:          owner.UserID,
			SessionToken:    owner.SessionToken,
			CartID:          record.ID,
			Status:          enums.OrderStatusPending,
			ShippingMethod:  input.ShippingMethod,
			ShippingAddress: details.address,
			PickupStoreCode: details.pickupStoreCode,
			PaymentMethod:   details.paymentMethod,
			Currency:        record.Currency,
			ItemsTotal:      totals.Items,
			ShippingTotal:   totals.Shipping,
			TaxTotal:        totals.Tax,
			GrandTotal:      totals.Grand,
			Items:           freezeItems(record.Items),
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		orderID = order.ID

		now := time.Now().UTC()
		if err := carts.MarkConverted(ctx, record.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "convert cart")
		}
		if err := carts.ClearItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(owner),
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         order.UserID,
				ShippingMethod: order.ShippingMethod,
				PaymentMethod:  order.PaymentMethod,
				GrandTotal:     types.FormatMoney(order.GrandTotal),
				Currency:       order.Currency,
				ItemCount:      len(order.Items),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	s.pipeline.ObserveCheckoutDuration(time.Since(started))
	if err != nil {
		s.pipeline.IncCheckout("rejected")
		return nil, err
	}
	s.pipeline.IncCheckout("ok")

	return s.loadOrder(ctx, orderID)
}

func (s *service) GetOrder(ctx context.Context, owner types.OwnerRef, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ownerMatches(order, owner) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, owner types.OwnerRef, limit int) ([]models.Order, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order owner is required")
	}
	list, err := s.repo.ListByOwner(ctx, owner, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

func (s *service) AdminList(ctx context.Context, status *enums.OrderStatus, limit int) ([]models.Order, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", *status))
	}
	list, err := s.repo.List(ctx, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

// MarkPaid moves a pending order to paid. Calling it on an already paid
// order is a no-op success so processor callbacks can be retried freely.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, via string) (*models.Order, error) {
	if via != ViaProcessor && via != ViaManual {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment source %q", via))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := findForUpdate(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusPaid {
			return nil
		}
		if err := validateTransition(order, enums.OrderStatusPaid); err != nil {
			return err
		}

		now := time.Now().UTC()
		won, err := claimTransition(ctx, repo, order, enums.OrderStatusPaid, "paid_at", now)
		if err != nil {
			return err
		}
		if !won {
			// A concurrent writer already marked the order paid.
			return nil
		}
		s.pipeline.IncStatusTransition(enums.OrderStatusPaid.String())

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderPaidEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				Via:        via,
				GrandTotal: types.FormatMoney(order.GrandTotal),
				PaidAt:     now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

// MarkDelivered moves a paid order to its fulfilled state: delivered for
// delivery orders, picked_up for pickup orders. Cash-on-pickup orders may go
// straight from pending. Idempotent.
func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := findForUpdate(ctx, repo, orderID)
		if err != nil {
			return err
		}
		target := fulfilledStatus(order.ShippingMethod)
		if order.Status == target {
			return nil
		}
		if err := validateTransition(order, target); err != nil {
			return err
		}

		now := time.Now().UTC()
		won, err := claimTransition(ctx, repo, order, target, "delivered_at", now)
		if err != nil {
			return err
		}
		if !won {
			// A concurrent writer already fulfilled the order.
			return nil
		}
		s.pipeline.IncStatusTransition(target.String())

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				Status:      target,
				DeliveredAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

// Cancel aborts a pending order and puts every reserved unit back in stock
// inside the same transaction.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := findForUpdate(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := validateTransition(order, enums.OrderStatusCancelled); err != nil {
			return err
		}

		// Claim the transition before touching stock so a racing cancel can
		// never restock the same reservation twice.
		now := time.Now().UTC()
		won, err := claimTransition(ctx, repo, order, enums.OrderStatusCancelled, "cancelled_at", now)
		if err != nil {
			return err
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", enums.OrderStatusCancelled, enums.OrderStatusCancelled))
		}

		for _, line := range order.Items {
			if line.InventoryID == nil {
				continue
			}
			if err := inventory.Restock(ctx, tx, *line.InventoryID, line.Quantity); err != nil {
				return err
			}
		}
		s.pipeline.IncStatusTransition(enums.OrderStatusCancelled.String())

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				CancelledAt: now,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

type checkoutDetails struct {
	address         *types.Address
	pickupStoreCode *string
	paymentMethod   enums.PaymentMethod
}

// resolveCheckoutDetails fills gaps in the submitted payload from the user's
// saved profile. Anonymous sessions have no profile to fall back to.
func (s *service) resolveCheckoutDetails(ctx context.Context, owner types.OwnerRef, input SubmitInput) (checkoutDetails, error) {
	var profile *models.User
	if owner.IsUser() {
		user, err := s.users.FindByID(ctx, *owner.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return checkoutDetails{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user profile")
		}
		profile = user
	}

	details := checkoutDetails{
		address:         input.ShippingAddress,
		pickupStoreCode: input.PickupStoreCode,
	}

	if input.ShippingMethod == enums.ShippingMethodDelivery {
		if details.address == nil && profile != nil {
			details.address = profile.DefaultShippingAddress
		}
		if details.address == nil || details.address.IsZero() {
			return checkoutDetails{}, pkgerrors.New(pkgerrors.CodeValidation, "missing shipping info")
		}
	}

	if input.PaymentMethod != nil {
		if !input.PaymentMethod.IsValid() {
			return checkoutDetails{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", *input.PaymentMethod))
		}
		details.paymentMethod = *input.PaymentMethod
	} else if profile != nil && profile.PreferredPaymentMethod != nil {
		details.paymentMethod = *profile.PreferredPaymentMethod
	} else {
		return checkoutDetails{}, pkgerrors.New(pkgerrors.CodeValidation, "missing payment method")
	}

	if input.SaveAsDefaults && profile != nil {
		method := details.paymentMethod
		if err := s.users.UpdateCheckoutDefaults(ctx, profile.ID, details.address, &method); err != nil {
			return checkoutDetails{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save checkout defaults")
		}
	}

	return details, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// claimTransition moves the order to the target status only while the row
// still matches the snapshot just read. When zero rows update, the reloaded
// row decides the outcome: already at the target means another writer settled
// the transition, anything else is a state conflict.
func claimTransition(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, stampColumn string, at time.Time) (bool, error) {
	affected, err := repo.SetStatus(ctx, order.ID, order.Status, to, stampColumn, at)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if affected > 0 {
		return true, nil
	}
	current, err := findForUpdate(ctx, repo, order.ID)
	if err != nil {
		return false, err
	}
	if current.Status == to {
		return false, nil
	}
	return false, pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move order from %s to %s", current.Status, to))
}

func findForUpdate(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func freezeItems(lines []models.CartItem) []models.OrderItem {
	frozen := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		productID := line.ProductID
		inventoryID := line.InventoryID
		frozen = append(frozen, models.OrderItem{
			ID:          uuid.New(),
			ProductID:   &productID,
			InventoryID: &inventoryID,
			Name:        line.Name,
			SetCode:     line.SetCode,
			Language:    line.Language,
			Condition:   line.Condition,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
		})
	}
	return frozen
}

func ownerMatches(order *models.Order, owner types.OwnerRef) bool {
	switch {
	case owner.IsUser():
		return order.UserID != nil && *order.UserID == *owner.UserID
	case owner.IsSession():
		return order.SessionToken != nil && *order.SessionToken == *owner.SessionToken
	default:
		return false
	}
}

func actorFor(owner types.OwnerRef) *outbox.ActorRef {
	if !owner.IsUser() {
		return nil
	}
	return &outbox.ActorRef{UserID: *owner.UserID}
}
