package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/logger"
	"github.com/cardhaus/cardhaus-backend/pkg/outbox"
	"github.com/cardhaus/cardhaus-backend/pkg/outbox/idempotency"
	"github.com/cardhaus/cardhaus-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches order domain events and writes in-app notifications for
// the buyer. Guest orders carry no user id and produce nothing.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	builder, handled := notificationBuilders[eventType]
	if !handled {
		c.logg.Info(logCtx, "skipping non-order event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := builder(envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if notification == nil {
		c.logg.Info(logCtx, "guest order, no inbox to notify")
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"user_id": notification.UserID.String(),
	}), "buyer notified of order event")
	return processResult{ack: true}
}

type notificationBuilder func(data json.RawMessage) (*models.Notification, error)

var notificationBuilders = map[enums.OutboxEventType]notificationBuilder{
	enums.EventOrderCreated:   buildOrderCreated,
	enums.EventOrderPaid:      buildOrderPaid,
	enums.EventOrderDelivered: buildOrderDelivered,
	enums.EventOrderCancelled: buildOrderCancelled,
}

func buildOrderCreated(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.UserID == nil {
		return nil, nil
	}
	return &models.Notification{
		UserID:  *payload.UserID,
		OrderID: &payload.OrderID,
		Kind:    enums.NotificationKindOrderCreated,
		Title:   fmt.Sprintf("Order #%d placed", payload.OrderNumber),
		Message: fmt.Sprintf("We received your order for %d item(s), %s %s total.", payload.ItemCount, payload.GrandTotal, payload.Currency),
	}, nil
}

func buildOrderPaid(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderPaidEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.UserID == nil {
		return nil, nil
	}
	return &models.Notification{
		UserID:  *payload.UserID,
		OrderID: &payload.OrderID,
		Kind:    enums.NotificationKindOrderPaid,
		Title:   "Payment received",
		Message: fmt.Sprintf("Your payment of %s was confirmed. We are preparing your cards.", payload.GrandTotal),
	}, nil
}

func buildOrderDelivered(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderDeliveredEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.UserID == nil {
		return nil, nil
	}
	message := "Your order has been delivered. Enjoy your cards!"
	if payload.Status == enums.OrderStatusPickedUp {
		message = "Your order was picked up in store. Enjoy your cards!"
	}
	return &models.Notification{
		UserID:  *payload.UserID,
		OrderID: &payload.OrderID,
		Kind:    enums.NotificationKindOrderDelivered,
		Title:   "Order fulfilled",
		Message: message,
	}, nil
}

func buildOrderCancelled(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderCancelledEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.UserID == nil {
		return nil, nil
	}
	message := "Your order was cancelled and the stock was returned."
	if payload.Reason != "" {
		message = fmt.Sprintf("Your order was cancelled: %s", payload.Reason)
	}
	return &models.Notification{
		UserID:  *payload.UserID,
		OrderID: &payload.OrderID,
		Kind:    enums.NotificationKindOrderCancelled,
		Title:   "Order cancelled",
		Message: message,
	}, nil
}
