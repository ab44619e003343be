package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/logger"
)

const orderExpirationDays = 10

const expiredOrderReason = "payment window elapsed"

// OrderTTLJobParams configure the stale order expiration job.
type OrderTTLJobParams struct {
	Logger         *logger.Logger
	PendingReader  pendingOrderReader
	Canceller      orderCanceller
	ExpirationDays int
}

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
}

// NewOrderTTLJob builds the cron job that cancels orders left unpaid past
// the expiration window. Cancellation restores the reserved stock and emits
// the cancelled event through the order service.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Canceller == nil {
		return nil, fmt.Errorf("order canceller required")
	}
	expiration := params.ExpirationDays
	if expiration <= 0 {
		expiration = orderExpirationDays
	}
	return &orderTTLJob{
		logg:       params.Logger,
		pending:    params.PendingReader,
		canceller:  params.Canceller,
		expiration: expiration,
		now:        time.Now,
	}, nil
}

type orderTTLJob struct {
	logg       *logger.Logger
	pending    pendingOrderReader
	canceller  orderCanceller
	expiration int
	now        func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.expiration) * 24 * time.Hour)
	stale, err := j.pending.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find pending orders: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	var errs error
	cancelled := 0
	for i := range stale {
		order := &stale[i]
		if _, err := j.canceller.Cancel(ctx, order.ID, expiredOrderReason); err != nil {
			orderCtx := j.logg.WithField(ctx, "order_id", order.ID.String())
			j.logg.Error(orderCtx, "failed to expire pending order", err)
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"expiration_days": j.expiration,
		"stale_orders":    len(stale),
		"cancelled":       cancelled,
	})
	j.logg.Info(logCtx, "stale order expiration complete")
	return errs
}
