package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cardhaus/cardhaus-backend/internal/cart"
	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// racingRepo applies a competing write between the status read and the
// guarded update, exactly as a concurrent request committing first would.
type racingRepo struct {
	Repository
	tx     *gorm.DB
	armed  *bool
	fired  *bool
	winner func(tx *gorm.DB)
}

func (r *racingRepo) WithTx(tx *gorm.DB) Repository {
	return &racingRepo{
		Repository: r.Repository.WithTx(tx),
		tx:         tx,
		armed:      r.armed,
		fired:      r.fired,
		winner:     r.winner,
	}
}

func (r *racingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := r.Repository.FindByID(ctx, id)
	if err == nil && r.tx != nil && *r.armed && !*r.fired {
		*r.fired = true
		r.winner(r.tx)
	}
	return order, err
}

type raceEnv struct {
	svc     Service
	db      *gorm.DB
	emitter *stubEmitter
	armed   bool
	fired   bool
}

func newRaceEnv(t *testing.T, winner func(tx *gorm.DB)) *raceEnv {
	t.Helper()
	db := newTestDB(t)
	env := &raceEnv{db: db, emitter: &stubEmitter{}}
	repo := &racingRepo{
		Repository: NewRepository(db),
		armed:      &env.armed,
		fired:      &env.fired,
		winner:     winner,
	}
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Carts:  cart.NewRepository(db),
		Users:  &stubProfiles{users: map[uuid.UUID]*models.User{}},
		Outbox: env.emitter,
		Tx:     gormTxRunner{db: db},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	env.svc = svc
	return env
}

func TestCancelLosingARaceNeverRestocksTwice(t *testing.T) {
	t.Parallel()

	var orderID, variantID uuid.UUID
	restockQty := 0
	env := newRaceEnv(t, func(tx *gorm.DB) {
		// The other cancel got there first: it flipped the status and
		// already returned the reservation to stock.
		if err := tx.Exec(
			`UPDATE orders SET status = ?, cancelled_at = ? WHERE id = ?`,
			enums.OrderStatusCancelled, time.Now().UTC(), orderID,
		).Error; err != nil {
			t.Errorf("competing cancel: %v", err)
		}
		if err := tx.Exec(
			`UPDATE inventory_items SET stock_qty = stock_qty + ? WHERE id = ?`,
			restockQty, variantID,
		).Error; err != nil {
			t.Errorf("competing restock: %v", err)
		}
	})

	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	variant := seedVariant(t, env.db, "4.00", 5)
	seedCart(t, env.db, owner, variant, 3)
	order, err := env.svc.Submit(ctx, owner, deliveryInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	orderID = order.ID
	variantID = variant.ID
	restockQty = 3

	env.armed = true
	_, err = env.svc.Cancel(ctx, orderID, "changed my mind")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for the losing cancel, got %v", err)
	}
	if !env.fired {
		t.Fatal("expected the competing write to run")
	}

	// The losing attempt rolled back without restocking or emitting.
	if env.emitter.countByType(enums.EventOrderCancelled) != 0 {
		t.Fatal("expected no cancelled event from the losing cancel")
	}
	if got := stockOf(t, env.db, variantID); got != 2 {
		t.Fatalf("expected stock still reserved at 2, got %d", got)
	}

	// A clean cancel afterwards restocks exactly once.
	env.armed = false
	cancelled, err := env.svc.Cancel(ctx, orderID, "changed my mind")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %s", cancelled.Status)
	}
	if got := stockOf(t, env.db, variantID); got != 5 {
		t.Fatalf("expected stock restored to 5 exactly once, got %d", got)
	}
	if env.emitter.countByType(enums.EventOrderCancelled) != 1 {
		t.Fatal("expected exactly one cancelled event")
	}
}

func TestMarkPaidLosingARaceEmitsNoDuplicate(t *testing.T) {
	t.Parallel()

	var orderID uuid.UUID
	env := newRaceEnv(t, func(tx *gorm.DB) {
		// A webhook capture committed between our read and our update.
		if err := tx.Exec(
			`UPDATE orders SET status = ?, paid_at = ? WHERE id = ?`,
			enums.OrderStatusPaid, time.Now().UTC(), orderID,
		).Error; err != nil {
			t.Errorf("competing capture: %v", err)
		}
	})

	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	variant := seedVariant(t, env.db, "4.00", 5)
	seedCart(t, env.db, owner, variant, 1)
	order, err := env.svc.Submit(ctx, owner, deliveryInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	orderID = order.ID

	env.armed = true
	paid, err := env.svc.MarkPaid(ctx, orderID, ViaManual)
	if err != nil {
		t.Fatalf("expected losing mark-paid to settle as a no-op, got %v", err)
	}
	if paid.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", paid.Status)
	}
	if env.emitter.countByType(enums.EventOrderPaid) != 0 {
		t.Fatal("expected no paid event from the losing writer")
	}
}

func TestSetStatusGuardsOnExpectedStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.SessionOwner("sess-" + uuid.NewString())
	order := submitOrder(t, env, owner, deliveryInput(), 1, 5)
	repo := NewRepository(env.db)

	affected, err := repo.SetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaid, "paid_at", time.Now().UTC())
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row updated, got %d", affected)
	}

	// A second writer still holding the pending snapshot updates nothing.
	affected, err = repo.SetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, "cancelled_at", time.Now().UTC())
	if err != nil {
		t.Fatalf("stale set status: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected stale update rejected, got %d rows", affected)
	}

	current, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if current.Status != enums.OrderStatusPaid {
		t.Fatalf("expected order still paid, got %s", current.Status)
	}
}
