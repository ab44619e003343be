package orders

import (
	"fmt"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
)

// transitions is the full lifecycle table. Anything not listed here is an
// invalid move and surfaces as a state conflict, never a silent no-op.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusPaid,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPaid: {
		enums.OrderStatusDelivered,
		enums.OrderStatusPickedUp,
	},
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// fulfilledStatus maps the shipping method to its terminal success state.
func fulfilledStatus(method enums.ShippingMethod) enums.OrderStatus {
	if method == enums.ShippingMethodPickup {
		return enums.OrderStatusPickedUp
	}
	return enums.OrderStatusDelivered
}

// validateTransition enforces the lifecycle table plus the cash-on-pickup
// exception: a buyer paying at the counter goes straight from pending to the
// fulfilled state without an intermediate paid step.
func validateTransition(order *models.Order, to enums.OrderStatus) error {
	if CanTransition(order.Status, to) {
		return nil
	}
	if order.Status == enums.OrderStatusPending &&
		to == fulfilledStatus(order.ShippingMethod) &&
		order.PaymentMethod == enums.PaymentMethodCashOnPickup {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move order from %s to %s", order.Status, to))
}
