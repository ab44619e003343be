package enums

import "fmt"

// NotificationKind labels buyer-facing notifications produced by order events.
type NotificationKind string

const (
	NotificationKindOrderCreated   NotificationKind = "order_created"
	NotificationKindOrderPaid      NotificationKind = "order_paid"
	NotificationKindOrderDelivered NotificationKind = "order_delivered"
	NotificationKindOrderCancelled NotificationKind = "order_cancelled"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindOrderCreated,
	NotificationKindOrderPaid,
	NotificationKindOrderDelivered,
	NotificationKindOrderCancelled,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
