package enums

import "fmt"

// OrderStatus tracks a cake order through fulfilment.
type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "pending"
	OrderStatusOrdered     OrderStatus = "ordered"
	OrderStatusPrepared    OrderStatus = "prepared"
	OrderStatusShipped     OrderStatus = "shipped"
	OrderStatusCompleted   OrderStatus = "completed"
	OrderStatusComplaining OrderStatus = "complaining"
	OrderStatusCancelled   OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusOrdered,
	OrderStatusPrepared,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusComplaining,
	OrderStatusCancelled,
}

// orderTransitions lists the forward edges; cancellation from any
// non-terminal state is handled in CanTransitionTo.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:     {OrderStatusOrdered},
	OrderStatusOrdered:     {OrderStatusPrepared, OrderStatusComplaining},
	OrderStatusPrepared:    {OrderStatusShipped, OrderStatusComplaining},
	OrderStatusShipped:     {OrderStatusCompleted, OrderStatusComplaining},
	OrderStatusComplaining: {OrderStatusCompleted},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is a legal successor of s.
// Moves into complaining from ordered or prepared still need the delivery
// time check performed by the complaint flow.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
