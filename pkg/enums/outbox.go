package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateCakeOrder  OutboxAggregateType = "cake_order"
	AggregateDeposit    OutboxAggregateType = "deposit"
	AggregateWithdrawal OutboxAggregateType = "withdrawal"
	AggregateComplaint  OutboxAggregateType = "complaint"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCakeOrder,
	AggregateDeposit,
	AggregateWithdrawal,
	AggregateComplaint,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderPaid           OutboxEventType = "order_paid"
	EventOrderStatusChanged  OutboxEventType = "order_status_changed"
	EventDepositCompleted    OutboxEventType = "deposit_completed"
	EventComplaintFiled      OutboxEventType = "complaint_filed"
	EventComplaintResolved   OutboxEventType = "complaint_resolved"
	EventWithdrawalRequested OutboxEventType = "withdrawal_requested"
	EventWithdrawalResolved  OutboxEventType = "withdrawal_resolved"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderStatusChanged,
	EventDepositCompleted,
	EventComplaintFiled,
	EventComplaintResolved,
	EventWithdrawalRequested,
	EventWithdrawalResolved,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
