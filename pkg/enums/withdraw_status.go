package enums

import "fmt"

// WithdrawStatus tracks a payout request.
type WithdrawStatus string

const (
	WithdrawStatusPending   WithdrawStatus = "pending"
	WithdrawStatusCompleted WithdrawStatus = "completed"
	WithdrawStatusFailed    WithdrawStatus = "failed"
	WithdrawStatusCancelled WithdrawStatus = "cancelled"
)

var validWithdrawStatuses = []WithdrawStatus{
	WithdrawStatusPending,
	WithdrawStatusCompleted,
	WithdrawStatusFailed,
	WithdrawStatusCancelled,
}

// String implements fmt.Stringer.
func (s WithdrawStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known WithdrawStatus.
func (s WithdrawStatus) IsValid() bool {
	for _, candidate := range validWithdrawStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseWithdrawStatus converts raw input into a WithdrawStatus.
func ParseWithdrawStatus(value string) (WithdrawStatus, error) {
	for _, candidate := range validWithdrawStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid withdraw status %q", value)
}
