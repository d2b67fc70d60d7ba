package enums

import "fmt"

// DepositStatus tracks a gateway top-up request.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusCompleted DepositStatus = "completed"
	DepositStatusCancelled DepositStatus = "cancelled"
)

var validDepositStatuses = []DepositStatus{
	DepositStatusPending,
	DepositStatusCompleted,
	DepositStatusCancelled,
}

// String implements fmt.Stringer.
func (s DepositStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DepositStatus.
func (s DepositStatus) IsValid() bool {
	for _, candidate := range validDepositStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDepositStatus converts raw input into a DepositStatus.
func ParseDepositStatus(value string) (DepositStatus, error) {
	for _, candidate := range validDepositStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deposit status %q", value)
}
