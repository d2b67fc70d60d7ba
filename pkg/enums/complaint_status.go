package enums

import "fmt"

// ComplaintStatus tracks staff review of a customer complaint.
type ComplaintStatus string

const (
	ComplaintStatusPending  ComplaintStatus = "pending"
	ComplaintStatusApproved ComplaintStatus = "approved"
	ComplaintStatusRejected ComplaintStatus = "rejected"
)

var validComplaintStatuses = []ComplaintStatus{
	ComplaintStatusPending,
	ComplaintStatusApproved,
	ComplaintStatusRejected,
}

// String implements fmt.Stringer.
func (s ComplaintStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ComplaintStatus.
func (s ComplaintStatus) IsValid() bool {
	for _, candidate := range validComplaintStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseComplaintStatus converts raw input into a ComplaintStatus.
func ParseComplaintStatus(value string) (ComplaintStatus, error) {
	for _, candidate := range validComplaintStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid complaint status %q", value)
}
