package enums

import "fmt"

// TransactionType classifies a wallet ledger entry.
type TransactionType string

const (
	TransactionTypeOrderPayment TransactionType = "order_payment"
	TransactionTypeRefund       TransactionType = "refund"
	TransactionTypeAIGeneration TransactionType = "ai_generation"
	TransactionTypeDeposit      TransactionType = "deposit"
	TransactionTypeWithdrawal   TransactionType = "withdrawal"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeOrderPayment,
	TransactionTypeRefund,
	TransactionTypeAIGeneration,
	TransactionTypeDeposit,
	TransactionTypeWithdrawal,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

// TransactionStatus is monotonic: pending moves to completed or failed once.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusCompleted,
	TransactionStatusFailed,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TransactionStatusPending && (next == TransactionStatusCompleted || next == TransactionStatusFailed)
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
