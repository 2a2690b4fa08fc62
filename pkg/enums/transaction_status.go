package enums

import "fmt"

// TransactionStatus tracks the negotiation state machine for a purchase.
type TransactionStatus string

const (
	TransactionStatusPending        TransactionStatus = "pending"
	TransactionStatusConfirmed      TransactionStatus = "confirmed"
	TransactionStatusAwaitingRating TransactionStatus = "awaiting_rating"
	TransactionStatusCompleted      TransactionStatus = "completed"
	TransactionStatusCancelled      TransactionStatus = "cancelled"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusConfirmed,
	TransactionStatusAwaitingRating,
	TransactionStatusCompleted,
	TransactionStatusCancelled,
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

// IsTerminal reports whether the transaction can no longer move.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusCancelled
}

// Cancellable reports whether a cancel edge exists from this state.
func (s TransactionStatus) Cancellable() bool {
	return s == TransactionStatusPending || s == TransactionStatusConfirmed
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
