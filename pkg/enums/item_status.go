package enums

import "fmt"

// ItemStatus tracks the lifecycle of a textbook listing.
type ItemStatus string

const (
	ItemStatusAvailable          ItemStatus = "available"
	ItemStatusReservationLocked  ItemStatus = "reservation_locked"
	ItemStatusTransactionPending ItemStatus = "transaction_pending"
	ItemStatusSold               ItemStatus = "sold"
)

var validItemStatuses = []ItemStatus{
	ItemStatusAvailable,
	ItemStatusReservationLocked,
	ItemStatusTransactionPending,
	ItemStatusSold,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status changes are possible.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusSold
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
