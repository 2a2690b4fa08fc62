package transactions

import (
	"github.com/google/uuid"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/pagination"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/types"
)

// CreateTransactionInput is a buyer's purchase request: the item plus the
// candidate meetup offer.
type CreateTransactionInput struct {
	ItemID        uuid.UUID
	BuyerID       uuid.UUID
	PaymentMethod enums.PaymentMethod
	Slots         types.SlotSet
	Locations     types.StringSet
}

// ConfirmInput is the seller's closed-world selection.
type ConfirmInput struct {
	TransactionID uuid.UUID
	CallerID      uuid.UUID
	FinalSlot     types.Slot
	FinalLocation string
}

// ListTransactionsInput pages through the transactions a user participates in.
type ListTransactionsInput struct {
	UserID     uuid.UUID
	Status     *enums.TransactionStatus
	Pagination pagination.Params
}

// TransactionListResult is one page plus the cursor for the next page.
type TransactionListResult struct {
	Transactions []models.Transaction `json:"transactions"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}
