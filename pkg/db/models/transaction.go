package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/types"
)

// Transaction models one negotiated purchase of an item. At most one
// non-cancelled row may reference an item at a time; every status change is
// a guarded single-row update performed by the transactions service.
type Transaction struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ItemID             uuid.UUID               `gorm:"column:item_id;type:uuid;not null;index"`
	BuyerID            uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID           uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	PaymentMethod      enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	CandidateSlots     types.SlotSet           `gorm:"column:candidate_slots;type:jsonb;serializer:json;not null"`
	CandidateLocations types.StringSet         `gorm:"column:candidate_locations;type:jsonb;serializer:json;not null"`
	FinalSlot          *types.Slot             `gorm:"column:final_slot;type:jsonb;serializer:json"`
	FinalLocation      *string                 `gorm:"column:final_location;type:text"`
	Status             enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	CancelReason       *string                 `gorm:"column:cancel_reason;type:text"`
	BuyerCompletedAt   *time.Time              `gorm:"column:buyer_completed_at"`
	SellerCompletedAt  *time.Time              `gorm:"column:seller_completed_at"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Participant reports whether the given user is the buyer or seller.
func (t *Transaction) Participant(userID uuid.UUID) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

// Counterparty returns the other party of the transaction.
func (t *Transaction) Counterparty(userID uuid.UUID) uuid.UUID {
	if t.BuyerID == userID {
		return t.SellerID
	}
	return t.BuyerID
}
