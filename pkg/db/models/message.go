package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is an append-only chat row tied to an item and, once a purchase
// request exists, to its transaction.
type Message struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID  `gorm:"column:item_id;type:uuid;not null;index"`
	TransactionID *uuid.UUID `gorm:"column:transaction_id;type:uuid;index"`
	SenderID      uuid.UUID  `gorm:"column:sender_id;type:uuid;not null"`
	ReceiverID    uuid.UUID  `gorm:"column:receiver_id;type:uuid;not null;index"`
	Body          string     `gorm:"column:body;type:text;not null"`
	IsRead        bool       `gorm:"column:is_read;not null;default:false"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
