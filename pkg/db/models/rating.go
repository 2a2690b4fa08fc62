package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rating is an insert-once review of a counterparty after the meetup.
// The (transaction_id, rater_id) pair is unique.
type Rating struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:ux_ratings_transaction_rater"`
	RaterID       uuid.UUID `gorm:"column:rater_id;type:uuid;not null;uniqueIndex:ux_ratings_transaction_rater"`
	RatedID       uuid.UUID `gorm:"column:rated_id;type:uuid;not null;index"`
	Score         int       `gorm:"column:score;not null"`
	Comment       *string   `gorm:"column:comment;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
