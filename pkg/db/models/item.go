package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
)

// Item is a textbook listing. Rows are never deleted; the status column is
// the single point of mutual exclusion for the purchase flow.
type Item struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID         uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Title            string              `gorm:"column:title;type:text;not null"`
	Author           *string             `gorm:"column:author;type:text"`
	CourseName       *string             `gorm:"column:course_name;type:text"`
	Description      *string             `gorm:"column:description;type:text"`
	Condition        enums.ItemCondition `gorm:"column:condition;type:text;not null"`
	OriginalPriceYen int                 `gorm:"column:original_price_yen;not null"`
	SellingPriceYen  int                 `gorm:"column:selling_price_yen;not null"`
	PhotoURL         *string             `gorm:"column:photo_url;type:text"`
	Status           enums.ItemStatus    `gorm:"column:status;type:text;not null;default:'available';index"`
	LockedUntil      *time.Time          `gorm:"column:locked_until"`
	LockedBy         *uuid.UUID          `gorm:"column:locked_by;type:uuid"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
