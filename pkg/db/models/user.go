package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User shadows the external identity provider's account. The service never
// authenticates users itself; rows exist so listings and ratings can join
// against a display profile.
type User struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	DisplayName string     `gorm:"column:display_name;type:text;not null"`
	Campus      *string    `gorm:"column:campus;type:text"`
	AvatarURL   *string    `gorm:"column:avatar_url;type:text"`
	Bio         *string    `gorm:"column:bio;type:text"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
