package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base holds the gorm handle every marketplace repository is built on.
// Repositories rebuild themselves around a transaction handle via their
// WithTx methods, so Base stays a plain value.
type Base struct {
	db *gorm.DB
}

// NewBase wraps a gorm connection or transaction.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx; a nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
