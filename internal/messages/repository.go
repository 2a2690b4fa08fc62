package messages

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/repo"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/pagination"
)

// Repository persists the append-only chat log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, message *models.Message) error
	ListForItem(ctx context.Context, itemID uuid.UUID, params pagination.Params) (*MessageListResult, error)
	MarkRead(ctx context.Context, itemID, receiverID uuid.UUID) (int64, error)
}

type repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, message *models.Message) error {
	return r.base.DB(ctx).Create(message).Error
}

func (r *repository) ListForItem(ctx context.Context, itemID uuid.UUID, params pagination.Params) (*MessageListResult, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	qb := r.base.DB(ctx).Model(&models.Message{}).Where("item_id = ?", itemID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Message
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &MessageListResult{Messages: rows, NextCursor: nextCursor}, nil
}

func (r *repository) MarkRead(ctx context.Context, itemID, receiverID uuid.UUID) (int64, error) {
	res := r.base.DB(ctx).Model(&models.Message{}).
		Where("item_id = ?", itemID).
		Where("receiver_id = ?", receiverID).
		Where("is_read = ?", false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
