package transactions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/repo"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/pagination"
)

// Repository persists the purchase state machine. Every transition is a
// guarded single-row UPDATE keyed on the current status; zero rows affected
// means the caller lost a race or targeted an illegal edge.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, updates map[string]any) (int64, error)
	CloseHandoff(ctx context.Context, id uuid.UUID) (int64, error)
	ListForUser(ctx context.Context, input ListTransactionsInput) (*TransactionListResult, error)
	PromoteItemToPending(ctx context.Context, itemID, buyerID uuid.UUID) (int64, error)
	MarkItemSold(ctx context.Context, itemID uuid.UUID) (int64, error)
	ReturnItemToAvailable(ctx context.Context, itemID uuid.UUID) (int64, error)
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

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.base.DB(ctx).Create(txn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.base.DB(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, updates map[string]any) (int64, error) {
	res := r.base.DB(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Where("status IN ?", from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// CloseHandoff moves a confirmed transaction to awaiting_rating. The guard
// requires both acknowledgment stamps, so the row itself decides whether the
// handoff is done regardless of what the caller read earlier.
func (r *repository) CloseHandoff(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.base.DB(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Where("status = ?", enums.TransactionStatusConfirmed).
		Where("buyer_completed_at IS NOT NULL").
		Where("seller_completed_at IS NOT NULL").
		Update("status", enums.TransactionStatusAwaitingRating)
	return res.RowsAffected, res.Error
}

func (r *repository) ListForUser(ctx context.Context, input ListTransactionsInput) (*TransactionListResult, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(input.Pagination.Limit)

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	qb := r.base.DB(ctx).Model(&models.Transaction{}).
		Where("buyer_id = ? OR seller_id = ?", input.UserID, input.UserID)
	if input.Status != nil {
		qb = qb.Where("status = ?", *input.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Transaction
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &TransactionListResult{Transactions: rows, NextCursor: nextCursor}, nil
}

// PromoteItemToPending moves a freshly claimed item into transaction_pending,
// clearing the lock fields. The guard insists the claiming buyer still holds
// the lock.
func (r *repository) PromoteItemToPending(ctx context.Context, itemID, buyerID uuid.UUID) (int64, error) {
	res := r.base.DB(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		Where("status = ?", enums.ItemStatusReservationLocked).
		Where("locked_by = ?", buyerID).
		Updates(map[string]any{
			"status":       enums.ItemStatusTransactionPending,
			"locked_by":    nil,
			"locked_until": nil,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkItemSold(ctx context.Context, itemID uuid.UUID) (int64, error) {
	res := r.base.DB(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		Where("status = ?", enums.ItemStatusTransactionPending).
		Update("status", enums.ItemStatusSold)
	return res.RowsAffected, res.Error
}

func (r *repository) ReturnItemToAvailable(ctx context.Context, itemID uuid.UUID) (int64, error) {
	res := r.base.DB(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		Where("status = ?", enums.ItemStatusTransactionPending).
		Updates(map[string]any{
			"status":       enums.ItemStatusAvailable,
			"locked_by":    nil,
			"locked_until": nil,
		})
	return res.RowsAffected, res.Error
}
