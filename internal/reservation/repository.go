package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/repo"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
)

// Repository owns the conditional item-lock updates. Every mutation is a
// single guarded UPDATE so two racing buyers resolve to exactly one winner.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	ClaimLock(ctx context.Context, itemID, buyerID uuid.UUID, now time.Time, until time.Time, allowOwnLock bool) (int64, error)
	ReleaseLock(ctx context.Context, itemID uuid.UUID) (int64, error)
	HasOpenTransaction(ctx context.Context, itemID uuid.UUID) (bool, error)
	ListExpiredLocks(ctx context.Context, now time.Time, limit int) ([]models.Item, error)
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

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.base.DB(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ClaimLock performs the compare-and-swap that grants a reservation. The
// guard accepts an available item, an expired lock (takeover folds the
// expiry release into the claim), and optionally the buyer's own live lock.
func (r *repository) ClaimLock(ctx context.Context, itemID, buyerID uuid.UUID, now time.Time, until time.Time, allowOwnLock bool) (int64, error) {
	guard := r.base.DB(ctx).
		Where("status = ?", enums.ItemStatusAvailable).
		Or("status = ? AND locked_until <= ?", enums.ItemStatusReservationLocked, now)
	if allowOwnLock {
		guard = guard.Or("status = ? AND locked_by = ?", enums.ItemStatusReservationLocked, buyerID)
	}

	res := r.base.DB(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		Where(guard).
		Updates(map[string]any{
			"status":       enums.ItemStatusReservationLocked,
			"locked_by":    buyerID,
			"locked_until": until,
		})
	return res.RowsAffected, res.Error
}

// ReleaseLock clears an existing reservation lock. The status guard makes it
// a no-op against anything that already progressed past the lock.
func (r *repository) ReleaseLock(ctx context.Context, itemID uuid.UUID) (int64, error) {
	res := r.base.DB(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		Where("status = ?", enums.ItemStatusReservationLocked).
		Updates(map[string]any{
			"status":       enums.ItemStatusAvailable,
			"locked_by":    nil,
			"locked_until": nil,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) HasOpenTransaction(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).Model(&models.Transaction{}).
		Where("item_id = ?", itemID).
		Where("status <> ?", enums.TransactionStatusCancelled).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListExpiredLocks(ctx context.Context, now time.Time, limit int) ([]models.Item, error) {
	var items []models.Item
	err := r.base.DB(ctx).
		Where("status = ?", enums.ItemStatusReservationLocked).
		Where("locked_until <= ?", now).
		Order("locked_until ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
