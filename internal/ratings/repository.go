package ratings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/repo"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
)

// Repository persists insert-once ratings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rating *models.Rating) error
	FindByTransactionAndRater(ctx context.Context, txnID, raterID uuid.UUID) (*models.Rating, error)
	CountForTransaction(ctx context.Context, txnID uuid.UUID) (int64, error)
	ClaimRatingGate(ctx context.Context, txnID uuid.UUID, now time.Time) (int64, error)
	FindTransaction(ctx context.Context, txnID uuid.UUID) (*models.Transaction, error)
	AggregateForUser(ctx context.Context, userID uuid.UUID) (sum int64, count int64, err error)
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

func (r *repository) Create(ctx context.Context, rating *models.Rating) error {
	return r.base.DB(ctx).Create(rating).Error
}

func (r *repository) FindByTransactionAndRater(ctx context.Context, txnID, raterID uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	err := r.base.DB(ctx).
		Where("transaction_id = ?", txnID).
		Where("rater_id = ?", raterID).
		First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}

func (r *repository) CountForTransaction(ctx context.Context, txnID uuid.UUID) (int64, error) {
	var count int64
	err := r.base.DB(ctx).Model(&models.Rating{}).
		Where("transaction_id = ?", txnID).
		Count(&count).Error
	return count, err
}

// ClaimRatingGate writes the transaction row before the closure count runs,
// so concurrent submitters serialize on its row lock and re-verify the
// status with their own statement instead of a pre-transaction read.
func (r *repository) ClaimRatingGate(ctx context.Context, txnID uuid.UUID, now time.Time) (int64, error) {
	res := r.base.DB(ctx).Model(&models.Transaction{}).
		Where("id = ?", txnID).
		Where("status = ?", enums.TransactionStatusAwaitingRating).
		Update("updated_at", now)
	return res.RowsAffected, res.Error
}

func (r *repository) FindTransaction(ctx context.Context, txnID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.base.DB(ctx).First(&txn, "id = ?", txnID).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) AggregateForUser(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	type aggregate struct {
		Total int64
		Count int64
	}
	var agg aggregate
	err := r.base.DB(ctx).Model(&models.Rating{}).
		Select("COALESCE(SUM(score), 0) AS total, COUNT(*) AS count").
		Where("rated_id = ?", userID).
		Scan(&agg).Error
	return agg.Total, agg.Count, err
}
