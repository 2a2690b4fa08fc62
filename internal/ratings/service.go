// Package ratings is the post-meetup closure gate: each party rates the
// other exactly once, and the second rating completes the transaction.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/metrics"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/outbox"
)

const averageCacheTTL = 5 * time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// finalizer closes the transaction once both ratings are in.
type finalizer interface {
	FinalizeRating(ctx context.Context, tx *gorm.DB, txnID uuid.UUID) error
}

// averageCache is the slice of the redis client the ratings path needs.
type averageCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	RatingAverageKey(userID string) string
}

// SubmitRatingInput carries one party's review of the other.
type SubmitRatingInput struct {
	TransactionID uuid.UUID
	RaterID       uuid.UUID
	Score         int
	Comment       *string
}

// Service exposes rating submission and the cached average.
type Service interface {
	Submit(ctx context.Context, input SubmitRatingInput) (*models.Rating, error)
	AverageFor(ctx context.Context, userID uuid.UUID) (float64, int64, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	finalizer finalizer
	outbox    outboxPublisher
	cache     averageCache
	logg      *logger.Logger
	metrics   *metrics.NegotiationMetrics
}

func NewService(
	tx txRunner,
	repo Repository,
	fin finalizer,
	ob outboxPublisher,
	cache averageCache,
	logg *logger.Logger,
	m *metrics.NegotiationMetrics,
) (Service, error) {
	if tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if repo == nil {
		return nil, errors.New("ratings repository is required")
	}
	if fin == nil {
		return nil, errors.New("transaction finalizer is required")
	}
	if ob == nil {
		return nil, errors.New("outbox publisher is required")
	}
	return &service{tx: tx, repo: repo, finalizer: fin, outbox: ob, cache: cache, logg: logg, metrics: m}, nil
}

// Submit records the caller's rating. Preconditions: the transaction is
// awaiting ratings and the caller is one of its two parties. Resubmitting an
// identical rating is a no-op; a different one is rejected.
func (s *service) Submit(ctx context.Context, input SubmitRatingInput) (*models.Rating, error) {
	if input.Score < 1 || input.Score > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "score must be between 1 and 5")
	}

	txn, err := s.repo.FindTransaction(ctx, input.TransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading transaction")
	}
	if !txn.Participant(input.RaterID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not part of this transaction")
	}
	if txn.Status != enums.TransactionStatusAwaitingRating {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not awaiting ratings")
	}

	existing, err := s.repo.FindByTransactionAndRater(ctx, input.TransactionID, input.RaterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking for a prior rating")
	}
	if existing != nil {
		if existing.Score == input.Score && equalComment(existing.Comment, input.Comment) {
			// A row holding both ratings but still awaiting means an
			// earlier closure attempt was lost; retry it before no-opping.
			if ferr := s.finalizeIfComplete(ctx, input.TransactionID); ferr != nil {
				return nil, ferr
			}
			return existing, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "you have already rated this transaction")
	}

	ratedID := txn.Counterparty(input.RaterID)
	rating := &models.Rating{
		TransactionID: input.TransactionID,
		RaterID:       input.RaterID,
		RatedID:       ratedID,
		Score:         input.Score,
		Comment:       input.Comment,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		// Serialize on the transaction row first: two counterparties
		// submitting at once must not both count only their own insert.
		rows, gerr := txRepo.ClaimRatingGate(ctx, input.TransactionID, time.Now())
		if gerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, gerr, "claiming rating gate")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not awaiting ratings")
		}

		if cerr := txRepo.Create(ctx, rating); cerr != nil {
			if db.IsUniqueViolation(cerr, "ux_ratings_transaction_rater") {
				return pkgerrors.New(pkgerrors.CodeConflict, "you have already rated this transaction")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, cerr, "storing rating")
		}

		count, cerr := txRepo.CountForTransaction(ctx, input.TransactionID)
		if cerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, cerr, "counting ratings")
		}
		if count >= 2 {
			if ferr := s.finalizer.FinalizeRating(ctx, tx, input.TransactionID); ferr != nil {
				return ferr
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRatingReceived,
			AggregateType: enums.AggregateRating,
			AggregateID:   rating.ID,
			Actor:         &outbox.ActorRef{UserID: input.RaterID},
			Data: map[string]any{
				"transaction_id": input.TransactionID,
				"rated_id":       ratedID,
				"score":          input.Score,
			},
		}
		if eerr := s.outbox.Emit(ctx, tx, event); eerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, eerr, "queueing rating event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRating()
	s.invalidateAverage(ctx, ratedID)
	return rating, nil
}

// AverageFor returns the all-time mean score for the user, 0 when the user
// has no ratings yet.
func (s *service) AverageFor(ctx context.Context, userID uuid.UUID) (float64, int64, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.cache.RatingAverageKey(userID.String())); err == nil {
			if avg, count, ok := parseAverage(cached); ok {
				return avg, count, nil
			}
		}
	}

	sum, count, err := s.repo.AggregateForUser(ctx, userID)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating ratings")
	}
	avg := 0.0
	if count > 0 {
		avg = float64(sum) / float64(count)
	}

	if s.cache != nil {
		value := fmt.Sprintf("%s|%d", strconv.FormatFloat(avg, 'f', -1, 64), count)
		if err := s.cache.Set(ctx, s.cache.RatingAverageKey(userID.String()), value, averageCacheTTL); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "caching rating average failed")
		}
	}
	return avg, count, nil
}

// finalizeIfComplete closes a transaction that already holds both ratings
// but is still awaiting. The gate claim re-verifies the status inside the
// transaction, so a concurrent closure simply wins and this becomes a no-op.
func (s *service) finalizeIfComplete(ctx context.Context, txnID uuid.UUID) error {
	count, err := s.repo.CountForTransaction(ctx, txnID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting ratings")
	}
	if count < 2 {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		rows, gerr := txRepo.ClaimRatingGate(ctx, txnID, time.Now())
		if gerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, gerr, "claiming rating gate")
		}
		if rows == 0 {
			return nil
		}
		return s.finalizer.FinalizeRating(ctx, tx, txnID)
	})
}

func (s *service) invalidateAverage(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.RatingAverageKey(userID.String())); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "invalidating rating average failed")
	}
}

func parseAverage(value string) (float64, int64, bool) {
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	avg, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	count, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return avg, count, true
}

func equalComment(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
