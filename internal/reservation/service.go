// Package reservation implements the item lock that serializes buyers
// during the purchase window. A claim is a single compare-and-swap update;
// expiry is lazy and folded into the claim guard, with an opportunistic
// sweep on read paths and the relay loop.
package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/config"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/metrics"
)

const (
	ClaimResultGranted       = "granted"
	ClaimResultAlreadyLocked = "already_locked"
	ClaimResultNotAvailable  = "not_available"
	ClaimResultSelfPurchase  = "self_purchase"
)

// Service grants, refreshes and releases reservation locks.
type Service interface {
	Claim(ctx context.Context, itemID, buyerID uuid.UUID) (*models.Item, error)
	ClaimInTx(ctx context.Context, tx *gorm.DB, itemID, buyerID uuid.UUID) (*models.Item, error)
	Release(ctx context.Context, itemID uuid.UUID) error
	ReleaseOwned(ctx context.Context, itemID, callerID uuid.UUID) error
	IsExpired(item *models.Item, now time.Time) bool
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	repo    Repository
	cfg     config.ReservationConfig
	logg    *logger.Logger
	metrics *metrics.NegotiationMetrics
	nowFn   func() time.Time
}

func NewService(repo Repository, cfg config.ReservationConfig, logg *logger.Logger, m *metrics.NegotiationMetrics) (Service, error) {
	if repo == nil {
		return nil, errors.New("reservation repository is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("reservation ttl must be positive")
	}
	return &service{
		repo:    repo,
		cfg:     cfg,
		logg:    logg,
		metrics: m,
		nowFn:   time.Now,
	}, nil
}

// Claim grants the buyer a fixed-TTL lock on an available item. Exactly one
// of two racing buyers wins; the loser gets AlreadyLocked or NotAvailable.
func (s *service) Claim(ctx context.Context, itemID, buyerID uuid.UUID) (*models.Item, error) {
	return s.claim(ctx, s.repo, itemID, buyerID, false)
}

// ClaimInTx is the transactional variant used by purchase-request creation.
// It additionally accepts the buyer's own live lock, so a claim made from
// the detail view can be carried into the purchase request.
func (s *service) ClaimInTx(ctx context.Context, tx *gorm.DB, itemID, buyerID uuid.UUID) (*models.Item, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	return s.claim(ctx, s.repo.WithTx(tx), itemID, buyerID, true)
}

func (s *service) claim(ctx context.Context, r Repository, itemID, buyerID uuid.UUID, allowOwnLock bool) (*models.Item, error) {
	item, err := r.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading item")
	}
	if item.SellerID == buyerID {
		s.metrics.ObserveClaim(ClaimResultSelfPurchase)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "you cannot purchase your own listing")
	}

	now := s.nowFn()
	rows, err := r.ClaimLock(ctx, itemID, buyerID, now, now.Add(s.cfg.TTL), allowOwnLock)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claiming reservation")
	}
	if rows == 0 {
		// Lost the race or the item was never claimable. Re-read to tell
		// the caller which.
		current, rerr := r.FindItem(ctx, itemID)
		if rerr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, rerr, "re-reading item after failed claim")
		}
		if current.Status == enums.ItemStatusReservationLocked && !s.IsExpired(current, now) {
			s.metrics.ObserveClaim(ClaimResultAlreadyLocked)
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "item is reserved by another buyer")
		}
		s.metrics.ObserveClaim(ClaimResultNotAvailable)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "item is not available")
	}

	claimed, err := r.FindItem(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading claimed item")
	}
	s.metrics.ObserveClaim(ClaimResultGranted)
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"item_id":      itemID.String(),
			"buyer_id":     buyerID.String(),
			"locked_until": claimed.LockedUntil,
		}), "reservation granted")
	}
	return claimed, nil
}

// Release returns a locked item to available. It is idempotent: an item that
// is already available is a no-op. It refuses to release once a purchase
// request exists for the item.
func (s *service) Release(ctx context.Context, itemID uuid.UUID) error {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading item")
	}

	switch item.Status {
	case enums.ItemStatusAvailable:
		return nil
	case enums.ItemStatusReservationLocked:
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "item has progressed past the reservation")
	}

	open, err := s.repo.HasOpenTransaction(ctx, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking for open transactions")
	}
	if open {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "a purchase request exists for this item")
	}

	if _, err := s.repo.ReleaseLock(ctx, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "releasing reservation")
	}
	return nil
}

// ReleaseOwned releases the caller's own lock. Anyone else's live lock is
// off limits; a lapsed lock may be released by anyone.
func (s *service) ReleaseOwned(ctx context.Context, itemID, callerID uuid.UUID) error {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading item")
	}

	if item.Status == enums.ItemStatusReservationLocked &&
		!s.IsExpired(item, s.nowFn()) &&
		(item.LockedBy == nil || *item.LockedBy != callerID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another buyer")
	}
	return s.Release(ctx, itemID)
}

// IsExpired reports whether the item's lock has lapsed at the given instant.
func (s *service) IsExpired(item *models.Item, now time.Time) bool {
	if item == nil || item.Status != enums.ItemStatusReservationLocked {
		return false
	}
	return item.LockedUntil != nil && !item.LockedUntil.After(now)
}

// SweepExpired releases every lapsed lock it can find, up to the configured
// batch size, and returns how many it released. Per-item failures are
// collected rather than aborting the sweep.
func (s *service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	limit := s.cfg.SweepBatchSize
	if limit <= 0 {
		limit = 100
	}
	items, err := s.repo.ListExpiredLocks(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing expired reservations")
	}

	released := 0
	var errs error
	for _, item := range items {
		if err := s.Release(ctx, item.ID); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				continue
			}
			errs = multierr.Append(errs, err)
			continue
		}
		released++
		s.metrics.ObserveExpiry()
	}
	if released > 0 && s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "released", released), "expired reservations swept")
	}
	return released, errs
}
