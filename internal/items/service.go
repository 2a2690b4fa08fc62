// Package items owns textbook listings: creation, detail reads with the
// lazy reservation-expiry touch, and the browse query. Listings are never
// deleted; status changes are driven by the reservation and transaction
// services.
package items

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/reservation"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
)

// Service exposes listing operations.
type Service interface {
	Create(ctx context.Context, input CreateItemInput) (*models.Item, error)
	Get(ctx context.Context, itemID uuid.UUID) (*ItemDetail, error)
	List(ctx context.Context, input ListItemsInput) (*ItemListResult, error)
}

type service struct {
	repo        Repository
	reservation reservation.Service
	logg        *logger.Logger
	nowFn       func() time.Time
}

func NewService(repo Repository, res reservation.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("items repository is required")
	}
	if res == nil {
		return nil, errors.New("reservation service is required")
	}
	return &service{repo: repo, reservation: res, logg: logg, nowFn: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateItemInput) (*models.Item, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown item condition")
	}
	if input.OriginalPriceYen < 0 || input.SellingPriceYen < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices must not be negative")
	}

	item := &models.Item{
		SellerID:         input.SellerID,
		Title:            strings.TrimSpace(input.Title),
		Author:           input.Author,
		CourseName:       input.CourseName,
		Description:      input.Description,
		Condition:        input.Condition,
		OriginalPriceYen: input.OriginalPriceYen,
		SellingPriceYen:  input.SellingPriceYen,
		PhotoURL:         input.PhotoURL,
		Status:           enums.ItemStatusAvailable,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating listing")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "item_id", item.ID.String()), "listing created")
	}
	return item, nil
}

// Get loads the detail view. An expired reservation lock is released on the
// way in, so the detail a client sees never shows a stale countdown.
func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*ItemDetail, error) {
	now := s.nowFn()
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading item")
	}

	if s.reservation.IsExpired(item, now) {
		if rerr := s.reservation.Release(ctx, itemID); rerr == nil {
			item, err = s.repo.FindByID(ctx, itemID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading item")
			}
		}
	}

	detail := &ItemDetail{Item: *item}
	if item.Status == enums.ItemStatusReservationLocked && item.LockedUntil != nil {
		if remaining := item.LockedUntil.Sub(now); remaining > 0 {
			detail.LockRemainingSeconds = int(remaining / time.Second)
		}
	}
	return detail, nil
}

// List runs an opportunistic expiry sweep before the browse query so lapsed
// locks do not linger in results.
func (s *service) List(ctx context.Context, input ListItemsInput) (*ItemListResult, error) {
	if _, err := s.reservation.SweepExpired(ctx, s.nowFn()); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "expiry sweep during listing failed")
	}

	result, err := s.repo.List(ctx, input)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing items")
	}
	return result, nil
}
