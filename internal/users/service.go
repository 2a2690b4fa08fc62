// Package users keeps a shadow profile per account. Authentication happens
// at the identity provider; profiles are upserted on first sight so listings
// and ratings can join against a display name.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/ratings"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
)

// Profile is the public view of a user with their rating aggregate.
type Profile struct {
	User          models.User `json:"user"`
	RatingAverage float64     `json:"rating_average"`
	RatingCount   int64       `json:"rating_count"`
}

// UpsertProfileInput mirrors the identity provider's claims.
type UpsertProfileInput struct {
	UserID      uuid.UUID
	DisplayName string
	Campus      *string
	AvatarURL   *string
	Bio         *string
}

// Service exposes profile maintenance and reads.
type Service interface {
	Ensure(ctx context.Context, input UpsertProfileInput) (*models.User, error)
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

type service struct {
	repo    Repository
	ratings ratings.Service
	logg    *logger.Logger
}

func NewService(repo Repository, ratingSvc ratings.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("users repository is required")
	}
	if ratingSvc == nil {
		return nil, errors.New("ratings service is required")
	}
	return &service{repo: repo, ratings: ratingSvc, logg: logg}, nil
}

func (s *service) Ensure(ctx context.Context, input UpsertProfileInput) (*models.User, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}

	user := &models.User{
		ID:          input.UserID,
		DisplayName: name,
		Campus:      input.Campus,
		AvatarURL:   input.AvatarURL,
		Bio:         input.Bio,
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upserting profile")
	}
	return user, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading profile")
	}

	avg, count, err := s.ratings.AverageFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: *user, RatingAverage: avg, RatingCount: count}, nil
}
