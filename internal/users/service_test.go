package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/ratings"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
)

type stubRatings struct {
	avg   float64
	count int64
}

func (s stubRatings) Submit(context.Context, ratings.SubmitRatingInput) (*models.Rating, error) {
	return nil, nil
}

func (s stubRatings) AverageFor(context.Context, uuid.UUID) (float64, int64, error) {
	return s.avg, s.count, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, stub stubRatings) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), stub, nil)
	if err != nil {
		t.Fatalf("users service: %v", err)
	}
	return svc
}

func TestEnsureCreatesProfile(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, stubRatings{})
	ctx := context.Background()

	campus := "Komaba"
	userID := uuid.New()
	user, err := svc.Ensure(ctx, UpsertProfileInput{
		UserID:      userID,
		DisplayName: "  Aoi  ",
		Campus:      &campus,
	})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if user.DisplayName != "Aoi" {
		t.Fatalf("display name not trimmed: %q", user.DisplayName)
	}

	var stored models.User
	if err := db.First(&stored, "id = ?", userID).Error; err != nil {
		t.Fatalf("loading profile: %v", err)
	}
	if stored.Campus == nil || *stored.Campus != "Komaba" {
		t.Fatalf("campus not stored")
	}
}

func TestEnsureUpdatesExistingProfile(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, stubRatings{})
	ctx := context.Background()

	userID := uuid.New()
	if _, err := svc.Ensure(ctx, UpsertProfileInput{UserID: userID, DisplayName: "Aoi"}); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	bio := "Selling my first-year stack."
	if _, err := svc.Ensure(ctx, UpsertProfileInput{UserID: userID, DisplayName: "Aoi T.", Bio: &bio}); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected a single row, got %d", count)
	}
	var stored models.User
	if err := db.First(&stored, "id = ?", userID).Error; err != nil {
		t.Fatalf("loading profile: %v", err)
	}
	if stored.DisplayName != "Aoi T." {
		t.Fatalf("display name not updated: %q", stored.DisplayName)
	}
	if stored.Bio == nil || *stored.Bio != bio {
		t.Fatalf("bio not updated")
	}
}

func TestEnsureValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, stubRatings{})
	ctx := context.Background()

	if _, err := svc.Ensure(ctx, UpsertProfileInput{DisplayName: "Aoi"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("missing id: err = %v, want validation", err)
	}
	if _, err := svc.Ensure(ctx, UpsertProfileInput{UserID: uuid.New(), DisplayName: "   "}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("blank name: err = %v, want validation", err)
	}
}

func TestGetJoinsRatingAggregate(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, stubRatings{avg: 4.5, count: 2})
	ctx := context.Background()

	userID := uuid.New()
	if _, err := svc.Ensure(ctx, UpsertProfileInput{UserID: userID, DisplayName: "Aoi"}); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	profile, err := svc.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if profile.User.ID != userID {
		t.Fatalf("profile user mismatch")
	}
	if profile.RatingAverage != 4.5 || profile.RatingCount != 2 {
		t.Fatalf("aggregate = %v/%d, want 4.5/2", profile.RatingAverage, profile.RatingCount)
	}
}

func TestGetUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, stubRatings{})

	if _, err := svc.Get(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
