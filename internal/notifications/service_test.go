package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("notifications service: %v", err)
	}
	return svc
}

func record(t *testing.T, svc Service, userID uuid.UUID, title string) {
	t.Helper()
	err := svc.Record(context.Background(), &models.Notification{
		UserID:  userID,
		Type:    enums.NotificationTypeTransactionAlert,
		Title:   title,
		Message: "body",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestRecordAndList(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	record(t, svc, userID, "first")
	record(t, svc, userID, "second")
	record(t, svc, uuid.New(), "someone else")

	page, err := svc.List(ctx, userID, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Notifications) != 2 {
		t.Fatalf("got %d notifications, want 2", len(page.Notifications))
	}
	for _, n := range page.Notifications {
		if n.UserID != userID {
			t.Fatalf("foreign notification leaked into list")
		}
		if n.ReadAt != nil {
			t.Fatalf("fresh notification should be unread")
		}
	}
}

func TestListPaginates(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		n := &models.Notification{
			UserID:  userID,
			Type:    enums.NotificationTypeMessageAlert,
			Title:   "n",
			Message: "body",
		}
		if err := svc.Record(ctx, n); err != nil {
			t.Fatalf("record: %v", err)
		}
		// Distinct created_at keeps the keyset ordering deterministic.
		db.Model(n).Update("created_at", base.Add(time.Duration(i)*time.Minute))
	}

	page, err := svc.List(ctx, userID, pagination.Params{Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Notifications) != 3 || page.NextCursor == "" {
		t.Fatalf("first page = %d rows, cursor %q", len(page.Notifications), page.NextCursor)
	}

	rest, err := svc.List(ctx, userID, pagination.Params{Limit: 3, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest.Notifications) != 2 || rest.NextCursor != "" {
		t.Fatalf("second page = %d rows, cursor %q", len(rest.Notifications), rest.NextCursor)
	}
}

func TestListValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	if _, err := svc.List(context.Background(), uuid.Nil, pagination.Params{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if _, err := svc.List(context.Background(), uuid.New(), pagination.Params{Cursor: "garbage"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	n := &models.Notification{
		UserID:  userID,
		Type:    enums.NotificationTypeRatingAlert,
		Title:   "rated",
		Message: "body",
	}
	if err := svc.Record(ctx, n); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := svc.MarkRead(ctx, uuid.New(), n.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("stranger mark read: err = %v, want not found", err)
	}
	if err := svc.MarkRead(ctx, userID, n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// Already read, so the guarded update matches nothing.
	if err := svc.MarkRead(ctx, userID, n.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("repeat mark read: err = %v, want not found", err)
	}

	var stored models.Notification
	if err := db.First(&stored, "id = ?", n.ID).Error; err != nil {
		t.Fatalf("loading notification: %v", err)
	}
	if stored.ReadAt == nil {
		t.Fatalf("read_at not set")
	}
}

func TestMarkAllRead(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	record(t, svc, userID, "a")
	record(t, svc, userID, "b")
	record(t, svc, uuid.New(), "not mine")

	rows, err := svc.MarkAllRead(ctx, userID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if rows != 2 {
		t.Fatalf("rows = %d, want 2", rows)
	}

	var unread int64
	db.Model(&models.Notification{}).Where("read_at IS NULL").Count(&unread)
	if unread != 1 {
		t.Fatalf("unread rows = %d, want the stranger's 1", unread)
	}
}

func TestRecordValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	err := svc.Record(ctx, &models.Notification{Type: enums.NotificationTypeMessageAlert, Title: "t", Message: "m"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("missing user: err = %v, want validation", err)
	}
	err = svc.Record(ctx, &models.Notification{UserID: uuid.New(), Type: "bogus", Title: "t", Message: "m"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("bad type: err = %v, want validation", err)
	}
}
