package items

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/reservation"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/config"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:items_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Item{}, &models.Transaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, now time.Time) *service {
	t.Helper()
	resSvc, err := reservation.NewService(
		reservation.NewRepository(db),
		config.ReservationConfig{TTL: 10 * time.Minute, SweepBatchSize: 100},
		nil, nil,
	)
	if err != nil {
		t.Fatalf("reservation service: %v", err)
	}
	return &service{
		repo:        NewRepository(db),
		reservation: resSvc,
		nowFn:       func() time.Time { return now },
	}
}

func TestCreateListing(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, time.Now())
	ctx := context.Background()

	author := "Gilbert Strang"
	item, err := svc.Create(ctx, CreateItemInput{
		SellerID:         uuid.New(),
		Title:            "  Introduction to Linear Algebra  ",
		Author:           &author,
		Condition:        enums.ItemConditionGood,
		OriginalPriceYen: 7800,
		SellingPriceYen:  3000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if item.Title != "Introduction to Linear Algebra" {
		t.Fatalf("expected trimmed title, got %q", item.Title)
	}
	if item.Status != enums.ItemStatusAvailable {
		t.Fatalf("new listings start available, got %s", item.Status)
	}
}

func TestCreateListingValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, time.Now())
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateItemInput
	}{
		{name: "missing seller", input: CreateItemInput{Title: "x", Condition: enums.ItemConditionGood}},
		{name: "blank title", input: CreateItemInput{SellerID: uuid.New(), Title: "   ", Condition: enums.ItemConditionGood}},
		{name: "bad condition", input: CreateItemInput{SellerID: uuid.New(), Title: "x", Condition: enums.ItemCondition("mint")}},
		{name: "negative price", input: CreateItemInput{SellerID: uuid.New(), Title: "x", Condition: enums.ItemConditionGood, SellingPriceYen: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetReleasesExpiredLock(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	item, err := svc.Create(ctx, CreateItemInput{
		SellerID:  uuid.New(),
		Title:     "Organic Chemistry",
		Condition: enums.ItemConditionFair,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	past := now.Add(-time.Minute)
	holder := uuid.New()
	if err := db.Model(&models.Item{}).Where("id = ?", item.ID).Updates(map[string]any{
		"status":       enums.ItemStatusReservationLocked,
		"locked_by":    holder,
		"locked_until": past,
	}).Error; err != nil {
		t.Fatalf("seed stale lock: %v", err)
	}

	detail, err := svc.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Item.Status != enums.ItemStatusAvailable {
		t.Fatalf("stale lock should be released on read, got %s", detail.Item.Status)
	}
	if detail.LockRemainingSeconds != 0 {
		t.Fatalf("no countdown expected after release")
	}
}

func TestGetReportsRemainingLockSeconds(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	item, err := svc.Create(ctx, CreateItemInput{
		SellerID:  uuid.New(),
		Title:     "Microeconomics",
		Condition: enums.ItemConditionLikeNew,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	until := now.Add(5 * time.Minute)
	if err := db.Model(&models.Item{}).Where("id = ?", item.ID).Updates(map[string]any{
		"status":       enums.ItemStatusReservationLocked,
		"locked_by":    uuid.New(),
		"locked_until": until,
	}).Error; err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	detail, err := svc.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.LockRemainingSeconds < 4*60 || detail.LockRemainingSeconds > 5*60 {
		t.Fatalf("unexpected remaining seconds %d", detail.LockRemainingSeconds)
	}
}

func TestGetUnknownItem(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, time.Now())

	_, err := svc.Get(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	seller := uuid.New()
	titles := []string{"Calculus I", "Calculus II", "World History", "Statistics"}
	for i, title := range titles {
		item := &models.Item{
			SellerID:        seller,
			Title:           title,
			Condition:       enums.ItemConditionGood,
			SellingPriceYen: 1000,
			Status:          enums.ItemStatusAvailable,
			CreatedAt:       now.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("seed %q: %v", title, err)
		}
	}

	page, err := svc.List(ctx, ListItemsInput{
		Filters:    ItemListFilters{Query: "calculus"},
		Pagination: pagination.Params{Limit: 1},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one row, got %d", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Fatalf("expected a next cursor")
	}
	if page.Items[0].Title != "Calculus II" {
		t.Fatalf("expected newest match first, got %q", page.Items[0].Title)
	}

	rest, err := svc.List(ctx, ListItemsInput{
		Filters:    ItemListFilters{Query: "calculus"},
		Pagination: pagination.Params{Limit: 1, Cursor: page.NextCursor},
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest.Items) != 1 || rest.Items[0].Title != "Calculus I" {
		t.Fatalf("unexpected second page %+v", rest.Items)
	}
	if rest.NextCursor != "" {
		t.Fatalf("exhausted result should have no cursor")
	}

	status := enums.ItemStatusAvailable
	all, err := svc.List(ctx, ListItemsInput{
		Filters: ItemListFilters{Status: &status, SellerID: &seller},
	})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(all.Items) != len(titles) {
		t.Fatalf("expected %d rows, got %d", len(titles), len(all.Items))
	}
}

func TestListRejectsGarbageCursor(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, time.Now())

	_, err := svc.List(context.Background(), ListItemsInput{
		Pagination: pagination.Params{Cursor: "not-base64!"},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad cursor, got %v", err)
	}
}

func TestListSweepsExpiredLocks(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	item := &models.Item{
		SellerID:  uuid.New(),
		Title:     "Discrete Mathematics",
		Condition: enums.ItemConditionWorn,
		Status:    enums.ItemStatusReservationLocked,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	past := now.Add(-time.Second)
	holder := uuid.New()
	if err := db.Model(&models.Item{}).Where("id = ?", item.ID).Updates(map[string]any{
		"locked_by":    holder,
		"locked_until": past,
	}).Error; err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	page, err := svc.List(ctx, ListItemsInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected the item in results")
	}
	if page.Items[0].Status != enums.ItemStatusAvailable {
		t.Fatalf("expected sweep to release the lapsed lock, got %s", page.Items[0].Status)
	}
}
