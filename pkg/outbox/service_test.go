package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate outbox: %v", err)
	}
	return db
}

func TestEmitInsideTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	ctx := context.Background()
	txnID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: "buyer"}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txnID,
			Actor:         actor,
			Data:          map[string]string{"status": "pending"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.FetchUnpublished(10, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one unpublished event, got %d", len(rows))
	}
	row := rows[0]
	if row.EventType != enums.EventTransactionCreated {
		t.Fatalf("unexpected event type %s", row.EventType)
	}
	if row.AggregateID != txnID {
		t.Fatalf("unexpected aggregate id %s", row.AggregateID)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 {
		t.Fatalf("expected default version 1, got %d", envelope.Version)
	}
	if envelope.EventID == "" || envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing event id or timestamp: %+v", envelope)
	}
	if envelope.Actor == nil || envelope.Actor.Role != "buyer" {
		t.Fatalf("actor not preserved: %+v", envelope.Actor)
	}
	var data map[string]string
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["status"] != "pending" {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventTransactionCancelled,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   uuid.New(),
			Data:          map[string]string{"reason": "changed my mind"},
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	rows, err := repo.FetchUnpublished(10, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no events after rollback, got %d", len(rows))
	}
}

func TestEmitRequiresTransaction(t *testing.T) {
	t.Parallel()

	svc := NewService(NewRepository(nil), nil)
	if err := svc.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatalf("expected error without transaction")
	}
}

func TestMarkPublishedAndFailed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(ctx, tx, DomainEvent{
				EventType:     enums.EventMessageCreated,
				AggregateType: enums.AggregateMessage,
				AggregateID:   uuid.New(),
				Data:          map[string]int{"seq": i},
			})
		})
		if err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}

	rows, err := repo.FetchUnpublished(10, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rows))
	}

	if err := repo.MarkPublished(rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := repo.MarkFailed(rows[1].ID, errors.New("broker down")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	remaining, err := repo.FetchUnpublished(10, 10)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining event, got %d", len(remaining))
	}
	if remaining[0].AttemptCount != 1 {
		t.Fatalf("expected attempt count 1, got %d", remaining[0].AttemptCount)
	}
	if remaining[0].LastError == nil || *remaining[0].LastError != "broker down" {
		t.Fatalf("expected last error recorded, got %v", remaining[0].LastError)
	}

	exhausted, err := repo.FetchUnpublished(10, 1)
	if err != nil {
		t.Fatalf("fetch with attempt cap: %v", err)
	}
	if len(exhausted) != 0 {
		t.Fatalf("events at the attempt cap should be skipped, got %d", len(exhausted))
	}
}
