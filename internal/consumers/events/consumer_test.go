package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/outbox"
)

func TestConsumerFansOutTransactionCreatedToSeller(t *testing.T) {
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	consumer := mustConsumer(t, recorder, publisher)

	buyerID := uuid.New()
	sellerID := uuid.New()
	itemID := uuid.New()
	event := buildEvent(t, enums.EventTransactionCreated, enums.AggregateTransaction, buyerID, map[string]any{
		"item_id":   itemID,
		"buyer_id":  buyerID,
		"seller_id": sellerID,
	})

	if err := consumer.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(recorder.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(recorder.notifications))
	}
	notification := recorder.notifications[0]
	if notification.UserID != sellerID {
		t.Fatalf("notification went to %s, want seller %s", notification.UserID, sellerID)
	}
	if notification.Type != enums.NotificationTypeTransactionAlert {
		t.Fatalf("unexpected notification type %s", notification.Type)
	}
	if notification.Link == nil || *notification.Link != "/transactions/"+event.AggregateID.String() {
		t.Fatalf("unexpected link %v", notification.Link)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 realtime publish, got %d", len(publisher.published))
	}
	if publisher.published[0].channel != "atx:events:user:"+sellerID.String() {
		t.Fatalf("unexpected channel %s", publisher.published[0].channel)
	}
	push, ok := publisher.published[0].payload.(realtimeEvent)
	if !ok {
		t.Fatalf("expected realtimeEvent payload, got %T", publisher.published[0].payload)
	}
	if push.EventType != enums.EventTransactionCreated {
		t.Fatalf("unexpected pushed event type %s", push.EventType)
	}
	if push.AggregateID != event.AggregateID {
		t.Fatalf("pushed aggregate id mismatch")
	}
}

func TestConsumerSkipsTheActingParticipant(t *testing.T) {
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	consumer := mustConsumer(t, recorder, publisher)

	buyerID := uuid.New()
	sellerID := uuid.New()
	event := buildEvent(t, enums.EventTransactionConfirmed, enums.AggregateTransaction, sellerID, map[string]any{
		"item_id":   uuid.New(),
		"buyer_id":  buyerID,
		"seller_id": sellerID,
	})

	if err := consumer.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(recorder.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(recorder.notifications))
	}
	if recorder.notifications[0].UserID != buyerID {
		t.Fatalf("confirmation should notify the buyer")
	}
}

func TestConsumerRoutesMessageToReceiver(t *testing.T) {
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	consumer := mustConsumer(t, recorder, publisher)

	senderID := uuid.New()
	receiverID := uuid.New()
	itemID := uuid.New()
	event := buildEvent(t, enums.EventMessageCreated, enums.AggregateMessage, senderID, map[string]any{
		"item_id":     itemID,
		"sender_id":   senderID,
		"receiver_id": receiverID,
	})

	if err := consumer.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(recorder.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(recorder.notifications))
	}
	notification := recorder.notifications[0]
	if notification.UserID != receiverID {
		t.Fatalf("message alert went to %s, want receiver %s", notification.UserID, receiverID)
	}
	if notification.Type != enums.NotificationTypeMessageAlert {
		t.Fatalf("unexpected notification type %s", notification.Type)
	}
	if notification.Link == nil || *notification.Link != "/items/"+itemID.String()+"/messages" {
		t.Fatalf("unexpected link %v", notification.Link)
	}
}

func TestConsumerRoutesRatingToRatedUser(t *testing.T) {
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	consumer := mustConsumer(t, recorder, publisher)

	raterID := uuid.New()
	ratedID := uuid.New()
	event := buildEvent(t, enums.EventRatingReceived, enums.AggregateRating, raterID, map[string]any{
		"transaction_id": uuid.New(),
		"rated_id":       ratedID,
		"score":          5,
	})

	if err := consumer.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(recorder.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(recorder.notifications))
	}
	if recorder.notifications[0].UserID != ratedID {
		t.Fatalf("rating alert should land on the rated user")
	}
	if recorder.notifications[0].Type != enums.NotificationTypeRatingAlert {
		t.Fatalf("unexpected notification type %s", recorder.notifications[0].Type)
	}
}

func TestConsumerIncludesCancelReason(t *testing.T) {
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	consumer := mustConsumer(t, recorder, publisher)

	buyerID := uuid.New()
	sellerID := uuid.New()
	event := buildEvent(t, enums.EventTransactionCancelled, enums.AggregateTransaction, buyerID, map[string]any{
		"item_id":       uuid.New(),
		"buyer_id":      buyerID,
		"seller_id":     sellerID,
		"cancel_reason": "found a cheaper copy",
	})

	if err := consumer.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(recorder.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(recorder.notifications))
	}
	if recorder.notifications[0].Message != "The transaction was cancelled: found a cheaper copy" {
		t.Fatalf("unexpected message %q", recorder.notifications[0].Message)
	}
}

func TestConsumerFailsOnBadEnvelope(t *testing.T) {
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	consumer := mustConsumer(t, recorder, publisher)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventTransactionCreated,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   uuid.New(),
		Payload:       []byte("{invalid json"),
	}
	if err := consumer.Process(context.Background(), event); err == nil {
		t.Fatalf("expected error for bad envelope")
	}
	if len(recorder.notifications) != 0 {
		t.Fatalf("expected no notifications on decode failure")
	}
}

func TestConsumerPropagatesRecorderErrors(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("db down")}
	publisher := &fakePublisher{}
	consumer := mustConsumer(t, recorder, publisher)

	event := buildEvent(t, enums.EventMessageCreated, enums.AggregateMessage, uuid.New(), map[string]any{
		"receiver_id": uuid.New(),
	})
	if err := consumer.Process(context.Background(), event); err == nil {
		t.Fatalf("expected recorder error to surface")
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected no realtime publish after recorder failure")
	}
}

func TestConsumerToleratesRealtimeFailures(t *testing.T) {
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{err: errors.New("redis away")}
	consumer := mustConsumer(t, recorder, publisher)

	event := buildEvent(t, enums.EventMessageCreated, enums.AggregateMessage, uuid.New(), map[string]any{
		"receiver_id": uuid.New(),
	})
	if err := consumer.Process(context.Background(), event); err != nil {
		t.Fatalf("realtime failure should not fail the event: %v", err)
	}
	if len(recorder.notifications) != 1 {
		t.Fatalf("notification should still be recorded")
	}
}

type fakeRecorder struct {
	notifications []*models.Notification
	err           error
}

func (f *fakeRecorder) Record(_ context.Context, notification *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.notifications = append(f.notifications, notification)
	return nil
}

type publishCall struct {
	channel string
	payload any
}

type fakePublisher struct {
	published []publishCall
	err       error
}

func (f *fakePublisher) PublishJSON(_ context.Context, channel string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishCall{channel: channel, payload: payload})
	return nil
}

func (f *fakePublisher) UserEventChannel(userID string) string {
	return "atx:events:user:" + userID
}

func mustConsumer(t *testing.T, recorder *fakeRecorder, publisher *fakePublisher) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(recorder, publisher, logger.New(logger.Options{
		ServiceName: "events-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	}))
	if err != nil {
		t.Fatalf("failed to build consumer: %v", err)
	}
	return consumer
}

func buildEvent(t *testing.T, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, actorID uuid.UUID, data map[string]any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Actor:      &outbox.ActorRef{UserID: actorID},
		Data:       raw,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}
