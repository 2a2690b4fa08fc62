package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/outbox"
)

type notificationRecorder interface {
	Record(ctx context.Context, notification *models.Notification) error
}

type realtimePublisher interface {
	PublishJSON(ctx context.Context, channel string, payload any) error
	UserEventChannel(userID string) string
}

// Consumer fans published outbox events out to in-app notifications and
// per-user realtime channels.
type Consumer struct {
	notifications notificationRecorder
	realtime      realtimePublisher
	logg          *logger.Logger
	eventFilter   map[enums.OutboxEventType]struct{}
}

// NewConsumer builds a new event consumer.
func NewConsumer(notifications notificationRecorder, realtime realtimePublisher, logg *logger.Logger) (*Consumer, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification recorder required")
	}
	if realtime == nil {
		return nil, fmt.Errorf("realtime publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		notifications: notifications,
		realtime:      realtime,
		logg:          logg,
		eventFilter: map[enums.OutboxEventType]struct{}{
			enums.EventTransactionCreated:   {},
			enums.EventTransactionConfirmed: {},
			enums.EventTransactionCompleted: {},
			enums.EventTransactionCancelled: {},
			enums.EventMessageCreated:       {},
			enums.EventRatingReceived:       {},
		},
	}, nil
}

// eventData is the superset of fields the emitters put in envelope data.
type eventData struct {
	ItemID        uuid.UUID `json:"item_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	SenderID      uuid.UUID `json:"sender_id"`
	ReceiverID    uuid.UUID `json:"receiver_id"`
	RatedID       uuid.UUID `json:"rated_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	CancelReason  string    `json:"cancel_reason"`
}

// realtimeEvent is the payload pushed to user channels.
type realtimeEvent struct {
	EventID       string                    `json:"eventId"`
	EventType     enums.OutboxEventType     `json:"eventType"`
	AggregateType enums.OutboxAggregateType `json:"aggregateType"`
	AggregateID   uuid.UUID                 `json:"aggregateId"`
	Data          json.RawMessage           `json:"data"`
}

// Process turns one outbox event into notification rows plus realtime pushes.
func (c *Consumer) Process(ctx context.Context, event models.OutboxEvent) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": event.EventType,
	})

	if _, ok := c.eventFilter[event.EventType]; !ok {
		c.logg.Info(logCtx, "event not handled by events consumer")
		return nil
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	var data eventData
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return fmt.Errorf("decode event data: %w", err)
		}
	}

	recipients := c.recipientsFor(event, envelope, data)
	if len(recipients) == 0 {
		c.logg.Warn(logCtx, "event resolved to no recipients")
		return nil
	}

	for _, userID := range recipients {
		notification := buildNotification(userID, event, data)
		if notification != nil {
			if err := c.notifications.Record(ctx, notification); err != nil {
				return fmt.Errorf("record notification for %s: %w", userID, err)
			}
		}

		push := realtimeEvent{
			EventID:       envelope.EventID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Data:          envelope.Data,
		}
		channel := c.realtime.UserEventChannel(userID.String())
		if err := c.realtime.PublishJSON(ctx, channel, push); err != nil {
			// The notification row is already durable; a dropped push only
			// costs the live update.
			c.logg.Warn(c.logg.WithField(logCtx, "channel", channel), "realtime publish failed")
		}
	}

	c.logg.Info(c.logg.WithField(logCtx, "recipients", len(recipients)), "event fanned out")
	return nil
}

// recipientsFor resolves which users should hear about the event. Transaction
// events go to the counterparty of the acting user; messages and ratings name
// their recipient explicitly.
func (c *Consumer) recipientsFor(event models.OutboxEvent, envelope outbox.PayloadEnvelope, data eventData) []uuid.UUID {
	switch event.EventType {
	case enums.EventMessageCreated:
		if data.ReceiverID != uuid.Nil {
			return []uuid.UUID{data.ReceiverID}
		}
		return nil
	case enums.EventRatingReceived:
		if data.RatedID != uuid.Nil {
			return []uuid.UUID{data.RatedID}
		}
		return nil
	default:
	}

	var actor uuid.UUID
	if envelope.Actor != nil {
		actor = envelope.Actor.UserID
	}
	recipients := make([]uuid.UUID, 0, 2)
	for _, candidate := range []uuid.UUID{data.BuyerID, data.SellerID} {
		if candidate == uuid.Nil || candidate == actor {
			continue
		}
		recipients = append(recipients, candidate)
	}
	return recipients
}

func buildNotification(userID uuid.UUID, event models.OutboxEvent, data eventData) *models.Notification {
	var (
		notifType enums.NotificationType
		title     string
		message   string
		link      string
	)

	switch event.EventType {
	case enums.EventTransactionCreated:
		notifType = enums.NotificationTypeTransactionAlert
		title = "New purchase request"
		message = "A buyer reserved one of your listings and proposed meetup options."
		link = "/transactions/" + event.AggregateID.String()
	case enums.EventTransactionConfirmed:
		notifType = enums.NotificationTypeTransactionAlert
		title = "Meetup confirmed"
		message = "The seller confirmed your purchase and picked a meetup slot."
		link = "/transactions/" + event.AggregateID.String()
	case enums.EventTransactionCompleted:
		notifType = enums.NotificationTypeTransactionAlert
		title = "Handoff complete"
		message = "Both sides confirmed the handoff. Leave a rating to close the deal."
		link = "/transactions/" + event.AggregateID.String()
	case enums.EventTransactionCancelled:
		notifType = enums.NotificationTypeTransactionAlert
		title = "Transaction cancelled"
		message = "The transaction was cancelled and the listing is available again."
		if data.CancelReason != "" {
			message = "The transaction was cancelled: " + data.CancelReason
		}
		link = "/transactions/" + event.AggregateID.String()
	case enums.EventMessageCreated:
		notifType = enums.NotificationTypeMessageAlert
		title = "New message"
		message = "You received a new message about a listing."
		link = "/items/" + data.ItemID.String() + "/messages"
	case enums.EventRatingReceived:
		notifType = enums.NotificationTypeRatingAlert
		title = "New rating"
		message = "A trade partner rated their deal with you."
		link = "/transactions/" + data.TransactionID.String()
	default:
		return nil
	}

	return &models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Link:    &link,
	}
}
