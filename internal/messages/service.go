// Package messages is the append-only chat tied to a listing and, once a
// purchase request exists, to its transaction. The transactions service uses
// it to drop the auto-generated negotiation summary into the seller's inbox.
package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/outbox"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SendMessageInput carries one chat message.
type SendMessageInput struct {
	ItemID        uuid.UUID
	TransactionID *uuid.UUID
	SenderID      uuid.UUID
	ReceiverID    uuid.UUID
	Body          string
}

// MessageListResult is one page of chat plus the cursor for the next page.
type MessageListResult struct {
	Messages   []models.Message `json:"messages"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Service exposes chat operations.
type Service interface {
	Send(ctx context.Context, input SendMessageInput) (*models.Message, error)
	SendInTx(ctx context.Context, tx *gorm.DB, input SendMessageInput) (*models.Message, error)
	ListForItem(ctx context.Context, itemID uuid.UUID, params pagination.Params) (*MessageListResult, error)
	MarkRead(ctx context.Context, itemID, receiverID uuid.UUID) error
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox outboxPublisher
	logg   *logger.Logger
}

func NewService(tx txRunner, repo Repository, ob outboxPublisher, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if repo == nil {
		return nil, errors.New("messages repository is required")
	}
	if ob == nil {
		return nil, errors.New("outbox publisher is required")
	}
	return &service{tx: tx, repo: repo, outbox: ob, logg: logg}, nil
}

func (s *service) Send(ctx context.Context, input SendMessageInput) (*models.Message, error) {
	var message *models.Message
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sent, terr := s.SendInTx(ctx, tx, input)
		if terr != nil {
			return terr
		}
		message = sent
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// SendInTx writes the message and queues its event inside the caller's
// transaction.
func (s *service) SendInTx(ctx context.Context, tx *gorm.DB, input SendMessageInput) (*models.Message, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item is required")
	}
	if input.SenderID == uuid.Nil || input.ReceiverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender and receiver are required")
	}
	if input.SenderID == input.ReceiverID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "you cannot message yourself")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body must not be empty")
	}

	message := &models.Message{
		ItemID:        input.ItemID,
		TransactionID: input.TransactionID,
		SenderID:      input.SenderID,
		ReceiverID:    input.ReceiverID,
		Body:          body,
	}
	if err := s.repo.WithTx(tx).Create(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing message")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventMessageCreated,
		AggregateType: enums.AggregateMessage,
		AggregateID:   message.ID,
		Actor:         &outbox.ActorRef{UserID: input.SenderID},
		Data: map[string]any{
			"item_id":     message.ItemID,
			"sender_id":   message.SenderID,
			"receiver_id": message.ReceiverID,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing message event")
	}
	return message, nil
}

func (s *service) ListForItem(ctx context.Context, itemID uuid.UUID, params pagination.Params) (*MessageListResult, error) {
	result, err := s.repo.ListForItem(ctx, itemID, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing messages")
	}
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, itemID, receiverID uuid.UUID) error {
	if _, err := s.repo.MarkRead(ctx, itemID, receiverID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking messages read")
	}
	return nil
}

// BuildNegotiationSummary renders the auto-generated message the seller
// receives when a purchase request is created.
func BuildNegotiationSummary(title string, method enums.PaymentMethod, slots []string, locations []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Purchase request for %q.\n", title)
	fmt.Fprintf(&b, "Payment: %s\n", method)
	b.WriteString("Candidate times:\n")
	for _, slot := range slots {
		fmt.Fprintf(&b, "  - %s\n", slot)
	}
	b.WriteString("Candidate locations:\n")
	for _, location := range locations {
		fmt.Fprintf(&b, "  - %s\n", location)
	}
	b.WriteString("Pick one of each to confirm the meetup.")
	return b.String()
}
