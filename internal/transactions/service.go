// Package transactions drives the purchase state machine:
// pending -> confirmed -> awaiting_rating -> completed, with cancel edges
// from pending and confirmed. Creation folds the reservation claim and the
// transaction insert into one database transaction so racing buyers resolve
// to exactly one pending purchase.
package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/meetup"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/messages"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/reservation"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/metrics"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/outbox"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the only mutator of transaction rows.
type Service interface {
	Create(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error)
	Confirm(ctx context.Context, input ConfirmInput) (*models.Transaction, error)
	Complete(ctx context.Context, txnID, callerID uuid.UUID) (*models.Transaction, error)
	Cancel(ctx context.Context, txnID, callerID uuid.UUID, reason string) (*models.Transaction, error)
	FinalizeRating(ctx context.Context, tx *gorm.DB, txnID uuid.UUID) error
	Get(ctx context.Context, txnID, callerID uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, input ListTransactionsInput) (*TransactionListResult, error)
}

type service struct {
	tx          txRunner
	repo        Repository
	reservation reservation.Service
	messages    messages.Service
	outbox      outboxPublisher
	logg        *logger.Logger
	metrics     *metrics.NegotiationMetrics
	nowFn       func() time.Time
}

func NewService(
	tx txRunner,
	repo Repository,
	res reservation.Service,
	msgs messages.Service,
	ob outboxPublisher,
	logg *logger.Logger,
	m *metrics.NegotiationMetrics,
) (Service, error) {
	if tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if repo == nil {
		return nil, errors.New("transactions repository is required")
	}
	if res == nil {
		return nil, errors.New("reservation service is required")
	}
	if msgs == nil {
		return nil, errors.New("messages service is required")
	}
	if ob == nil {
		return nil, errors.New("outbox publisher is required")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		reservation: res,
		messages:    msgs,
		outbox:      ob,
		logg:        logg,
		metrics:     m,
		nowFn:       time.Now,
	}, nil
}

// Create validates the candidate offer, claims the item and inserts the
// pending transaction atomically. If any step fails the claim rolls back
// with everything else.
func (s *service) Create(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if err := meetup.ValidateCandidateSet(input.Slots, input.Locations); err != nil {
		return nil, err
	}

	var txn *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.reservation.ClaimInTx(ctx, tx, input.ItemID, input.BuyerID)
		if err != nil {
			return err
		}

		rows, err := s.repo.WithTx(tx).PromoteItemToPending(ctx, input.ItemID, input.BuyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "promoting item")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not available")
		}

		txn = &models.Transaction{
			ItemID:             item.ID,
			BuyerID:            input.BuyerID,
			SellerID:           item.SellerID,
			PaymentMethod:      input.PaymentMethod,
			CandidateSlots:     input.Slots,
			CandidateLocations: input.Locations,
			Status:             enums.TransactionStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating transaction")
		}

		slotLabels := make([]string, 0, len(input.Slots))
		for _, slot := range input.Slots {
			slotLabels = append(slotLabels, slot.String())
		}
		summary := messages.BuildNegotiationSummary(item.Title, input.PaymentMethod, slotLabels, input.Locations)
		if _, err := s.messages.SendInTx(ctx, tx, messages.SendMessageInput{
			ItemID:        item.ID,
			TransactionID: &txn.ID,
			SenderID:      input.BuyerID,
			ReceiverID:    item.SellerID,
			Body:          summary,
		}); err != nil {
			return err
		}

		return s.emit(ctx, tx, enums.EventTransactionCreated, txn, input.BuyerID, "buyer", nil)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(enums.TransactionStatusPending))
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"transaction_id": txn.ID.String(),
			"item_id":        txn.ItemID.String(),
		}), "purchase request created")
	}
	return txn, nil
}

// Confirm is the seller's acceptance: a closed-world pick of one offered
// slot and one offered location, pending transactions only.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Transaction, error) {
	txn, err := s.load(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(input.CallerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not part of this transaction")
	}
	if input.CallerID != txn.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can confirm")
	}
	if err := meetup.SelectFinal(txn.CandidateSlots, txn.CandidateLocations, input.FinalSlot, input.FinalLocation); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, uerr := s.repo.WithTx(tx).UpdateStatusGuarded(ctx, txn.ID,
			[]enums.TransactionStatus{enums.TransactionStatusPending},
			map[string]any{
				"status":         enums.TransactionStatusConfirmed,
				"final_slot":     finalSlotJSON(input.FinalSlot),
				"final_location": input.FinalLocation,
			})
		if uerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, uerr, "confirming transaction")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not pending")
		}
		return s.emit(ctx, tx, enums.EventTransactionConfirmed, txn, input.CallerID, "seller", map[string]any{
			"final_slot":     input.FinalSlot,
			"final_location": input.FinalLocation,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(enums.TransactionStatusConfirmed))
	return s.load(ctx, txn.ID)
}

// Complete records one party's handoff acknowledgment. When both sides have
// acknowledged, the transaction moves to awaiting_rating and the item is
// marked sold. Repeating an acknowledgment is a no-op.
func (s *service) Complete(ctx context.Context, txnID, callerID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(callerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not part of this transaction")
	}
	if txn.Status != enums.TransactionStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not confirmed")
	}

	ackColumn := "buyer_completed_at"
	alreadyAcked := txn.BuyerCompletedAt != nil
	if callerID == txn.SellerID {
		ackColumn = "seller_completed_at"
		alreadyAcked = txn.SellerCompletedAt != nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if !alreadyAcked {
			rows, uerr := txRepo.UpdateStatusGuarded(ctx, txn.ID,
				[]enums.TransactionStatus{enums.TransactionStatusConfirmed},
				map[string]any{ackColumn: s.nowFn()})
			if uerr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, uerr, "recording completion")
			}
			if rows == 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not confirmed")
			}
		}

		// The handoff verdict comes from the guarded update, never from the
		// row loaded before this transaction began. A repeat call on a row
		// that already holds both stamps closes it here.
		closed, uerr := txRepo.CloseHandoff(ctx, txn.ID)
		if uerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, uerr, "closing handoff")
		}
		if closed == 0 {
			return nil
		}
		if _, uerr := txRepo.MarkItemSold(ctx, txn.ItemID); uerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, uerr, "marking item sold")
		}
		return s.emit(ctx, tx, enums.EventTransactionCompleted, txn, callerID, roleOf(txn, callerID), nil)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if updated.Status == enums.TransactionStatusAwaitingRating {
		s.metrics.ObserveTransition(string(enums.TransactionStatusAwaitingRating))
	}
	return updated, nil
}

// Cancel aborts a pending or confirmed transaction and returns the item to
// available. Cancelling an already-cancelled transaction is a no-op.
func (s *service) Cancel(ctx context.Context, txnID, callerID uuid.UUID, reason string) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(callerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not part of this transaction")
	}
	if txn.Status == enums.TransactionStatusCancelled {
		return txn, nil
	}
	if !txn.Status.Cancellable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction can no longer be cancelled")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		rows, uerr := txRepo.UpdateStatusGuarded(ctx, txn.ID,
			[]enums.TransactionStatus{enums.TransactionStatusPending, enums.TransactionStatusConfirmed},
			map[string]any{
				"status":        enums.TransactionStatusCancelled,
				"cancel_reason": reason,
			})
		if uerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, uerr, "cancelling transaction")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction can no longer be cancelled")
		}
		if _, uerr := txRepo.ReturnItemToAvailable(ctx, txn.ItemID); uerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, uerr, "releasing item")
		}
		return s.emit(ctx, tx, enums.EventTransactionCancelled, txn, callerID, roleOf(txn, callerID), map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(enums.TransactionStatusCancelled))
	return s.load(ctx, txnID)
}

// FinalizeRating closes the machine once both ratings are in. It runs inside
// the rating submission's transaction.
func (s *service) FinalizeRating(ctx context.Context, tx *gorm.DB, txnID uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	rows, err := s.repo.WithTx(tx).UpdateStatusGuarded(ctx, txnID,
		[]enums.TransactionStatus{enums.TransactionStatusAwaitingRating},
		map[string]any{"status": enums.TransactionStatusCompleted})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalizing transaction")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not awaiting ratings")
	}
	s.metrics.ObserveTransition(string(enums.TransactionStatusCompleted))
	return nil
}

func (s *service) Get(ctx context.Context, txnID, callerID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(callerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not part of this transaction")
	}
	return txn, nil
}

func (s *service) List(ctx context.Context, input ListTransactionsInput) (*TransactionListResult, error) {
	result, err := s.repo.ListForUser(ctx, input)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing transactions")
	}
	return result, nil
}

func (s *service) load(ctx context.Context, txnID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, txnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading transaction")
	}
	return txn, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, txn *models.Transaction, actorID uuid.UUID, role string, extra map[string]any) error {
	data := map[string]any{
		"item_id":   txn.ItemID,
		"buyer_id":  txn.BuyerID,
		"seller_id": txn.SellerID,
	}
	for k, v := range extra {
		data[k] = v
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txn.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: role},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing transaction event")
	}
	return nil
}

func roleOf(txn *models.Transaction, userID uuid.UUID) string {
	if txn.SellerID == userID {
		return "seller"
	}
	return "buyer"
}

// finalSlotJSON marshals the slot by hand: map-based Updates bypass the
// model field serializer.
func finalSlotJSON(slot types.Slot) string {
	raw, _ := json.Marshal(slot)
	return string(raw)
}
