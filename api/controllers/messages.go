package controllers

import (
	"net/http"
	"strings"

	"github.com/Gitttomo/AntiTextNext-sub000/api/responses"
	"github.com/Gitttomo/AntiTextNext-sub000/api/validators"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/messages"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/pagination"
)

type sendMessageRequest struct {
	ReceiverID    string  `json:"receiver_id" validate:"required,uuid"`
	TransactionID *string `json:"transaction_id,omitempty" validate:"omitempty,uuid"`
	Body          string  `json:"body" validate:"required,max=2000"`
}

// SendMessage appends a chat message to a listing's thread.
func SendMessage(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messages service unavailable"))
			return
		}

		senderID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload sendMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receiverID, err := parseBodyUUID(payload.ReceiverID, "receiver_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := messages.SendMessageInput{
			ItemID:     itemID,
			SenderID:   senderID,
			ReceiverID: receiverID,
			Body:       payload.Body,
		}
		if payload.TransactionID != nil {
			txnID, err := parseBodyUUID(*payload.TransactionID, "transaction_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.TransactionID = &txnID
		}

		message, err := svc.Send(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// ListMessages pages through a listing's chat thread.
func ListMessages(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messages service unavailable"))
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListForItem(r.Context(), itemID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MarkMessagesRead marks the caller's unread messages in the thread as read.
func MarkMessagesRead(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messages service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), itemID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}
