package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Gitttomo/AntiTextNext-sub000/api/responses"
	"github.com/Gitttomo/AntiTextNext-sub000/api/validators"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/ratings"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
)

type submitRatingRequest struct {
	Score   int     `json:"score" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// SubmitRating records the caller's rating for a transaction awaiting closure.
func SubmitRating(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ratings service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnID, err := pathUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitRatingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Comment != nil {
			trimmed := validators.SanitizeString(*payload.Comment, 1000)
			payload.Comment = &trimmed
		}

		rating, err := svc.Submit(r.Context(), ratings.SubmitRatingInput{
			TransactionID: txnID,
			RaterID:       userID,
			Score:         payload.Score,
			Comment:       payload.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rating)
	}
}

func parseBodyUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field).WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
