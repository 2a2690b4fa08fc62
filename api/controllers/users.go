package controllers

import (
	"net/http"

	"github.com/Gitttomo/AntiTextNext-sub000/api/middleware"
	"github.com/Gitttomo/AntiTextNext-sub000/api/responses"
	"github.com/Gitttomo/AntiTextNext-sub000/api/validators"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/users"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
)

// GetUser returns a public profile with its rating aggregate.
func GetUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type upsertProfileRequest struct {
	DisplayName string  `json:"display_name" validate:"required,max=100"`
	Campus      *string `json:"campus,omitempty" validate:"omitempty,max=100"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,max=500"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=1000"`
}

// UpsertProfile creates or refreshes the caller's shadow profile from the
// identity provider's claims plus the submitted fields.
func UpsertProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upsertProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := users.UpsertProfileInput{
			UserID:      userID,
			DisplayName: validators.SanitizeString(payload.DisplayName, 100),
			Campus:      payload.Campus,
			AvatarURL:   payload.AvatarURL,
			Bio:         payload.Bio,
		}
		if input.Campus == nil {
			if campus := middleware.CampusFromContext(r.Context()); campus != "" {
				input.Campus = &campus
			}
		}

		user, err := svc.Ensure(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
