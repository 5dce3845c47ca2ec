package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/api/responses"
	"github.com/librarium/librarium-backend/api/validators"
	"github.com/librarium/librarium-backend/internal/suggestions"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
)

type suggestionReviewBody struct {
	AdminNote string `json:"admin_note"`
}

// CreateSuggestion proposes a new title for the catalog.
func CreateSuggestion(svc suggestions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body suggestions.CreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suggestion, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, suggestion)
	}
}

// ApproveSuggestion accepts a proposal for acquisition.
func ApproveSuggestion(svc suggestions.Service, logg *logger.Logger) http.HandlerFunc {
	return suggestionReview(svc, logg, suggestions.Service.Approve)
}

// RejectSuggestion declines a proposal.
func RejectSuggestion(svc suggestions.Service, logg *logger.Logger) http.HandlerFunc {
	return suggestionReview(svc, logg, suggestions.Service.Reject)
}

// MarkSuggestionAdded records that the proposed title reached the catalog.
func MarkSuggestionAdded(svc suggestions.Service, logg *logger.Logger) http.HandlerFunc {
	return suggestionReview(svc, logg, suggestions.Service.MarkAdded)
}

func suggestionReview(svc suggestions.Service, logg *logger.Logger, op func(suggestions.Service, context.Context, authz.Actor, uuid.UUID, string) (*models.BookSuggestion, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suggestionID, err := parseIDParam(r, "suggestionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body suggestionReviewBody
		if err := decodeOptionalJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suggestion, err := op(svc, r.Context(), actor, suggestionID, body.AdminNote)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestion)
	}
}

// GetSuggestion returns one suggestion visible to the caller.
func GetSuggestion(svc suggestions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suggestionID, err := parseIDParam(r, "suggestionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suggestion, err := svc.Get(r.Context(), actor, suggestionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestion)
	}
}

// ListSuggestions returns one page of suggestions scoped to the caller.
func ListSuggestions(svc suggestions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := suggestions.ListParams{
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if params.Limit, err = parseLimit(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.CreatedBy, err = queryUUID(r, "created_by"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseSuggestionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}

		result, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
