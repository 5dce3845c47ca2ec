package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/api/responses"
	"github.com/librarium/librarium-backend/api/validators"
	"github.com/librarium/librarium-backend/internal/extensions"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/db/models"
)

// RequestExtension petitions for more time on an issued loan.
func RequestExtension(svc extensions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "extension service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body extensions.CreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ApproveExtension grants the extra days and moves the due date.
func ApproveExtension(svc extensions.Service, logg *logger.Logger) http.HandlerFunc {
	return extensionAction(svc, logg, extensions.Service.Approve)
}

// RejectExtension declines the petition and leaves the due date alone.
func RejectExtension(svc extensions.Service, logg *logger.Logger) http.HandlerFunc {
	return extensionAction(svc, logg, extensions.Service.Reject)
}

// GetExtension returns one extension request visible to the caller.
func GetExtension(svc extensions.Service, logg *logger.Logger) http.HandlerFunc {
	return extensionAction(svc, logg, extensions.Service.Get)
}

func extensionAction(svc extensions.Service, logg *logger.Logger, op func(extensions.Service, context.Context, authz.Actor, uuid.UUID) (*models.ReturnExtensionRequest, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "extension service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := parseIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := op(svc, r.Context(), actor, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ListExtensions returns one page of extension requests scoped to the caller.
func ListExtensions(svc extensions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "extension service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := extensions.ListParams{
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if params.Limit, err = parseLimit(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.UserID, err = queryUUID(r, "user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseExtensionStatus(raw)
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
