package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/librarium/librarium-backend/api/responses"
	"github.com/librarium/librarium-backend/internal/audit"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
)

// ListAuditLogs returns one page of audit entries, newest first.
func ListAuditLogs(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		params := audit.ListParams{
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var err error
		if params.Limit, err = parseLimit(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.UserID, err = queryUUID(r, "user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("action")); raw != "" {
			action, err := enums.ParseAuditAction(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
				return
			}
			params.Action = &action
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuditActivitySeries reports recent daily login and registration counts.
func AuditActivitySeries(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		buckets, err := svc.ActivitySeries(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, buckets)
	}
}
