package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/api/responses"
	"github.com/librarium/librarium-backend/api/validators"
	"github.com/librarium/librarium-backend/internal/loans"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/db/models"
)

type loanRequestBody struct {
	BookID uuid.UUID `json:"book_id" validate:"required"`
}

// RequestLoan opens a loan request for the calling borrower.
func RequestLoan(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loanRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issue, err := svc.Request(r.Context(), actor, body.BookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issue)
	}
}

// ApproveLoan issues a requested loan to its borrower.
func ApproveLoan(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return loanAction(svc, logg, loans.Service.Approve)
}

// RejectLoan declines a requested loan.
func RejectLoan(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return loanAction(svc, logg, loans.Service.Reject)
}

// ReturnLoan closes an issued loan and assesses any overdue fine.
func ReturnLoan(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return loanAction(svc, logg, loans.Service.Return)
}

// GetLoan returns one loan visible to the caller.
func GetLoan(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return loanAction(svc, logg, loans.Service.Get)
}

func loanAction(svc loans.Service, logg *logger.Logger, op func(loans.Service, context.Context, authz.Actor, uuid.UUID) (*models.BookIssue, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issueID, err := parseIDParam(r, "issueId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issue, err := op(svc, r.Context(), actor, issueID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, issue)
	}
}

// ListLoans returns one page of loans scoped to the caller.
func ListLoans(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := loans.ListParams{
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
		if params.BookID, err = queryUUID(r, "book_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.Overdue, err = queryBool(r, "overdue"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseIssueStatus(raw)
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
