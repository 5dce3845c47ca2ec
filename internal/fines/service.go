package fines

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/internal/notifications"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

const defaultPaymentMode = "Simulated"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the fine ledger: reads, settlement, and dashboard rollups.
type Service interface {
	Get(ctx context.Context, actor authz.Actor, fineID uuid.UUID) (*models.Fine, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error)
	RecordPayment(ctx context.Context, actor authz.Actor, req PaymentRequest) (*models.FinePayment, error)
	ListPayments(ctx context.Context, actor authz.Actor, params ListPaymentsParams) (*PaymentsResult, error)
	Totals(ctx context.Context, actor authz.Actor) (Totals, error)
	MonthlyPayments(ctx context.Context, actor authz.Actor, months int) ([]MonthBucket, error)
}

// ListParams filters and paginates the fine listing.
type ListParams struct {
	UserID   *uuid.UUID
	PaidOnly *bool
	Limit    int
	Cursor   string
}

// ListResult wraps returned fines and the cursor for the next page.
type ListResult struct {
	Items  []models.Fine `json:"items"`
	Cursor string        `json:"cursor"`
}

// PaymentRequest settles a single fine in full.
type PaymentRequest struct {
	FineID    uuid.UUID `json:"fine_id" validate:"required"`
	Mode      string    `json:"mode"`
	Reference string    `json:"reference"`
}

// ListPaymentsParams paginates the payment history.
type ListPaymentsParams struct {
	UserID *uuid.UUID
	Limit  int
	Cursor string
}

// PaymentsResult wraps returned payments and the cursor for the next page.
type PaymentsResult struct {
	Items  []models.FinePayment `json:"items"`
	Cursor string               `json:"cursor"`
}

// MonthBucket aggregates collected payments for one calendar month.
type MonthBucket struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// ServiceParams bundles the fine service dependencies.
type ServiceParams struct {
	DB       txRunner
	Repo     Repository
	Notifier notifications.Notifier
	Logger   *logger.Logger
}

type service struct {
	db       txRunner
	repo     Repository
	notifier notifications.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the fine ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fines repository required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, fineID uuid.UUID) (*models.Fine, error) {
	fine, err := s.repo.Find(ctx, fineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fine")
	}
	if err := authz.RequireSelfOrStaff(actor, fineOwner(fine)); err != nil {
		return nil, err
	}
	return fine, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error) {
	query := listFinesParams{
		UserID:   params.UserID,
		PaidOnly: params.PaidOnly,
		Limit:    params.Limit,
	}
	// Students only ever see their own fines.
	if !actor.IsStaff() {
		userID := actor.UserID
		query.UserID = &userID
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	fines, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fines")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: fines, Cursor: cursor}, nil
}

func (s *service) RecordPayment(ctx context.Context, actor authz.Actor, req PaymentRequest) (*models.FinePayment, error) {
	if req.FineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fine id required")
	}

	fine, err := s.repo.Find(ctx, req.FineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fine")
	}

	owner := fineOwner(fine)
	if err := authz.RequireSelfOrStaff(actor, owner); err != nil {
		return nil, err
	}
	if fine.Paid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fine already paid")
	}
	if !fine.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fine has nothing outstanding")
	}

	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = defaultPaymentMode
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = fmt.Sprintf("RCPT-%s", strings.ToUpper(uuid.NewString()[:8]))
	}

	var payment *models.FinePayment
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		settled, err := repo.MarkPaid(ctx, fine.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle fine")
		}
		if !settled {
			return pkgerrors.New(pkgerrors.CodeValidation, "fine already paid")
		}

		payment = &models.FinePayment{
			FineID:    fine.ID,
			UserID:    owner,
			Amount:    fine.Amount,
			Mode:      mode,
			Reference: reference,
			Status:    enums.PaymentStatusPaid,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, owner,
		fmt.Sprintf("Payment of %s received, receipt %s.", payment.Amount.StringFixed(2), payment.Reference),
		enums.NotificationCategoryFine, "")
	return payment, nil
}

func (s *service) ListPayments(ctx context.Context, actor authz.Actor, params ListPaymentsParams) (*PaymentsResult, error) {
	query := listPaymentsParams{
		UserID: params.UserID,
		Limit:  params.Limit,
	}
	if !actor.IsStaff() {
		userID := actor.UserID
		query.UserID = &userID
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	payments, next, err := s.repo.ListPayments(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &PaymentsResult{Items: payments, Cursor: cursor}, nil
}

func (s *service) Totals(ctx context.Context, actor authz.Actor) (Totals, error) {
	if err := authz.Require(actor, authz.ResourceFines, authz.ActionProcess); err != nil {
		return Totals{}, err
	}
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate fines")
	}
	return totals, nil
}

func (s *service) MonthlyPayments(ctx context.Context, actor authz.Actor, months int) ([]MonthBucket, error) {
	if err := authz.Require(actor, authz.ResourceFines, authz.ActionProcess); err != nil {
		return nil, err
	}
	if months <= 0 {
		months = 6
	}

	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	payments, err := s.repo.PaymentsSince(ctx, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
	}

	buckets := make(map[string]*MonthBucket, months)
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		buckets[month] = &MonthBucket{Month: month, Total: decimal.Zero}
	}
	for _, payment := range payments {
		month := payment.CreatedAt.UTC().Format("2006-01")
		bucket, ok := buckets[month]
		if !ok {
			continue
		}
		bucket.Total = bucket.Total.Add(payment.Amount)
		bucket.Count++
	}

	series := make([]MonthBucket, 0, months)
	for _, bucket := range buckets {
		series = append(series, *bucket)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
	return series, nil
}

func fineOwner(fine *models.Fine) uuid.UUID {
	if fine.Issue != nil {
		return fine.Issue.UserID
	}
	return uuid.Nil
}
