package fines

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Repository exposes persistence helpers for fines and their payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, id uuid.UUID) (*models.Fine, error)
	FindByIssue(ctx context.Context, issueID uuid.UUID) (*models.Fine, error)
	// UpsertForIssue replaces the fine amount for a loan, creating the row
	// only when the amount is positive. Amounts are never accumulated.
	UpsertForIssue(ctx context.Context, issueID uuid.UUID, amount decimal.Decimal) error
	List(ctx context.Context, params listFinesParams) ([]models.Fine, *pagination.Cursor, error)
	// MarkPaid flips paid from false to true; false return means the fine
	// was already settled.
	MarkPaid(ctx context.Context, fineID uuid.UUID) (bool, error)
	CreatePayment(ctx context.Context, payment *models.FinePayment) error
	ListPayments(ctx context.Context, params listPaymentsParams) ([]models.FinePayment, *pagination.Cursor, error)
	Totals(ctx context.Context) (Totals, error)
	// PendingAmountForUser sums a borrower's unsettled fines.
	PendingAmountForUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	PaymentsSince(ctx context.Context, since time.Time) ([]models.FinePayment, error)
}

type listFinesParams struct {
	UserID   *uuid.UUID
	PaidOnly *bool
	Limit    int
	Cursor   *pagination.Cursor
}

type listPaymentsParams struct {
	UserID *uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

// Totals aggregates the fine ledger for the dashboard.
type Totals struct {
	Collected decimal.Decimal `json:"collected"`
	Pending   decimal.Decimal `json:"pending"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a fines repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Find(ctx context.Context, id uuid.UUID) (*models.Fine, error) {
	var fine models.Fine
	if err := r.db.WithContext(ctx).
		Preload("Issue").
		Preload("Issue.Book").
		First(&fine, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &fine, nil
}

func (r *repositoryImpl) FindByIssue(ctx context.Context, issueID uuid.UUID) (*models.Fine, error) {
	var fine models.Fine
	if err := r.db.WithContext(ctx).Where("issue_id = ?", issueID).First(&fine).Error; err != nil {
		return nil, err
	}
	return &fine, nil
}

func (r *repositoryImpl) UpsertForIssue(ctx context.Context, issueID uuid.UUID, amount decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Where("issue_id = ?", issueID).
		UpdateColumn("amount", amount)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	if !amount.IsPositive() {
		return nil
	}
	fine := &models.Fine{ID: uuid.New(), IssueID: issueID, Amount: amount}
	return r.db.WithContext(ctx).Create(fine).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listFinesParams) ([]models.Fine, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Preload("Issue").
		Preload("Issue.Book")
	if params.UserID != nil {
		query = query.Joins("JOIN book_issues ON book_issues.id = fines.issue_id").
			Where("book_issues.user_id = ?", *params.UserID)
	}
	if params.PaidOnly != nil {
		query = query.Where("fines.paid = ?", *params.PaidOnly)
	}
	if params.Cursor != nil {
		query = query.Where("(fines.created_at, fines.id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var fines []models.Fine
	if err := query.Order("fines.created_at DESC, fines.id DESC").Limit(limit).Find(&fines).Error; err != nil {
		return nil, nil, err
	}

	if len(fines) > normalized {
		fines = fines[:normalized]
		last := fines[normalized-1]
		return fines, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return fines, nil, nil
}

func (r *repositoryImpl) MarkPaid(ctx context.Context, fineID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Where("id = ? AND paid = ?", fineID, false).
		UpdateColumn("paid", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CreatePayment(ctx context.Context, payment *models.FinePayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repositoryImpl) ListPayments(ctx context.Context, params listPaymentsParams) ([]models.FinePayment, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.FinePayment{}).
		Preload("Fine")
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var payments []models.FinePayment
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&payments).Error; err != nil {
		return nil, nil, err
	}

	if len(payments) > normalized {
		payments = payments[:normalized]
		last := payments[normalized-1]
		return payments, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return payments, nil, nil
}

func (r *repositoryImpl) Totals(ctx context.Context) (Totals, error) {
	type row struct {
		Paid  bool
		Total decimal.Decimal
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Select("paid, COALESCE(SUM(amount), 0) AS total").
		Group("paid").
		Scan(&rows).Error; err != nil {
		return Totals{}, err
	}

	totals := Totals{Collected: decimal.Zero, Pending: decimal.Zero}
	for _, r := range rows {
		if r.Paid {
			totals.Collected = r.Total
		} else {
			totals.Pending = r.Total
		}
	}
	return totals, nil
}

func (r *repositoryImpl) PendingAmountForUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Joins("JOIN book_issues ON book_issues.id = fines.issue_id").
		Where("book_issues.user_id = ? AND fines.paid = ?", userID, false).
		Select("COALESCE(SUM(fines.amount), 0) AS total").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (r *repositoryImpl) PaymentsSince(ctx context.Context, since time.Time) ([]models.FinePayment, error) {
	var payments []models.FinePayment
	err := r.db.WithContext(ctx).
		Select("id", "amount", "created_at").
		Where("created_at >= ? AND status = ?", since, enums.PaymentStatusPaid).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}
