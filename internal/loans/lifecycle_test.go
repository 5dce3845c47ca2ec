package loans_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/internal/catalog"
	"github.com/librarium/librarium-backend/internal/fines"
	"github.com/librarium/librarium-backend/internal/loans"
	"github.com/librarium/librarium-backend/internal/reservations"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/config"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
)

type lifecycleTxRunner struct {
	db *gorm.DB
}

func (r lifecycleTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type lifecycleSettings struct{}

func (lifecycleSettings) Get(ctx context.Context, key, fallback string) string { return fallback }
func (lifecycleSettings) GetInt(ctx context.Context, key string, fallback int) int {
	return fallback
}
func (lifecycleSettings) GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal {
	return fallback
}
func (lifecycleSettings) Set(ctx context.Context, key, value, valueType string) error { return nil }
func (lifecycleSettings) List(ctx context.Context) ([]models.Setting, error)          { return nil, nil }

type lifecycleNotifier struct {
	messages []string
}

func (n *lifecycleNotifier) Notify(ctx context.Context, userID uuid.UUID, message string, category enums.NotificationCategory, targetURL string) {
	n.messages = append(n.messages, message)
}

func setupLifecycleDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS authors (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  bio TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS books (
  id TEXT PRIMARY KEY,
  isbn TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  author_id TEXT NOT NULL,
  category_id TEXT,
  quantity INTEGER NOT NULL DEFAULT 1,
  available_count INTEGER NOT NULL DEFAULT 1,
  description TEXT NOT NULL DEFAULT '',
  published_year INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS book_issues (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  book_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'REQUESTED',
  issue_date DATETIME,
  due_date DATETIME,
  return_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS fines (
  id TEXT PRIMARY KEY,
  issue_id TEXT NOT NULL UNIQUE,
  amount NUMERIC NOT NULL DEFAULT 0,
  paid BOOLEAN NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  book_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'QUEUED',
  position INTEGER NOT NULL DEFAULT 1,
  expires_at DATETIME,
  approved_at DATETIME,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS fine_payments (
  id TEXT PRIMARY KEY,
  fine_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  mode TEXT NOT NULL DEFAULT 'Simulated',
  reference TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

// Walks a loan through its whole life: request, approval, a late return that
// assesses a fine, and the borrower settling that fine.
func TestLoanLifecycleWithLateReturnAndPayment(t *testing.T) {
	db := setupLifecycleDB(t)
	ctx := context.Background()
	notifier := &lifecycleNotifier{}

	loanRepo := loans.NewRepository(db)
	fineRepo := fines.NewRepository(db)

	loanSvc, err := loans.NewService(loans.ServiceParams{
		DB:       lifecycleTxRunner{db: db},
		Repo:     loanRepo,
		Books:    catalog.NewRepository(db),
		Fines:    fineRepo,
		Settings: lifecycleSettings{},
		Notifier: notifier,
		Library: config.LibraryConfig{
			ReturnPeriodDays: 14,
			FinePerDay:       "5",
		},
	})
	require.NoError(t, err)

	reservationSvc, err := reservations.NewService(reservations.ServiceParams{
		DB:       lifecycleTxRunner{db: db},
		Repo:     reservations.NewRepository(db),
		Books:    catalog.NewRepository(db),
		Settings: lifecycleSettings{},
		Notifier: notifier,
		Library: config.LibraryConfig{
			ReservationExpiryDays: 3,
		},
	})
	require.NoError(t, err)

	fineSvc, err := fines.NewService(fines.ServiceParams{
		DB:       lifecycleTxRunner{db: db},
		Repo:     fineRepo,
		Notifier: notifier,
	})
	require.NoError(t, err)

	author := &models.Author{ID: uuid.New(), Name: "Ursula K. Le Guin"}
	require.NoError(t, db.Create(author).Error)
	book := &models.Book{
		ID:             uuid.New(),
		ISBN:           "9780441007318",
		Title:          "The Left Hand of Darkness",
		AuthorID:       author.ID,
		Quantity:       1,
		AvailableCount: 1,
	}
	require.NoError(t, db.Create(book).Error)

	borrower := authz.Actor{UserID: uuid.New(), Role: enums.RoleStudent}
	librarian := authz.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	issue, err := loanSvc.Request(ctx, borrower, book.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.IssueStatusRequested, issue.Status)

	issued, err := loanSvc.Approve(ctx, librarian, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.IssueStatusIssued, issued.Status)

	var stored models.Book
	require.NoError(t, db.First(&stored, "id = ?", book.ID).Error)
	assert.Equal(t, 0, stored.AvailableCount)

	// With the last copy out, another student joins the queue.
	waiter := authz.Actor{UserID: uuid.New(), Role: enums.RoleStudent}
	reservation, err := reservationSvc.Reserve(ctx, waiter, book.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusQueued, reservation.Status)
	assert.Equal(t, 1, reservation.Position)

	// Push the due date five days into the past so the return is late.
	lateDue := time.Now().UTC().AddDate(0, 0, -5)
	lateDue = time.Date(lateDue.Year(), lateDue.Month(), lateDue.Day(), 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&models.BookIssue{}).Where("id = ?", issue.ID).Update("due_date", lateDue).Error)

	returned, err := loanSvc.Return(ctx, librarian, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.IssueStatusReturned, returned.Status)

	require.NoError(t, db.First(&stored, "id = ?", book.ID).Error)
	assert.Equal(t, 1, stored.AvailableCount, "returning must restore the copy")

	owed, err := fineSvc.List(ctx, borrower, fines.ListParams{})
	require.NoError(t, err)
	require.Len(t, owed.Items, 1)
	fine := owed.Items[0]
	assert.False(t, fine.Paid)
	assert.True(t, fine.Amount.Equal(decimal.NewFromInt(25)), "5 days at 5 per day, got %s", fine.Amount)

	// A student cannot settle someone else's fine.
	stranger := authz.Actor{UserID: uuid.New(), Role: enums.RoleStudent}
	_, err = fineSvc.RecordPayment(ctx, stranger, fines.PaymentRequest{FineID: fine.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	payment, err := fineSvc.RecordPayment(ctx, borrower, fines.PaymentRequest{FineID: fine.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, payment.Status)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(25)))
	assert.NotEmpty(t, payment.Reference)

	_, err = fineSvc.RecordPayment(ctx, borrower, fines.PaymentRequest{FineID: fine.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	totals, err := fineSvc.Totals(ctx, librarian)
	require.NoError(t, err)
	assert.True(t, totals.Collected.Equal(decimal.NewFromInt(25)))
	assert.True(t, totals.Pending.IsZero())

	history, err := fineSvc.ListPayments(ctx, borrower, fines.ListPaymentsParams{})
	require.NoError(t, err)
	require.Len(t, history.Items, 1)
	assert.Equal(t, borrower.UserID, history.Items[0].UserID)

	assert.NotEmpty(t, notifier.messages)
}
