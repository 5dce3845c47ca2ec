package extensions

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

	"github.com/librarium/librarium-backend/internal/fines"
	"github.com/librarium/librarium-backend/internal/loans"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/config"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubSettings struct{}

func (stubSettings) Get(ctx context.Context, key, fallback string) string { return fallback }
func (stubSettings) GetInt(ctx context.Context, key string, fallback int) int {
	return fallback
}
func (stubSettings) GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal {
	return fallback
}
func (stubSettings) Set(ctx context.Context, key, value, valueType string) error { return nil }
func (stubSettings) List(ctx context.Context) ([]models.Setting, error)          { return nil, nil }

type recordingNotifier struct {
	users []uuid.UUID
}

func (r *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, message string, category enums.NotificationCategory, targetURL string) {
	r.users = append(r.users, userID)
}

func setupExtensionsTestDB(t *testing.T) *gorm.DB {
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
CREATE TABLE IF NOT EXISTS return_extension_requests (
  id TEXT PRIMARY KEY,
  issue_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  days_requested INTEGER NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'PENDING',
  processed_by TEXT,
  processed_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type extensionHarness struct {
	db       *gorm.DB
	svc      Service
	fines    fines.Repository
	notifier *recordingNotifier
	now      time.Time
}

func newExtensionHarness(t *testing.T) *extensionHarness {
	t.Helper()

	db := setupExtensionsTestDB(t)
	notifier := &recordingNotifier{}
	fineRepo := fines.NewRepository(db)

	svc, err := NewService(ServiceParams{
		DB:       gormTxRunner{db: db},
		Repo:     NewRepository(db),
		Loans:    loans.NewRepository(db),
		Fines:    fineRepo,
		Settings: stubSettings{},
		Notifier: notifier,
		Library:  config.LibraryConfig{FinePerDay: "5"},
	})
	require.NoError(t, err)

	now := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return now }

	return &extensionHarness{db: db, svc: svc, fines: fineRepo, notifier: notifier, now: now}
}

func (h *extensionHarness) seedIssuedLoan(t *testing.T, userID uuid.UUID, due time.Time) *models.BookIssue {
	t.Helper()
	author := &models.Author{ID: uuid.New(), Name: "Author " + uuid.NewString()[:8]}
	require.NoError(t, h.db.Create(author).Error)
	book := &models.Book{
		ID:       uuid.New(),
		ISBN:     uuid.NewString(),
		Title:    "Title " + uuid.NewString()[:8],
		AuthorID: author.ID,
		Quantity: 1,
	}
	require.NoError(t, h.db.Create(book).Error)

	issue := &models.BookIssue{
		ID:      uuid.New(),
		UserID:  userID,
		BookID:  book.ID,
		Status:  enums.IssueStatusIssued,
		DueDate: &due,
	}
	require.NoError(t, h.db.Create(issue).Error)
	return issue
}

func staff() authz.Actor   { return authz.Actor{UserID: uuid.New(), Role: enums.RoleAdmin} }
func student() authz.Actor { return authz.Actor{UserID: uuid.New(), Role: enums.RoleStudent} }

func TestService_CreatePendingRequest(t *testing.T) {
	h := newExtensionHarness(t)
	actor := student()
	issue := h.seedIssuedLoan(t, actor.UserID, h.now.AddDate(0, 0, 3))

	request, err := h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 7, Reason: "exams"})
	require.NoError(t, err)
	assert.Equal(t, enums.ExtensionStatusPending, request.Status)
	assert.Equal(t, 7, request.DaysRequested)
	assert.Equal(t, actor.UserID, request.UserID)
}

func TestService_CreateRejectsNonIssuedLoan(t *testing.T) {
	h := newExtensionHarness(t)
	actor := student()
	issue := h.seedIssuedLoan(t, actor.UserID, h.now)
	require.NoError(t, h.db.Model(issue).UpdateColumn("status", enums.IssueStatusReturned).Error)

	_, err := h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 7})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestService_CreateRejectsInvalidDays(t *testing.T) {
	h := newExtensionHarness(t)
	actor := student()
	issue := h.seedIssuedLoan(t, actor.UserID, h.now)

	_, err := h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 0})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: maxExtensionDays + 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestService_CreateRejectsDuplicatePending(t *testing.T) {
	h := newExtensionHarness(t)
	actor := student()
	issue := h.seedIssuedLoan(t, actor.UserID, h.now.AddDate(0, 0, 3))

	_, err := h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 7})
	require.NoError(t, err)

	_, err = h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 3})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestService_CreateForbidsOtherStudents(t *testing.T) {
	h := newExtensionHarness(t)
	issue := h.seedIssuedLoan(t, uuid.New(), h.now.AddDate(0, 0, 3))

	_, err := h.svc.Create(context.Background(), student(), CreateRequest{IssueID: issue.ID, Days: 7})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestService_ApprovePushesDueDateAndZeroesFine(t *testing.T) {
	h := newExtensionHarness(t)
	actor := student()
	// Five days overdue with an accrued fine of 25.
	due := h.now.AddDate(0, 0, -5).Truncate(24 * time.Hour)
	issue := h.seedIssuedLoan(t, actor.UserID, due)
	require.NoError(t, h.fines.UpsertForIssue(context.Background(), issue.ID, decimal.NewFromInt(25)))

	request, err := h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 10})
	require.NoError(t, err)

	approved, err := h.svc.Approve(context.Background(), staff(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ExtensionStatusApproved, approved.Status)
	require.NotNil(t, approved.ProcessedAt)
	require.NotNil(t, approved.ProcessedBy)

	var current models.BookIssue
	require.NoError(t, h.db.First(&current, "id = ?", issue.ID).Error)
	require.NotNil(t, current.DueDate)
	assert.True(t, current.DueDate.Equal(due.AddDate(0, 0, 10)))

	// The fine is recomputed against the new due date, replacing the old
	// amount instead of adding to it.
	fine, err := h.fines.FindByIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.True(t, fine.Amount.IsZero(), "expected zeroed fine, got %s", fine.Amount)

	require.Len(t, h.notifier.users, 1)
	assert.Equal(t, actor.UserID, h.notifier.users[0])
}

func TestService_ApproveStillOverdueReplacesFine(t *testing.T) {
	h := newExtensionHarness(t)
	actor := student()
	// Ten days overdue; a 4 day extension leaves 6 days over at 5 per day.
	due := h.now.AddDate(0, 0, -10).Truncate(24 * time.Hour)
	issue := h.seedIssuedLoan(t, actor.UserID, due)
	require.NoError(t, h.fines.UpsertForIssue(context.Background(), issue.ID, decimal.NewFromInt(50)))

	request, err := h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 4})
	require.NoError(t, err)
	_, err = h.svc.Approve(context.Background(), staff(), request.ID)
	require.NoError(t, err)

	fine, err := h.fines.FindByIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.True(t, fine.Amount.Equal(decimal.NewFromInt(30)), "expected 30, got %s", fine.Amount)
}

func TestService_ApproveIsOneShot(t *testing.T) {
	h := newExtensionHarness(t)
	actor := student()
	issue := h.seedIssuedLoan(t, actor.UserID, h.now.AddDate(0, 0, 3))

	request, err := h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 7})
	require.NoError(t, err)

	_, err = h.svc.Approve(context.Background(), staff(), request.ID)
	require.NoError(t, err)

	_, err = h.svc.Approve(context.Background(), staff(), request.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestService_RejectLeavesLoanUntouched(t *testing.T) {
	h := newExtensionHarness(t)
	actor := student()
	due := h.now.AddDate(0, 0, 3).Truncate(24 * time.Hour)
	issue := h.seedIssuedLoan(t, actor.UserID, due)

	request, err := h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 7})
	require.NoError(t, err)

	rejected, err := h.svc.Reject(context.Background(), staff(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ExtensionStatusRejected, rejected.Status)

	var current models.BookIssue
	require.NoError(t, h.db.First(&current, "id = ?", issue.ID).Error)
	require.NotNil(t, current.DueDate)
	assert.True(t, current.DueDate.Equal(due))
}

func TestService_ApproveRequiresStaff(t *testing.T) {
	h := newExtensionHarness(t)
	actor := student()
	issue := h.seedIssuedLoan(t, actor.UserID, h.now.AddDate(0, 0, 3))
	request, err := h.svc.Create(context.Background(), actor, CreateRequest{IssueID: issue.ID, Days: 7})
	require.NoError(t, err)

	_, err = h.svc.Approve(context.Background(), actor, request.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}
