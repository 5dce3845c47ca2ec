package fines

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	paginationpkg "github.com/librarium/librarium-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	fines map[uuid.UUID]*models.Fine

	payments []*models.FinePayment
	since    []models.FinePayment
	totals   Totals
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{fines: map[uuid.UUID]*models.Fine{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Find(ctx context.Context, id uuid.UUID) (*models.Fine, error) {
	fine, ok := f.fines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return fine, nil
}

func (f *fakeRepository) FindByIssue(ctx context.Context, issueID uuid.UUID) (*models.Fine, error) {
	for _, fine := range f.fines {
		if fine.IssueID == issueID {
			return fine, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpsertForIssue(ctx context.Context, issueID uuid.UUID, amount decimal.Decimal) error {
	for _, fine := range f.fines {
		if fine.IssueID == issueID {
			fine.Amount = amount
			return nil
		}
	}
	if !amount.IsPositive() {
		return nil
	}
	fine := &models.Fine{ID: uuid.New(), IssueID: issueID, Amount: amount}
	f.fines[fine.ID] = fine
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listFinesParams) ([]models.Fine, *paginationpkg.Cursor, error) {
	var out []models.Fine
	for _, fine := range f.fines {
		if params.UserID != nil && (fine.Issue == nil || fine.Issue.UserID != *params.UserID) {
			continue
		}
		out = append(out, *fine)
	}
	return out, nil, nil
}

func (f *fakeRepository) MarkPaid(ctx context.Context, fineID uuid.UUID) (bool, error) {
	fine, ok := f.fines[fineID]
	if !ok || fine.Paid {
		return false, nil
	}
	fine.Paid = true
	return true, nil
}

func (f *fakeRepository) CreatePayment(ctx context.Context, payment *models.FinePayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakeRepository) ListPayments(ctx context.Context, params listPaymentsParams) ([]models.FinePayment, *paginationpkg.Cursor, error) {
	var out []models.FinePayment
	for _, payment := range f.payments {
		if params.UserID != nil && payment.UserID != *params.UserID {
			continue
		}
		out = append(out, *payment)
	}
	return out, nil, nil
}

func (f *fakeRepository) Totals(ctx context.Context) (Totals, error) {
	return f.totals, nil
}

func (f *fakeRepository) PaymentsSince(ctx context.Context, since time.Time) ([]models.FinePayment, error) {
	return f.since, nil
}

func (f *fakeRepository) PendingAmountForUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, fine := range f.fines {
		if fine.Paid || fine.Issue == nil || fine.Issue.UserID != userID {
			continue
		}
		total = total.Add(fine.Amount)
	}
	return total, nil
}

type recordingNotifier struct {
	messages []string
	users    []uuid.UUID
}

func (r *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, message string, category enums.NotificationCategory, targetURL string) {
	r.users = append(r.users, userID)
	r.messages = append(r.messages, message)
}

func newTestService(t *testing.T, repo Repository, notifier *recordingNotifier) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{DB: stubTxRunner{}, Repo: repo, Notifier: notifier})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedFine(repo *fakeRepository, owner uuid.UUID, amount decimal.Decimal) *models.Fine {
	fine := &models.Fine{
		ID:      uuid.New(),
		IssueID: uuid.New(),
		Amount:  amount,
		Issue:   &models.BookIssue{UserID: owner},
	}
	repo.fines[fine.ID] = fine
	return fine
}

func TestService_RecordPaymentSettlesFine(t *testing.T) {
	repo := newFakeRepository()
	notifier := &recordingNotifier{}
	svc := newTestService(t, repo, notifier)

	owner := uuid.New()
	fine := seedFine(repo, owner, decimal.NewFromInt(25))
	actor := authz.Actor{UserID: owner, Role: enums.RoleStudent}

	payment, err := svc.RecordPayment(context.Background(), actor, PaymentRequest{FineID: fine.ID})
	if err != nil {
		t.Fatalf("unexpected payment error: %v", err)
	}
	if !payment.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected full settlement, got %s", payment.Amount)
	}
	if payment.Status != enums.PaymentStatusPaid {
		t.Fatalf("expected PAID status, got %s", payment.Status)
	}
	if payment.Reference == "" {
		t.Fatal("expected a generated receipt reference")
	}
	if !repo.fines[fine.ID].Paid {
		t.Fatal("expected fine marked paid")
	}
	if len(notifier.users) != 1 || notifier.users[0] != owner {
		t.Fatalf("expected payer notification, got %v", notifier.users)
	}
}

func TestService_RecordPaymentRejectsAlreadyPaid(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &recordingNotifier{})

	owner := uuid.New()
	fine := seedFine(repo, owner, decimal.NewFromInt(25))
	fine.Paid = true

	_, err := svc.RecordPayment(context.Background(), authz.Actor{UserID: owner, Role: enums.RoleStudent}, PaymentRequest{FineID: fine.ID})
	if err == nil {
		t.Fatal("expected error for settled fine")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatalf("expected no payment rows, got %d", len(repo.payments))
	}
}

func TestService_RecordPaymentRejectsZeroFine(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &recordingNotifier{})

	owner := uuid.New()
	fine := seedFine(repo, owner, decimal.Zero)

	_, err := svc.RecordPayment(context.Background(), authz.Actor{UserID: owner, Role: enums.RoleStudent}, PaymentRequest{FineID: fine.ID})
	if err == nil {
		t.Fatal("expected error for zero fine")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_RecordPaymentForbidsOtherStudents(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &recordingNotifier{})

	fine := seedFine(repo, uuid.New(), decimal.NewFromInt(5))
	stranger := authz.Actor{UserID: uuid.New(), Role: enums.RoleStudent}

	_, err := svc.RecordPayment(context.Background(), stranger, PaymentRequest{FineID: fine.ID})
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestService_RecordPaymentAllowsStaffOnBehalf(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &recordingNotifier{})

	owner := uuid.New()
	fine := seedFine(repo, owner, decimal.NewFromInt(12))
	admin := authz.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	payment, err := svc.RecordPayment(context.Background(), admin, PaymentRequest{FineID: fine.ID, Mode: "Cash"})
	if err != nil {
		t.Fatalf("unexpected payment error: %v", err)
	}
	if payment.UserID != owner {
		t.Fatalf("payment must be attributed to the fine owner, got %s", payment.UserID)
	}
	if payment.Mode != "Cash" {
		t.Fatalf("expected cash mode, got %s", payment.Mode)
	}
}

func TestService_ListScopesStudentsToSelf(t *testing.T) {
	owner := uuid.New()
	repo := newFakeRepository()
	seedFine(repo, owner, decimal.NewFromInt(5))
	seedFine(repo, uuid.New(), decimal.NewFromInt(9))

	svc := newTestService(t, repo, &recordingNotifier{})
	result, err := svc.List(context.Background(), authz.Actor{UserID: owner, Role: enums.RoleStudent}, ListParams{})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected own fine only, got %d", len(result.Items))
	}
}

func TestService_TotalsRequiresStaff(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), &recordingNotifier{})

	_, err := svc.Totals(context.Background(), authz.Actor{UserID: uuid.New(), Role: enums.RoleStudent})
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestService_MonthlyPaymentsBucketsByMonth(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	repo.since = []models.FinePayment{
		{Amount: decimal.NewFromInt(10), CreatedAt: time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)},
		{Amount: decimal.NewFromInt(5), CreatedAt: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: decimal.NewFromInt(7), CreatedAt: time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)},
	}

	svc := newTestService(t, repo, &recordingNotifier{})
	svc.(*service).now = func() time.Time { return now }

	series, err := svc.MonthlyPayments(context.Background(), authz.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, 3)
	if err != nil {
		t.Fatalf("unexpected series error: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(series))
	}
	if series[0].Month != "2026-01" || series[2].Month != "2026-03" {
		t.Fatalf("unexpected bucket order %+v", series)
	}
	if !series[0].Total.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected january total 10, got %s", series[0].Total)
	}
	if series[1].Count != 0 || !series[1].Total.IsZero() {
		t.Fatalf("expected empty february bucket, got %+v", series[1])
	}
	if !series[2].Total.Equal(decimal.NewFromInt(12)) || series[2].Count != 2 {
		t.Fatalf("expected march total 12 over 2 payments, got %+v", series[2])
	}
}
