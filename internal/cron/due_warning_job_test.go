package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	"github.com/librarium/librarium-backend/pkg/logger"
)

type fakeDueLoanSource struct {
	dueToday   []models.BookIssue
	overdue    []models.BookIssue
	dueErr     error
	overdueErr error
}

func (f *fakeDueLoanSource) ListDueOn(ctx context.Context, day time.Time) ([]models.BookIssue, error) {
	return f.dueToday, f.dueErr
}

func (f *fakeDueLoanSource) ListOverdue(ctx context.Context, today time.Time) ([]models.BookIssue, error) {
	return f.overdue, f.overdueErr
}

type capturingNotifier struct {
	userIDs    []uuid.UUID
	messages   []string
	categories []enums.NotificationCategory
}

func (c *capturingNotifier) Notify(ctx context.Context, userID uuid.UUID, message string, category enums.NotificationCategory, targetURL string) {
	c.userIDs = append(c.userIDs, userID)
	c.messages = append(c.messages, message)
	c.categories = append(c.categories, category)
}

func newDueWarningJob(t *testing.T, loans *fakeDueLoanSource, notifier *capturingNotifier) *dueWarningJob {
	t.Helper()
	jobIface, err := NewDueWarningJob(DueWarningJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Loans:    loans,
		Notifier: notifier,
	})
	if err != nil {
		t.Fatalf("NewDueWarningJob: %v", err)
	}
	job, ok := jobIface.(*dueWarningJob)
	if !ok {
		t.Fatalf("expected dueWarningJob, got %T", jobIface)
	}
	return job
}

func issueFor(userID uuid.UUID, title string) models.BookIssue {
	return models.BookIssue{
		ID:     uuid.New(),
		UserID: userID,
		Book:   &models.Book{Title: title},
	}
}

func TestDueWarningJobNotifiesBorrowers(t *testing.T) {
	today := uuid.New()
	late := uuid.New()
	loans := &fakeDueLoanSource{
		dueToday: []models.BookIssue{issueFor(today, "Dune")},
		overdue:  []models.BookIssue{issueFor(late, "Neuromancer")},
	}
	notifier := &capturingNotifier{}
	job := newDueWarningJob(t, loans, notifier)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(notifier.userIDs) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifier.userIDs))
	}
	if notifier.userIDs[0] != today || notifier.userIDs[1] != late {
		t.Fatalf("unexpected recipients %v", notifier.userIDs)
	}
	for _, category := range notifier.categories {
		if category != enums.NotificationCategoryIssue {
			t.Fatalf("unexpected category %s", category)
		}
	}
	if notifier.messages[0] == notifier.messages[1] {
		t.Fatal("due and overdue messages should differ")
	}
}

func TestDueWarningJobContinuesPastQueryFailure(t *testing.T) {
	late := uuid.New()
	loans := &fakeDueLoanSource{
		dueErr:  errors.New("boom"),
		overdue: []models.BookIssue{issueFor(late, "Neuromancer")},
	}
	notifier := &capturingNotifier{}
	job := newDueWarningJob(t, loans, notifier)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(notifier.userIDs) != 1 || notifier.userIDs[0] != late {
		t.Fatalf("expected overdue borrower still notified, got %v", notifier.userIDs)
	}
}
