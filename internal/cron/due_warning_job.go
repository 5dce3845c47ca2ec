package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/librarium/librarium-backend/internal/notifications"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	"github.com/librarium/librarium-backend/pkg/logger"
)

type dueLoanSource interface {
	ListDueOn(ctx context.Context, day time.Time) ([]models.BookIssue, error)
	ListOverdue(ctx context.Context, today time.Time) ([]models.BookIssue, error)
}

// DueWarningJobParams configure the due date warning job.
type DueWarningJobParams struct {
	Logger   *logger.Logger
	Loans    dueLoanSource
	Notifier notifications.Notifier
}

// NewDueWarningJob notifies borrowers whose loans are due today or already
// overdue. The job writes notifications only; fines are computed at return.
func NewDueWarningJob(params DueWarningJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loans == nil {
		return nil, fmt.Errorf("loan source required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &dueWarningJob{
		logg:     params.Logger,
		loans:    params.Loans,
		notifier: params.Notifier,
		now:      time.Now,
	}, nil
}

type dueWarningJob struct {
	logg     *logger.Logger
	loans    dueLoanSource
	notifier notifications.Notifier
	now      func() time.Time
}

func (j *dueWarningJob) Name() string { return "due-warnings" }

func (j *dueWarningJob) Run(ctx context.Context) error {
	today := j.now().UTC()

	var warned, overdueCount int
	var runErr error

	dueToday, err := j.loans.ListDueOn(ctx, today)
	if err != nil {
		runErr = multierr.Append(runErr, fmt.Errorf("list due loans: %w", err))
	} else {
		for i := range dueToday {
			j.notifier.Notify(ctx, dueToday[i].UserID,
				fmt.Sprintf("%q is due today. Return or request an extension to avoid fines.", bookTitle(&dueToday[i])),
				enums.NotificationCategoryIssue, "/loans")
			warned++
		}
	}

	overdue, err := j.loans.ListOverdue(ctx, today)
	if err != nil {
		runErr = multierr.Append(runErr, fmt.Errorf("list overdue loans: %w", err))
	} else {
		for i := range overdue {
			j.notifier.Notify(ctx, overdue[i].UserID,
				fmt.Sprintf("%q is overdue. Fines accrue daily until it is returned.", bookTitle(&overdue[i])),
				enums.NotificationCategoryIssue, "/loans")
			overdueCount++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due_today": warned,
		"overdue":   overdueCount,
	})
	if runErr != nil {
		return fmt.Errorf("due warnings: %w", runErr)
	}
	j.logg.Info(logCtx, "due warning sweep complete")
	return nil
}

func bookTitle(issue *models.BookIssue) string {
	if issue.Book != nil {
		return issue.Book.Title
	}
	return "your borrowed book"
}
