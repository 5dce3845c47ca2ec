package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librarium/librarium-backend/internal/catalog"
	"github.com/librarium/librarium-backend/internal/fines"
	"github.com/librarium/librarium-backend/internal/loans"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
)

const (
	topBooksLimit  = 5
	activityMonths = 6
)

type bookCatalog interface {
	CountBooks(ctx context.Context) (int64, error)
	CategoryDistribution(ctx context.Context) ([]catalog.CategoryCount, error)
}

type loanLedger interface {
	CountByStatus(ctx context.Context, status enums.IssueStatus) (int64, error)
	CountOverdue(ctx context.Context, today time.Time) (int64, error)
	CountForUser(ctx context.Context, userID uuid.UUID, statuses []enums.IssueStatus) (int64, error)
	TopBooks(ctx context.Context, limit int) ([]loans.BookIssueCount, error)
	CreatedSince(ctx context.Context, since time.Time) ([]models.BookIssue, error)
}

type fineLedger interface {
	Totals(ctx context.Context) (fines.Totals, error)
	PendingAmountForUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type userDirectory interface {
	CountActive(ctx context.Context, role enums.Role) (int64, error)
}

type reservationQueue interface {
	CountActiveForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationInbox interface {
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

// AdminStats is the staff dashboard snapshot.
type AdminStats struct {
	TotalBooks     int64                   `json:"total_books"`
	ActiveStudents int64                   `json:"active_students"`
	IssuedLoans    int64                   `json:"issued_loans"`
	OverdueLoans   int64                   `json:"overdue_loans"`
	Fines          fines.Totals            `json:"fines"`
	TopBooks       []loans.BookIssueCount  `json:"top_books"`
	MonthlyIssues  []MonthBucket           `json:"monthly_issues"`
	Categories     []catalog.CategoryCount `json:"categories"`
}

// MonthBucket is one month of loan activity.
type MonthBucket struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// StudentStats is the borrower's own dashboard snapshot.
type StudentStats struct {
	ActiveLoans         int64           `json:"active_loans"`
	TotalLoans          int64           `json:"total_loans"`
	PendingFines        decimal.Decimal `json:"pending_fines"`
	ActiveReservations  int64           `json:"active_reservations"`
	UnreadNotifications int64           `json:"unread_notifications"`
}

// Service aggregates dashboard statistics from the domain ledgers.
type Service interface {
	AdminStats(ctx context.Context, actor authz.Actor) (*AdminStats, error)
	StudentStats(ctx context.Context, actor authz.Actor) (*StudentStats, error)
}

// ServiceParams bundles the dashboard service dependencies.
type ServiceParams struct {
	Books         bookCatalog
	Loans         loanLedger
	Fines         fineLedger
	Users         userDirectory
	Reservations  reservationQueue
	Notifications notificationInbox
	Logger        *logger.Logger
}

type service struct {
	books         bookCatalog
	loans         loanLedger
	fines         fineLedger
	users         userDirectory
	reservations  reservationQueue
	notifications notificationInbox
	logg          *logger.Logger
	now           func() time.Time
}

// NewService wires the dashboard aggregation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Books == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	if params.Loans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "loans repository required")
	}
	if params.Fines == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fines repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Reservations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reservations repository required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{
		books:         params.Books,
		loans:         params.Loans,
		fines:         params.Fines,
		users:         params.Users,
		reservations:  params.Reservations,
		notifications: params.Notifications,
		logg:          params.Logger,
		now:           time.Now,
	}, nil
}

func (s *service) AdminStats(ctx context.Context, actor authz.Actor) (*AdminStats, error) {
	if err := authz.Require(actor, authz.ResourceDashboard, authz.ActionProcess); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	stats := &AdminStats{}

	var err error
	if stats.TotalBooks, err = s.books.CountBooks(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count books")
	}
	if stats.ActiveStudents, err = s.users.CountActive(ctx, enums.RoleStudent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count students")
	}
	if stats.IssuedLoans, err = s.loans.CountByStatus(ctx, enums.IssueStatusIssued); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count issued loans")
	}
	if stats.OverdueLoans, err = s.loans.CountOverdue(ctx, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count overdue loans")
	}
	if stats.Fines, err = s.fines.Totals(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate fines")
	}
	if stats.TopBooks, err = s.loans.TopBooks(ctx, topBooksLimit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank books")
	}
	if stats.MonthlyIssues, err = s.monthlyIssues(ctx, now); err != nil {
		return nil, err
	}
	if stats.Categories, err = s.books.CategoryDistribution(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "category distribution")
	}
	return stats, nil
}

func (s *service) StudentStats(ctx context.Context, actor authz.Actor) (*StudentStats, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	stats := &StudentStats{PendingFines: decimal.Zero}

	var err error
	if stats.ActiveLoans, err = s.loans.CountForUser(ctx, actor.UserID, []enums.IssueStatus{enums.IssueStatusIssued}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active loans")
	}
	if stats.TotalLoans, err = s.loans.CountForUser(ctx, actor.UserID, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count loans")
	}
	if stats.PendingFines, err = s.fines.PendingAmountForUser(ctx, actor.UserID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum pending fines")
	}
	if stats.ActiveReservations, err = s.reservations.CountActiveForUser(ctx, actor.UserID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count reservations")
	}
	if stats.UnreadNotifications, err = s.notifications.CountUnread(ctx, actor.UserID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return stats, nil
}

// monthlyIssues buckets loan creation into calendar months, padding empty
// months so the series always spans the full window.
func (s *service) monthlyIssues(ctx context.Context, now time.Time) ([]MonthBucket, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(activityMonths - 1), 0)

	issues, err := s.loans.CreatedSince(ctx, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan activity")
	}

	buckets := make(map[string]*MonthBucket, activityMonths)
	for i := 0; i < activityMonths; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		buckets[month] = &MonthBucket{Month: month}
	}
	for _, issue := range issues {
		month := issue.CreatedAt.UTC().Format("2006-01")
		if bucket, ok := buckets[month]; ok {
			bucket.Count++
		}
	}

	series := make([]MonthBucket, 0, activityMonths)
	for _, bucket := range buckets {
		series = append(series, *bucket)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
	return series, nil
}
