package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

const activityWindowDays = 7

// Actor identifies who performed an audited action. Username is snapshotted
// into the row so the trail survives user deletion.
type Actor struct {
	UserID   *uuid.UUID
	Username string
}

// Recorder is the best-effort sink the rest of the system records through.
// Failures are logged and swallowed; auditing never aborts an operation.
type Recorder interface {
	Record(ctx context.Context, actor Actor, action enums.AuditAction, details, ip string)
}

// Service exposes the audit trail read side plus the Recorder sink.
type Service interface {
	Recorder
	List(ctx context.Context, params ListParams) (*ListResult, error)
	ActivitySeries(ctx context.Context, now time.Time) ([]ActivityBucket, error)
}

// ListParams filters and paginates the audit listing.
type ListParams struct {
	UserID *uuid.UUID
	Action *enums.AuditAction
	Limit  int
	Cursor string
}

// ListResult wraps returned entries and the cursor for the next page.
type ListResult struct {
	Items  []models.AuditLog `json:"items"`
	Cursor string            `json:"cursor"`
}

// ActivityBucket is one day of the dashboard activity series.
type ActivityBucket struct {
	Day    string `json:"day"`
	Logins int64  `json:"logins"`
	Other  int64  `json:"other"`
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// ServiceParams bundles audit dependencies.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// NewService wires the audit service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit repository required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Record(ctx context.Context, actor Actor, action enums.AuditAction, details, ip string) {
	if !action.IsValid() {
		action = enums.AuditActionOther
	}
	username := strings.TrimSpace(actor.Username)
	if username == "" {
		username = "anonymous"
	}

	entry := &models.AuditLog{
		UserID:   actor.UserID,
		Username: username,
		Action:   action,
		Details:  details,
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	if err := s.repo.Create(ctx, entry); err != nil && s.logg != nil {
		s.logg.Error(ctx, "audit write failed", err)
	}
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listAuditParams{
		UserID: params.UserID,
		Action: params.Action,
		Limit:  params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// ActivitySeries buckets the last seven days of audit entries into logins vs
// other actions, oldest day first. Days with no activity still appear.
func (s *service) ActivitySeries(ctx context.Context, now time.Time) ([]ActivityBucket, error) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(activityWindowDays - 1))

	entries, err := s.repo.EntriesSince(ctx, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load audit activity")
	}

	buckets := make([]ActivityBucket, activityWindowDays)
	index := make(map[string]int, activityWindowDays)
	for i := 0; i < activityWindowDays; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i] = ActivityBucket{Day: day}
		index[day] = i
	}

	for _, entry := range entries {
		day := entry.CreatedAt.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			continue
		}
		if entry.Action == enums.AuditActionLogin {
			buckets[i].Logins++
		} else {
			buckets[i].Other++
		}
	}
	return buckets, nil
}
