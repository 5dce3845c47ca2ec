package suggestions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
)

type recordingNotifier struct {
	users    []uuid.UUID
	messages []string
}

func (r *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, message string, category enums.NotificationCategory, targetURL string) {
	r.users = append(r.users, userID)
	r.messages = append(r.messages, message)
}

func setupSuggestionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS book_suggestions (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  author TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  reason TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'PENDING',
  created_by TEXT NOT NULL,
  admin_note TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newSuggestionService(t *testing.T) (Service, *recordingNotifier, *gorm.DB) {
	t.Helper()
	db := setupSuggestionsTestDB(t)
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{Repo: NewRepository(db), Notifier: notifier})
	require.NoError(t, err)
	return svc, notifier, db
}

func staff() authz.Actor   { return authz.Actor{UserID: uuid.New(), Role: enums.RoleAdmin} }
func student() authz.Actor { return authz.Actor{UserID: uuid.New(), Role: enums.RoleStudent} }

func TestService_CreateSuggestion(t *testing.T) {
	svc, _, _ := newSuggestionService(t)
	actor := student()

	suggestion, err := svc.Create(context.Background(), actor, CreateRequest{
		Title:  "  The Pragmatic Programmer ",
		Author: "Hunt",
		Reason: "course reading",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SuggestionStatusPending, suggestion.Status)
	assert.Equal(t, "The Pragmatic Programmer", suggestion.Title)
	assert.Equal(t, actor.UserID, suggestion.CreatedBy)
}

func TestService_CreateRequiresTitleAndAuthor(t *testing.T) {
	svc, _, _ := newSuggestionService(t)

	_, err := svc.Create(context.Background(), student(), CreateRequest{Author: "Hunt"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(context.Background(), student(), CreateRequest{Title: "Book"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestService_ApproveNotifiesSubmitter(t *testing.T) {
	svc, notifier, _ := newSuggestionService(t)
	actor := student()

	suggestion, err := svc.Create(context.Background(), actor, CreateRequest{Title: "Book", Author: "Hunt"})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), staff(), suggestion.ID, "ordering a copy")
	require.NoError(t, err)
	assert.Equal(t, enums.SuggestionStatusApproved, approved.Status)
	assert.Equal(t, "ordering a copy", approved.AdminNote)
	require.Len(t, notifier.users, 1)
	assert.Equal(t, actor.UserID, notifier.users[0])
}

func TestService_RejectIsTerminal(t *testing.T) {
	svc, _, _ := newSuggestionService(t)

	suggestion, err := svc.Create(context.Background(), student(), CreateRequest{Title: "Book", Author: "Hunt"})
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), staff(), suggestion.ID, "out of scope")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), staff(), suggestion.ID, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	_, err = svc.MarkAdded(context.Background(), staff(), suggestion.ID, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestService_MarkAddedFromPendingOrApproved(t *testing.T) {
	svc, _, _ := newSuggestionService(t)

	direct, err := svc.Create(context.Background(), student(), CreateRequest{Title: "Direct", Author: "Hunt"})
	require.NoError(t, err)
	added, err := svc.MarkAdded(context.Background(), staff(), direct.ID, "already in stock")
	require.NoError(t, err)
	assert.Equal(t, enums.SuggestionStatusAdded, added.Status)

	staged, err := svc.Create(context.Background(), student(), CreateRequest{Title: "Staged", Author: "Hunt"})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), staff(), staged.ID, "")
	require.NoError(t, err)
	added, err = svc.MarkAdded(context.Background(), staff(), staged.ID, "shelved")
	require.NoError(t, err)
	assert.Equal(t, enums.SuggestionStatusAdded, added.Status)
}

func TestService_ProcessRequiresStaff(t *testing.T) {
	svc, _, _ := newSuggestionService(t)
	actor := student()

	suggestion, err := svc.Create(context.Background(), actor, CreateRequest{Title: "Book", Author: "Hunt"})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), actor, suggestion.ID, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestService_ListScopesStudentsToSelf(t *testing.T) {
	svc, _, _ := newSuggestionService(t)
	alice := student()

	_, err := svc.Create(context.Background(), alice, CreateRequest{Title: "Mine", Author: "Hunt"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), student(), CreateRequest{Title: "Theirs", Author: "Hunt"})
	require.NoError(t, err)

	mine, err := svc.List(context.Background(), alice, ListParams{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "Mine", mine.Items[0].Title)

	all, err := svc.List(context.Background(), staff(), ListParams{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
