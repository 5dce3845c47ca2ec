package reservations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
)

func setupReservationsTestDB(t *testing.T) *gorm.DB {
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
CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  book_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'QUEUED',
  position INTEGER NOT NULL DEFAULT 1,
  expires_at DATETIME,
  approved_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedBook(t *testing.T, db *gorm.DB, quantity, available int) *models.Book {
	t.Helper()
	author := &models.Author{ID: uuid.New(), Name: "Author " + uuid.NewString()[:8]}
	require.NoError(t, db.Create(author).Error)

	book := &models.Book{
		ID:             uuid.New(),
		ISBN:           uuid.NewString(),
		Title:          "Title " + uuid.NewString()[:8],
		AuthorID:       author.ID,
		Quantity:       quantity,
		AvailableCount: available,
	}
	require.NoError(t, db.Create(book).Error)
	// The model's default:1 tag makes gorm skip a zero AvailableCount on
	// insert, so force the column to the requested value.
	require.NoError(t, db.Model(book).UpdateColumn("available_count", available).Error)
	return book
}

func seedReservation(t *testing.T, db *gorm.DB, bookID uuid.UUID, position int, status enums.ReservationStatus, createdAt time.Time) *models.Reservation {
	t.Helper()
	reservation := &models.Reservation{
		ID:       uuid.New(),
		BookID:   bookID,
		UserID:   uuid.New(),
		Status:   status,
		Position: position,
	}
	require.NoError(t, db.Create(reservation).Error)
	require.NoError(t, db.Model(reservation).UpdateColumn("created_at", createdAt).Error)
	return reservation
}

func queuePositions(t *testing.T, db *gorm.DB, bookID uuid.UUID) map[uuid.UUID]int {
	t.Helper()
	var rows []models.Reservation
	require.NoError(t, db.
		Where("book_id = ? AND status = ?", bookID, enums.ReservationStatusQueued).
		Find(&rows).Error)
	positions := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		positions[row.ID] = row.Position
	}
	return positions
}

func TestRepositoryResequenceKeepsQueueDense(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, 1, 0)
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	first := seedReservation(t, db, book.ID, 1, enums.ReservationStatusQueued, base)
	second := seedReservation(t, db, book.ID, 2, enums.ReservationStatusQueued, base.Add(time.Hour))
	third := seedReservation(t, db, book.ID, 3, enums.ReservationStatusQueued, base.Add(2*time.Hour))

	moved, err := repo.Transition(ctx, second.ID, enums.ActiveReservationStatuses, enums.ReservationStatusCancelled, nil)
	require.NoError(t, err)
	require.True(t, moved)
	require.NoError(t, repo.Resequence(ctx, book.ID))

	positions := queuePositions(t, db, book.ID)
	assert.Equal(t, 1, positions[first.ID])
	assert.Equal(t, 2, positions[third.ID])
	assert.NotContains(t, positions, second.ID)
}

func TestRepositoryTransitionRejectsTerminalStates(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, 1, 0)
	reservation := seedReservation(t, db, book.ID, 1, enums.ReservationStatusCancelled, time.Now())

	moved, err := repo.Transition(ctx, reservation.ID, enums.ActiveReservationStatuses, enums.ReservationStatusExpired, nil)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestRepositoryHasActiveCountsQueuedAndApproved(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, 1, 0)
	reservation := seedReservation(t, db, book.ID, 1, enums.ReservationStatusApproved, time.Now())

	active, err := repo.HasActive(ctx, reservation.UserID, book.ID)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = repo.Transition(ctx, reservation.ID, enums.ActiveReservationStatuses, enums.ReservationStatusExpired, nil)
	require.NoError(t, err)

	active, err = repo.HasActive(ctx, reservation.UserID, book.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRepositoryListExpired(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	book := seedBook(t, db, 1, 0)
	stale := seedReservation(t, db, book.ID, 1, enums.ReservationStatusQueued, now.Add(-48*time.Hour))
	require.NoError(t, db.Model(stale).UpdateColumn("expires_at", past).Error)
	fresh := seedReservation(t, db, book.ID, 2, enums.ReservationStatusQueued, now.Add(-time.Hour))
	require.NoError(t, db.Model(fresh).UpdateColumn("expires_at", future).Error)

	expired, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
}
