package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/librarium/librarium-backend/pkg/logger"
)

type fakeReservationSweeper struct {
	expired int
	err     error
	lastNow time.Time
	calls   int
}

func (f *fakeReservationSweeper) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	f.calls++
	f.lastNow = now
	return f.expired, f.err
}

func TestReservationExpiryJobSweeps(t *testing.T) {
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	sweeper := &fakeReservationSweeper{expired: 3}
	job := newReservationExpiryJob(t, sweeper)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected 1 sweep, got %d", sweeper.calls)
	}
	if !sweeper.lastNow.Equal(now) {
		t.Fatalf("expected sweep at %s, got %s", now, sweeper.lastNow)
	}
}

func TestReservationExpiryJobPropagatesErrors(t *testing.T) {
	sweeper := &fakeReservationSweeper{err: errors.New("boom")}
	job := newReservationExpiryJob(t, sweeper)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newReservationExpiryJob(t *testing.T, sweeper *fakeReservationSweeper) *reservationExpiryJob {
	t.Helper()
	jobIface, err := NewReservationExpiryJob(ReservationExpiryJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		Reservations: sweeper,
	})
	if err != nil {
		t.Fatalf("NewReservationExpiryJob: %v", err)
	}
	job, ok := jobIface.(*reservationExpiryJob)
	if !ok {
		t.Fatalf("expected reservationExpiryJob, got %T", jobIface)
	}
	return job
}
