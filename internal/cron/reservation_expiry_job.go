package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/librarium/librarium-backend/pkg/logger"
)

type reservationSweeper interface {
	ExpireSweep(ctx context.Context, now time.Time) (int, error)
}

// ReservationExpiryJobParams configure the reservation expiry job.
type ReservationExpiryJobParams struct {
	Logger       *logger.Logger
	Reservations reservationSweeper
}

// NewReservationExpiryJob closes reservations whose hold window has lapsed.
func NewReservationExpiryJob(params ReservationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation sweeper required")
	}
	return &reservationExpiryJob{
		logg:         params.Logger,
		reservations: params.Reservations,
		now:          time.Now,
	}, nil
}

type reservationExpiryJob struct {
	logg         *logger.Logger
	reservations reservationSweeper
	now          func() time.Time
}

func (j *reservationExpiryJob) Name() string { return "reservation-expiry" }

func (j *reservationExpiryJob) Run(ctx context.Context) error {
	expired, err := j.reservations.ExpireSweep(ctx, j.now().UTC())
	logCtx := j.logg.WithField(ctx, "reservations_expired", expired)
	if err != nil {
		return fmt.Errorf("reservation expiry: %w", err)
	}
	j.logg.Info(logCtx, "reservation expiry sweep complete")
	return nil
}
