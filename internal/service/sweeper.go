package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SweepLockName is the distributed lock held while a sweep runs.
const SweepLockName = "sweep:delayed-trips"

// Locker grants a named lock to a single process at a time.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// DelayedTripSweeper periodically marks overdue PLANNED trips as DELAYED.
// With a Locker only one instance sweeps per tick.
type DelayedTripSweeper struct {
	scheduler *TripScheduler
	locker    Locker
	interval  time.Duration
	lockTTL   time.Duration
	logger    logrus.FieldLogger
}

// NewDelayedTripSweeper creates a new DelayedTripSweeper. locker may be nil.
func NewDelayedTripSweeper(scheduler *TripScheduler, locker Locker, interval, lockTTL time.Duration, logger logrus.FieldLogger) *DelayedTripSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = interval
	}
	return &DelayedTripSweeper{
		scheduler: scheduler,
		locker:    locker,
		interval:  interval,
		lockTTL:   lockTTL,
		logger:    logger,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *DelayedTripSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("Delayed trip sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Delayed trip sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).Error("Delayed trip sweep failed")
			}
		}
	}
}

// SweepOnce runs a single sweep. It returns the number of trips marked, or
// zero when another instance holds the lock.
func (s *DelayedTripSweeper) SweepOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		ok, err := s.locker.AcquireLock(ctx, SweepLockName, s.lockTTL)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		defer func() {
			if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), SweepLockName); err != nil {
				s.logger.WithError(err).Warn("Failed to release sweep lock")
			}
		}()
	}

	ids, err := s.scheduler.MarkDelayed(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
