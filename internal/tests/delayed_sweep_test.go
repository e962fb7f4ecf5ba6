package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// 7. DELAYED TRIPS AND RESCHEDULING
// ──────────────────────────────────────────────

func newSweeper(f *fixture, locker service.Locker) *service.DelayedTripSweeper {
	logger, _ := test.NewNullLogger()
	return service.NewDelayedTripSweeper(f.engine.Scheduler, locker, time.Minute, time.Minute, logger)
}

func TestSweep_MarksOverduePlannedTrips(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	overdue, err := f.engine.Scheduler.Create(ctx, service.CreateTripRequest{
		TruckID: "truck-1", DriverID: "driver-1", Origin: "A", Destination: "B",
		StartDate: baseTime.Add(time.Hour), EndDate: baseTime.Add(5 * time.Hour),
	})
	require.NoError(t, err)
	future, err := f.engine.Scheduler.Create(ctx, service.CreateTripRequest{
		TruckID: "tractor-1", DriverID: "driver-2", Origin: "A", Destination: "B",
		StartDate: baseTime.Add(24 * time.Hour), EndDate: baseTime.Add(30 * time.Hour),
	})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	locks := NewMockLockStore()
	sweeper := newSweeper(f, locks)

	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, locks.IsLocked(service.SweepLockName))
	assert.Equal(t, int32(1), locks.ReleaseCallCount)

	got, err := f.engine.Scheduler.Get(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusDelayed, got.Status)

	got, err = f.engine.Scheduler.Get(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusPlanned, got.Status)

	// Idempotent.
	n, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, f.notifier.CountType(domain.EventTripDelayed))
}

func TestSweep_SkipsWhenLockHeldElsewhere(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	trip, err := f.createTrip("truck-1", "driver-1", "")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	locks := NewMockLockStore()
	locks.ForceAcquireFailure = true

	n, err := newSweeper(f, locks).SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int32(0), locks.ReleaseCallCount)

	got, err := f.engine.Scheduler.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusPlanned, got.Status)
}

func TestSweep_LockErrorIsReturned(t *testing.T) {
	t.Parallel()
	f := newFixture()

	locks := NewMockLockStore()
	locks.AcquireError = errors.New("redis down")

	_, err := newSweeper(f, locks).SweepOnce(context.Background())
	require.Error(t, err)
}

func TestSweep_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	f := newFixture()

	logger, hook := test.NewNullLogger()
	sweeper := service.NewDelayedTripSweeper(f.engine.Scheduler, nil, 10*time.Millisecond, 0, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "Delayed trip sweeper stopped", hook.LastEntry().Message)
}

func TestDelayedTrip_CanStillStartOrCancel(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	toStart, err := f.createTrip("truck-1", "driver-1", "")
	require.NoError(t, err)
	toCancel, err := f.createTrip("tractor-1", "driver-2", "trailer-1")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	ids, err := f.engine.Scheduler.MarkDelayed(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{toStart.ID, toCancel.ID}, ids)

	started, err := f.engine.Trips.Start(ctx, service.StartRequest{TripID: toStart.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusInProgress, started.Status)

	cancelled, err := f.engine.Trips.Cancel(ctx, toCancel.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCancelled, cancelled.Status)
}

func TestReschedule_DelayedTripBackToPlanned(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	trip, err := f.createTrip("truck-1", "driver-1", "")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.engine.Scheduler.MarkDelayed(ctx)
	require.NoError(t, err)

	start := f.clock.Now().Add(2 * time.Hour)
	end := start.Add(24 * time.Hour)
	updated, err := f.engine.Scheduler.Reschedule(ctx, service.RescheduleRequest{
		TripID: trip.ID, StartDate: &start, EndDate: &end,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusPlanned, updated.Status)
	assert.True(t, updated.StartDate.Equal(start))
	assert.True(t, updated.EndDate.Equal(end))
}

func TestReschedule_ConflictKeepsOriginalPlan(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	first, err := f.createTrip("truck-1", "driver-1", "")
	require.NoError(t, err)

	laterStart := baseTime.Add(72 * time.Hour)
	laterEnd := baseTime.Add(96 * time.Hour)
	second, err := f.engine.Scheduler.Create(ctx, service.CreateTripRequest{
		TruckID: "truck-1", DriverID: "driver-2", Origin: "A", Destination: "B",
		StartDate: laterStart, EndDate: laterEnd,
	})
	require.NoError(t, err)

	// Moving the second trip onto the first one's window is rejected.
	_, err = f.engine.Scheduler.Reschedule(ctx, service.RescheduleRequest{TripID: second.ID, StartDate: &baseTime})
	require.ErrorIs(t, err, service.ErrConflict)

	got, err := f.engine.Scheduler.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(laterStart))

	// A trip never conflicts with itself.
	newEnd := baseTime.Add(60 * time.Hour)
	_, err = f.engine.Scheduler.Reschedule(ctx, service.RescheduleRequest{TripID: first.ID, EndDate: &newEnd})
	require.NoError(t, err)
}

func TestReschedule_StartedTrip_InvalidStatus(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	trip, err := f.createTrip("truck-1", "driver-1", "")
	require.NoError(t, err)
	_, err = f.engine.Trips.Start(ctx, service.StartRequest{TripID: trip.ID})
	require.NoError(t, err)

	notes := "late"
	_, err = f.engine.Scheduler.Reschedule(ctx, service.RescheduleRequest{TripID: trip.ID, Notes: &notes})
	require.ErrorIs(t, err, service.ErrInvalidStatus)
}
