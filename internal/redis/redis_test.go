package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLockStore_AcquireRelease(t *testing.T) {
	mr, client := newTestClient(t)
	locks := NewLockStore(client)
	ctx := context.Background()

	ok, err := locks.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lock:sweep"))

	ok, err = locks.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the lock is held")

	require.NoError(t, locks.ReleaseLock(ctx, "sweep"))
	ok, err = locks.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockStore_ReleaseKeepsForeignLock(t *testing.T) {
	mr, client := newTestClient(t)
	mine := NewLockStore(client)
	other := NewLockStore(client)
	ctx := context.Background()

	ok, err := mine.AcquireLock(ctx, "sweep", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// Our lock expires and another instance takes it over.
	mr.FastForward(11 * time.Second)
	ok, err = other.AcquireLock(ctx, "sweep", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, mine.ReleaseLock(ctx, "sweep"))
	assert.True(t, mr.Exists("lock:sweep"))

	require.NoError(t, other.ReleaseLock(ctx, "sweep"))
	assert.False(t, mr.Exists("lock:sweep"))
}

func TestLockStore_Expires(t *testing.T) {
	mr, client := newTestClient(t)
	locks := NewLockStore(client)
	ctx := context.Background()

	ok, err := locks.AcquireLock(ctx, "sweep", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	ok, err = locks.AcquireLock(ctx, "sweep", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockStore_RedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	locks := NewLockStore(client)
	mr.Close()

	_, err := locks.AcquireLock(context.Background(), "sweep", time.Minute)
	require.Error(t, err)
}

func TestCacheStore_DieselPrice(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewCacheStore(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.GetDieselPrice(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetDieselPrice(ctx, 6.19))
	price, ok, err := cache.GetDieselPrice(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 6.19, price)
	assert.Equal(t, time.Minute, mr.TTL(dieselPriceKey))

	require.NoError(t, cache.InvalidateDieselPrice(ctx))
	_, ok, err = cache.GetDieselPrice(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheStore_DieselPriceCorrupt(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewCacheStore(client, 0)
	require.NoError(t, mr.Set(dieselPriceKey, "cheap"))

	_, _, err := cache.GetDieselPrice(context.Background())
	require.Error(t, err)
}

func TestCacheStore_Trips(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewCacheStore(client, 0)
	ctx := context.Background()

	got, err := cache.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	start := 1000.0
	trip := &domain.Trip{
		ID:           "trip-1",
		Code:         "TRP-0000TRIP",
		Status:       domain.TripStatusInProgress,
		TruckID:      "truck-1",
		StartDate:    time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC),
		StartMileage: &start,
		Legs: []domain.Leg{
			{ID: "leg-1", TripID: "trip-1", Seq: 1, Kind: domain.LegWaitLoading, Status: domain.LegStatusPaused, StartMileage: 1000},
		},
	}
	other := &domain.Trip{ID: "trip-2", Status: domain.TripStatusPlanned}
	stored, err := cache.SetTrip(ctx, trip, 0)
	require.NoError(t, err)
	assert.True(t, stored)
	_, err = cache.SetTrip(ctx, other, 0)
	require.NoError(t, err)
	assert.Equal(t, TripCacheTTL, mr.TTL(tripCachePrefix+"trip-1"))

	got, err = cache.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, trip.Code, got.Code)
	assert.True(t, got.IsPaused())
	assert.Equal(t, domain.LegWaitLoading, got.Legs[0].Kind)
	require.NotNil(t, got.StartMileage)
	assert.Equal(t, 1000.0, *got.StartMileage)

	require.NoError(t, cache.InvalidateTrips(ctx, "trip-1", "trip-2"))
	assert.False(t, mr.Exists(tripCachePrefix+"trip-1"))
	assert.False(t, mr.Exists(tripCachePrefix+"trip-2"))
	require.NoError(t, cache.InvalidateTrips(ctx))
}

func TestCacheStore_StaleSnapshotAfterInvalidation(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewCacheStore(client, 0)
	ctx := context.Background()

	// A reader takes the version, then loads the PLANNED trip from the store.
	version, err := cache.TripVersion(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
	stale := &domain.Trip{ID: "trip-1", Status: domain.TripStatusPlanned}

	// A start commits and invalidates before the reader writes back.
	require.NoError(t, cache.InvalidateTrips(ctx, "trip-1"))
	assert.Equal(t, tripVersionTTL, mr.TTL(tripVerPrefix+"trip-1"))

	stored, err := cache.SetTrip(ctx, stale, version)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists(tripCachePrefix+"trip-1"))

	got, err := cache.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The next reader sees the new version and may cache.
	version, err = cache.TripVersion(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	fresh := &domain.Trip{ID: "trip-1", Status: domain.TripStatusInProgress}
	stored, err = cache.SetTrip(ctx, fresh, version)
	require.NoError(t, err)
	assert.True(t, stored)

	got, err = cache.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.TripStatusInProgress, got.Status)
}
