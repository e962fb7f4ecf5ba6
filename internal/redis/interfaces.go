package redis

import (
	"context"
	"time"

	"fleet/internal/domain"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// CacheStoreInterface defines the interface for read caching.
type CacheStoreInterface interface {
	GetDieselPrice(ctx context.Context) (float64, bool, error)
	SetDieselPrice(ctx context.Context, price float64) error
	GetTrip(ctx context.Context, tripID string) (*domain.Trip, error)
	TripVersion(ctx context.Context, tripID string) (int64, error)
	SetTrip(ctx context.Context, trip *domain.Trip, version int64) (bool, error)
	InvalidateTrips(ctx context.Context, tripIDs ...string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
