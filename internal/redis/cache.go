package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet/internal/domain"
)

// CacheStore handles read caching in Redis.
type CacheStore struct {
	client   *redis.Client
	priceTTL time.Duration
}

// NewCacheStore creates a new CacheStore. A zero priceTTL uses DieselPriceCacheTTL.
func NewCacheStore(client *redis.Client, priceTTL time.Duration) *CacheStore {
	if priceTTL <= 0 {
		priceTTL = DieselPriceCacheTTL
	}
	return &CacheStore{client: client, priceTTL: priceTTL}
}

// Cache TTL constants
const (
	DieselPriceCacheTTL = 5 * time.Minute  // Price is edited by operators, rarely
	TripCacheTTL        = 30 * time.Second // Trips change on every transition

	// tripVersionTTL must outlive any read that started before an
	// invalidation.
	tripVersionTTL = 24 * time.Hour
)

// Key prefixes
const (
	dieselPriceKey  = "cache:settings:diesel_price"
	tripCachePrefix = "cache:trip:"
	tripVerPrefix   = "cache:trip-ver:"
)

// setTripScript writes the snapshot only if no invalidation happened since
// the caller read the version.
var setTripScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[2]) or "0")
if current ~= tonumber(ARGV[2]) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// GetDieselPrice retrieves the diesel price from cache.
// The boolean is false on a cache miss.
func (s *CacheStore) GetDieselPrice(ctx context.Context) (float64, bool, error) {
	raw, err := s.client.Get(ctx, dieselPriceKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil // Cache miss
		}
		return 0, false, err
	}

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

// SetDieselPrice stores the diesel price in cache.
func (s *CacheStore) SetDieselPrice(ctx context.Context, price float64) error {
	return s.client.Set(ctx, dieselPriceKey, strconv.FormatFloat(price, 'f', -1, 64), s.priceTTL).Err()
}

// InvalidateDieselPrice removes the diesel price from cache.
func (s *CacheStore) InvalidateDieselPrice(ctx context.Context) error {
	return s.client.Del(ctx, dieselPriceKey).Err()
}

// GetTrip retrieves a trip snapshot from cache. Returns nil on a cache miss.
func (s *CacheStore) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	data, err := s.client.Get(ctx, tripCachePrefix+tripID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var trip domain.Trip
	if err := json.Unmarshal(data, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// TripVersion returns the invalidation counter of a trip. Read it before
// loading the trip from the store and hand it to SetTrip.
func (s *CacheStore) TripVersion(ctx context.Context, tripID string) (int64, error) {
	v, err := s.client.Get(ctx, tripVerPrefix+tripID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetTrip stores a trip snapshot in cache unless the trip was invalidated
// after version was read. It reports whether the snapshot was stored.
func (s *CacheStore) SetTrip(ctx context.Context, trip *domain.Trip, version int64) (bool, error) {
	data, err := json.Marshal(trip)
	if err != nil {
		return false, err
	}
	keys := []string{tripCachePrefix + trip.ID, tripVerPrefix + trip.ID}
	stored, err := setTripScript.Run(ctx, s.client, keys, data, version, TripCacheTTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// InvalidateTrips removes trip snapshots from cache and bumps their
// versions, using a pipeline.
func (s *CacheStore) InvalidateTrips(ctx context.Context, tripIDs ...string) error {
	if len(tripIDs) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range tripIDs {
		pipe.Del(ctx, tripCachePrefix+id)
		pipe.Incr(ctx, tripVerPrefix+id)
		pipe.Expire(ctx, tripVerPrefix+id, tripVersionTTL)
	}

	_, err := pipe.Exec(ctx)
	return err
}
