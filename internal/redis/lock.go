package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token, so an
// instance whose lock expired cannot release the next holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client, tokens: make(map[string]string)}
}

func lockKey(name string) string {
	return "lock:" + name
}

// AcquireLock attempts to acquire the named lock.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil || !ok {
		return false, err
	}

	s.mu.Lock()
	s.tokens[name] = token
	s.mu.Unlock()
	return true, nil
}

// ReleaseLock releases the named lock if this store still owns it.
func (s *LockStore) ReleaseLock(ctx context.Context, name string) error {
	s.mu.Lock()
	token, ok := s.tokens[name]
	delete(s.tokens, name)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, s.client, []string{lockKey(name)}, token).Err()
}
