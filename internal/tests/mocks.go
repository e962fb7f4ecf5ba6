package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"fleet/internal/domain"
	"fleet/internal/repository/memory"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// TEST CLOCK
// ──────────────────────────────────────────────

// TestClock is a manually advanced clock.
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewTestClock creates a clock stopped at now.
func NewTestClock(now time.Time) *TestClock {
	return &TestClock{now: now}
}

// Now returns the current test time.
func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier records every event synchronously.
type MockNotifier struct {
	mu     sync.Mutex
	events []domain.TripEvent
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, event domain.TripEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Types returns the recorded event types in order.
func (m *MockNotifier) Types() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]domain.EventType, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.Type)
	}
	return types
}

// CountType returns how many events of the given type were recorded.
func (m *MockNotifier) CountType(t domain.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:" + name
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseLock(ctx context.Context, name string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:"+name)
	return nil
}

// IsLocked checks if a lock is held (for test assertions).
func (m *MockLockStore) IsLocked(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:"+name]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// FIXTURE
// ──────────────────────────────────────────────

var baseTime = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

// fixture is a seeded in-memory fleet with an engine on top.
type fixture struct {
	store    *memory.Store
	clock    *TestClock
	notifier *MockNotifier
	engine   *service.Engine
}

// newFixture seeds two trucks (one tractor without capacity), three
// trailers (one inactive) and two drivers.
func newFixture() *fixture {
	store := memory.NewStore()
	store.AddTruck(domain.Truck{ID: "truck-1", Plate: "TRK-0001", HasCapacity: true, AvgConsumption: 3, CurrentMileage: 50000})
	store.AddTruck(domain.Truck{ID: "tractor-1", Plate: "TRC-0001", HasCapacity: false, AvgConsumption: 2.5, CurrentMileage: 50000})
	store.AddTrailer(domain.Trailer{ID: "trailer-1", Plate: "TRL-0001", Active: true})
	store.AddTrailer(domain.Trailer{ID: "trailer-2", Plate: "TRL-0002", Active: true})
	store.AddTrailer(domain.Trailer{ID: "trailer-off", Plate: "TRL-0003", Active: false})
	store.AddDriver(domain.Driver{ID: "driver-1", Name: "Ana"})
	store.AddDriver(domain.Driver{ID: "driver-2", Name: "Bruno"})

	clock := NewTestClock(baseTime)
	notifier := NewMockNotifier()
	logger, _ := test.NewNullLogger()
	engine := service.NewEngine(service.Deps{
		Tx:       store,
		Notifier: notifier,
		Logger:   logger,
		Clock:    clock.Now,
	})

	return &fixture{store: store, clock: clock, notifier: notifier, engine: engine}
}

// createTrip plans a trip starting at baseTime and ending two days later.
func (f *fixture) createTrip(truckID, driverID, trailerID string) (*domain.Trip, error) {
	return f.engine.Scheduler.Create(context.Background(), service.CreateTripRequest{
		TruckID:     truckID,
		DriverID:    driverID,
		TrailerID:   trailerID,
		Origin:      "Porto Alegre",
		Destination: "Curitiba",
		StartDate:   baseTime,
		EndDate:     baseTime.Add(48 * time.Hour),
		Distance:    700,
		Revenue:     5000,
	})
}

func mileage(v float64) *float64 {
	return &v
}
