// Package memory is an in-process implementation of the repository
// interfaces. A single mutex serializes units of work and each unit
// operates on a private copy that replaces the shared state on success.
package memory

import (
	"context"
	"sync"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

type data struct {
	trips       map[string]*domain.Trip
	legs        map[string][]domain.Leg
	trucks      map[string]domain.Truck
	trailers    map[string]domain.Trailer
	drivers     map[string]domain.Driver
	expenses    map[string][]domain.Expense
	readings    map[string][]domain.MileageReading
	dieselPrice *float64
}

func newData() *data {
	return &data{
		trips:    make(map[string]*domain.Trip),
		legs:     make(map[string][]domain.Leg),
		trucks:   make(map[string]domain.Truck),
		trailers: make(map[string]domain.Trailer),
		drivers:  make(map[string]domain.Driver),
		expenses: make(map[string][]domain.Expense),
		readings: make(map[string][]domain.MileageReading),
	}
}

func (d *data) clone() *data {
	c := newData()
	for id, t := range d.trips {
		c.trips[id] = t.Clone()
	}
	for id, legs := range d.legs {
		cp := make([]domain.Leg, len(legs))
		for i := range legs {
			cp[i] = legs[i].Clone()
		}
		c.legs[id] = cp
	}
	for id, t := range d.trucks {
		c.trucks[id] = t
	}
	for id, t := range d.trailers {
		c.trailers[id] = t
	}
	for id, dr := range d.drivers {
		c.drivers[id] = dr
	}
	for id, e := range d.expenses {
		c.expenses[id] = append([]domain.Expense(nil), e...)
	}
	for id, r := range d.readings {
		c.readings[id] = append([]domain.MileageReading(nil), r...)
	}
	if d.dieselPrice != nil {
		p := *d.dieselPrice
		c.dieselPrice = &p
	}
	return c
}

// Store is an in-memory repository.TxRunner.
type Store struct {
	mu   sync.Mutex
	data *data
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: newData()}
}

// WithinTx runs fn against a private copy of the state and publishes the
// copy only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, &txStore{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// AddTruck seeds a truck.
func (s *Store) AddTruck(t domain.Truck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.trucks[t.ID] = t
}

// AddTrailer seeds a trailer.
func (s *Store) AddTrailer(t domain.Trailer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.trailers[t.ID] = t
}

// AddDriver seeds a driver.
func (s *Store) AddDriver(d domain.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.drivers[d.ID] = d
}

// AddExpense records an expense against its trip.
func (s *Store) AddExpense(e domain.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.expenses[e.TripID] = append(s.data.expenses[e.TripID], e)
}

// SetDieselPrice stores the diesel price setting.
func (s *Store) SetDieselPrice(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.dieselPrice = &price
}

// Truck returns a copy of a truck for assertions.
func (s *Store) Truck(id string) (domain.Truck, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.trucks[id]
	return t, ok
}

// CountTrips returns the number of stored trips.
func (s *Store) CountTrips() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.trips)
}

// Ensure Store implements repository.TxRunner.
var _ repository.TxRunner = (*Store)(nil)

type txStore struct {
	d *data
}

func (t *txStore) Trips() repository.TripRepository { return &tripRepo{d: t.d} }
func (t *txStore) Legs() repository.LegRepository { return &legRepo{d: t.d} }
func (t *txStore) Trucks() repository.TruckRepository { return &truckRepo{d: t.d} }
func (t *txStore) Trailers() repository.TrailerRepository { return &trailerRepo{d: t.d} }
func (t *txStore) Drivers() repository.DriverRepository { return &driverRepo{d: t.d} }
func (t *txStore) Expenses() repository.ExpenseRepository { return &expenseRepo{d: t.d} }
func (t *txStore) Settings() repository.SettingsRepository { return &settingsRepo{d: t.d} }
