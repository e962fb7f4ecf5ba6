package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// TripCache holds read snapshots of trips outside the store. SetTrip must
// drop the snapshot when InvalidateTrips ran after TripVersion was read.
type TripCache interface {
	GetTrip(ctx context.Context, tripID string) (*domain.Trip, error)
	TripVersion(ctx context.Context, tripID string) (int64, error)
	SetTrip(ctx context.Context, trip *domain.Trip, version int64) (bool, error)
	InvalidateTrips(ctx context.Context, tripIDs ...string) error
}

// Deps groups the collaborators shared by the trip services.
// Only Tx is required.
type Deps struct {
	Tx       repository.TxRunner
	Settings *SettingsService
	Notifier Notifier
	Cache    TripCache
	Observer Observer
	Logger   logrus.FieldLogger
	Clock    Clock
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Notifier == nil {
		d.Notifier = NopNotifier{}
	}
	if d.Observer == nil {
		d.Observer = NopObserver{}
	}
	if d.Settings == nil {
		d.Settings = NewSettingsService(nil, 0, d.Logger)
	}
	return d
}

// Engine wires the trip components together.
type Engine struct {
	Ledger    *MileageLedger
	Allocator *ResourceAllocator
	Costs     *CostEngine
	Legs      *LegManager
	Trips     *TripStateMachine
	Scheduler *TripScheduler
	Trucks    *TruckService
}

// NewEngine builds every component on top of deps.
func NewEngine(deps Deps) *Engine {
	deps = deps.withDefaults()

	ledger := NewMileageLedger(deps.Clock)
	allocator := NewResourceAllocator(deps.Clock)
	costs := NewCostEngine()
	legs := NewLegManager(ledger, allocator, deps.Clock)
	trips := NewTripStateMachine(deps, allocator, ledger, legs, costs)

	return &Engine{
		Ledger:    ledger,
		Allocator: allocator,
		Costs:     costs,
		Legs:      legs,
		Trips:     trips,
		Scheduler: NewTripScheduler(deps, allocator, trips),
		Trucks:    NewTruckService(deps.Tx),
	}
}

// mutator runs trip mutations as single units of work and publishes their
// events after commit.
type mutator struct {
	deps Deps
}

// mutate locks the trip, applies fn and persists the trip. The reloaded
// trip is returned and announced only once the unit of work committed.
func (m *mutator) mutate(
	ctx context.Context,
	op string,
	tripID string,
	event domain.EventType,
	fn func(ctx context.Context, s repository.Store, trip *domain.Trip) error,
) (trip *domain.Trip, err error) {
	start := time.Now()
	defer func() {
		observe(m.deps.Logger, m.deps.Observer, op, logrus.Fields{"trip_id": tripID}, start, err)
	}()

	if tripID == "" {
		return nil, missingField("trip_id")
	}

	seg := startSegment(ctx, "trip."+op)
	defer endSegment(seg)

	err = m.deps.Tx.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		t, err := s.Trips().GetForUpdate(ctx, tripID)
		if err != nil {
			return wrapNotFound(err, "trip", tripID)
		}

		if err := fn(ctx, s, t); err != nil {
			return err
		}

		t.UpdatedAt = m.deps.Clock.now()
		if err := s.Trips().Update(ctx, t); err != nil {
			return err
		}

		trip, err = s.Trips().GetByID(ctx, tripID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.afterCommit(ctx, event, trip)
	return trip, nil
}

func (m *mutator) afterCommit(ctx context.Context, event domain.EventType, trips ...*domain.Trip) {
	if m.deps.Cache != nil {
		ids := make([]string, 0, len(trips))
		for _, t := range trips {
			ids = append(ids, t.ID)
		}
		if err := m.deps.Cache.InvalidateTrips(ctx, ids...); err != nil {
			m.deps.Logger.WithError(err).Warn("Trip cache invalidation failed")
		}
	}

	for _, t := range trips {
		m.deps.Notifier.Notify(ctx, NewTripEvent(event, t, eventData(event, t)))
	}
}

func eventData(event domain.EventType, t *domain.Trip) map[string]interface{} {
	switch event {
	case domain.EventTripCompleted:
		return map[string]interface{}{
			"distance":      t.Distance,
			"total_cost":    t.TotalCost,
			"profit":        t.Profit,
			"profit_margin": t.ProfitMargin,
		}
	case domain.EventTripPaused, domain.EventTripResumed:
		if leg := t.CurrentLeg(); leg != nil {
			return map[string]interface{}{
				"leg_type": leg.Kind.String(),
				"location": leg.Location,
				"mileage":  leg.StartMileage,
			}
		}
	}
	return nil
}
