package memory

import (
	"context"
	"sort"
	"time"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

type tripRepo struct {
	d *data
}

func (r *tripRepo) load(t *domain.Trip) *domain.Trip {
	c := t.Clone()
	legs := r.d.legs[t.ID]
	c.Legs = make([]domain.Leg, len(legs))
	for i := range legs {
		c.Legs[i] = legs[i].Clone()
	}
	return c
}

func (r *tripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	stored := trip.Clone()
	stored.Legs = nil
	r.d.trips[trip.ID] = stored
	return nil
}

func (r *tripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	t, ok := r.d.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.load(t), nil
}

func (r *tripRepo) GetForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return r.GetByID(ctx, id)
}

func (r *tripRepo) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	trips := r.collect(func(t *domain.Trip) bool {
		if filter.Status != "" && t.Status != filter.Status {
			return false
		}
		if filter.TruckID != "" && t.TruckID != filter.TruckID {
			return false
		}
		return true
	})
	if filter.Limit > 0 && len(trips) > filter.Limit {
		trips = trips[:filter.Limit]
	}
	return trips, nil
}

func (r *tripRepo) Update(ctx context.Context, trip *domain.Trip) error {
	if _, ok := r.d.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := trip.Clone()
	stored.Legs = nil
	r.d.trips[trip.ID] = stored
	return nil
}

func (r *tripRepo) ListOpenByTruck(ctx context.Context, truckID string) ([]*domain.Trip, error) {
	return r.collect(func(t *domain.Trip) bool {
		return t.TruckID == truckID && !t.Status.IsTerminal()
	}), nil
}

func (r *tripRepo) ListOpenByDriver(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	return r.collect(func(t *domain.Trip) bool {
		return t.DriverID == driverID && !t.Status.IsTerminal()
	}), nil
}

func (r *tripRepo) ListOpen(ctx context.Context) ([]*domain.Trip, error) {
	return r.collect(func(t *domain.Trip) bool {
		return !t.Status.IsTerminal()
	}), nil
}

func (r *tripRepo) ListOpenByTrailer(ctx context.Context, trailerID string) ([]*domain.Trip, error) {
	return r.collect(func(t *domain.Trip) bool {
		return t.TrailerID == trailerID && !t.Status.IsTerminal()
	}), nil
}

func (r *tripRepo) MarkDelayed(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	for id, t := range r.d.trips {
		if t.Status == domain.TripStatusPlanned && t.StartDate.Before(now) {
			t.Status = domain.TripStatusDelayed
			t.UpdatedAt = now
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *tripRepo) collect(keep func(*domain.Trip) bool) []*domain.Trip {
	var trips []*domain.Trip
	for _, t := range r.d.trips {
		if keep(t) {
			trips = append(trips, r.load(t))
		}
	}
	sort.Slice(trips, func(i, j int) bool {
		if !trips[i].StartDate.Equal(trips[j].StartDate) {
			return trips[i].StartDate.After(trips[j].StartDate)
		}
		return trips[i].ID < trips[j].ID
	})
	return trips
}

type legRepo struct {
	d *data
}

func (r *legRepo) Create(ctx context.Context, leg *domain.Leg) error {
	if _, ok := r.d.trips[leg.TripID]; !ok {
		return repository.ErrNotFound
	}
	r.d.legs[leg.TripID] = append(r.d.legs[leg.TripID], leg.Clone())
	return nil
}

func (r *legRepo) Update(ctx context.Context, leg *domain.Leg) error {
	legs := r.d.legs[leg.TripID]
	for i := range legs {
		if legs[i].ID == leg.ID {
			legs[i] = leg.Clone()
			return nil
		}
	}
	return repository.ErrNotFound
}

var (
	_ repository.TripRepository = (*tripRepo)(nil)
	_ repository.LegRepository  = (*legRepo)(nil)
)
