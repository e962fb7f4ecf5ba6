package memory

import (
	"context"
	"sort"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

type truckRepo struct {
	d *data
}

func (r *truckRepo) GetByID(ctx context.Context, id string) (*domain.Truck, error) {
	t, ok := r.d.trucks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *truckRepo) GetForUpdate(ctx context.Context, id string) (*domain.Truck, error) {
	return r.GetByID(ctx, id)
}

func (r *truckRepo) GetAll(ctx context.Context) ([]*domain.Truck, error) {
	trucks := make([]*domain.Truck, 0, len(r.d.trucks))
	for _, t := range r.d.trucks {
		t := t
		trucks = append(trucks, &t)
	}
	sort.Slice(trucks, func(i, j int) bool { return trucks[i].ID < trucks[j].ID })
	return trucks, nil
}

func (r *truckRepo) UpdateMileage(ctx context.Context, reading domain.MileageReading) error {
	t, ok := r.d.trucks[reading.TruckID]
	if !ok {
		return repository.ErrNotFound
	}
	t.CurrentMileage = reading.Mileage
	r.d.trucks[t.ID] = t
	r.d.readings[t.ID] = append(r.d.readings[t.ID], reading)
	return nil
}

func (r *truckRepo) MileageHistory(ctx context.Context, truckID string) ([]domain.MileageReading, error) {
	if _, ok := r.d.trucks[truckID]; !ok {
		return nil, repository.ErrNotFound
	}
	return append([]domain.MileageReading(nil), r.d.readings[truckID]...), nil
}

type trailerRepo struct {
	d *data
}

func (r *trailerRepo) GetByID(ctx context.Context, id string) (*domain.Trailer, error) {
	t, ok := r.d.trailers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *trailerRepo) GetForUpdate(ctx context.Context, id string) (*domain.Trailer, error) {
	return r.GetByID(ctx, id)
}

func (r *trailerRepo) GetAll(ctx context.Context) ([]*domain.Trailer, error) {
	trailers := make([]*domain.Trailer, 0, len(r.d.trailers))
	for _, t := range r.d.trailers {
		t := t
		trailers = append(trailers, &t)
	}
	sort.Slice(trailers, func(i, j int) bool { return trailers[i].ID < trailers[j].ID })
	return trailers, nil
}

type driverRepo struct {
	d *data
}

func (r *driverRepo) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	dr, ok := r.d.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &dr, nil
}

func (r *driverRepo) GetForUpdate(ctx context.Context, id string) (*domain.Driver, error) {
	return r.GetByID(ctx, id)
}

func (r *driverRepo) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	drivers := make([]*domain.Driver, 0, len(r.d.drivers))
	for _, dr := range r.d.drivers {
		dr := dr
		drivers = append(drivers, &dr)
	}
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].ID < drivers[j].ID })
	return drivers, nil
}

type expenseRepo struct {
	d *data
}

func (r *expenseRepo) ListByTrip(ctx context.Context, tripID string) ([]*domain.Expense, error) {
	src := r.d.expenses[tripID]
	out := make([]*domain.Expense, 0, len(src))
	for i := range src {
		e := src[i]
		out = append(out, &e)
	}
	return out, nil
}

type settingsRepo struct {
	d *data
}

func (r *settingsRepo) DieselPrice(ctx context.Context) (float64, error) {
	if r.d.dieselPrice == nil {
		return 0, repository.ErrNotFound
	}
	return *r.d.dieselPrice, nil
}

var (
	_ repository.TruckRepository    = (*truckRepo)(nil)
	_ repository.TrailerRepository  = (*trailerRepo)(nil)
	_ repository.DriverRepository   = (*driverRepo)(nil)
	_ repository.ExpenseRepository  = (*expenseRepo)(nil)
	_ repository.SettingsRepository = (*settingsRepo)(nil)
)
