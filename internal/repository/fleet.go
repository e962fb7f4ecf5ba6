package repository

import (
	"context"

	"fleet/internal/domain"
)

// TruckRepository defines the persistence operations for trucks.
type TruckRepository interface {
	// GetByID retrieves a truck by ID.
	GetByID(ctx context.Context, id string) (*domain.Truck, error)

	// GetForUpdate retrieves a truck by ID and locks its row.
	GetForUpdate(ctx context.Context, id string) (*domain.Truck, error)

	// GetAll retrieves all trucks.
	GetAll(ctx context.Context) ([]*domain.Truck, error)

	// UpdateMileage stores the truck's current mileage and appends the
	// reading to its mileage history.
	UpdateMileage(ctx context.Context, reading domain.MileageReading) error

	// MileageHistory retrieves the accepted readings of a truck, oldest first.
	MileageHistory(ctx context.Context, truckID string) ([]domain.MileageReading, error)
}

// TrailerRepository defines the persistence operations for trailers.
type TrailerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Trailer, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Trailer, error)
	GetAll(ctx context.Context) ([]*domain.Trailer, error)
}

// ExpenseRepository exposes the expenses recorded against trips.
type ExpenseRepository interface {
	// ListByTrip retrieves the expenses linked to a trip.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.Expense, error)
}

// SettingsRepository reads operator-managed settings.
type SettingsRepository interface {
	// DieselPrice returns the configured price per liter. Returns
	// ErrNotFound when the setting was never stored.
	DieselPrice(ctx context.Context) (float64, error)
}
