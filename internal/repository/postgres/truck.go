package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// TruckRepository is a PostgreSQL implementation of repository.TruckRepository.
type TruckRepository struct {
	q Querier
}

// NewTruckRepositoryWithTx creates a truck repository using a transaction.
func NewTruckRepositoryWithTx(tx *sql.Tx) *TruckRepository {
	return &TruckRepository{q: tx}
}

// GetByID retrieves a truck by ID.
func (r *TruckRepository) GetByID(ctx context.Context, id string) (*domain.Truck, error) {
	return r.get(ctx, `SELECT id, plate, has_capacity, avg_consumption, current_mileage FROM trucks WHERE id = $1`, id)
}

// GetForUpdate retrieves a truck by ID and locks its row.
func (r *TruckRepository) GetForUpdate(ctx context.Context, id string) (*domain.Truck, error) {
	return r.get(ctx, `SELECT id, plate, has_capacity, avg_consumption, current_mileage FROM trucks WHERE id = $1 FOR UPDATE`, id)
}

func (r *TruckRepository) get(ctx context.Context, query, id string) (*domain.Truck, error) {
	var truck domain.Truck
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&truck.ID,
		&truck.Plate,
		&truck.HasCapacity,
		&truck.AvgConsumption,
		&truck.CurrentMileage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &truck, nil
}

// GetAll retrieves all trucks.
func (r *TruckRepository) GetAll(ctx context.Context) ([]*domain.Truck, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, plate, has_capacity, avg_consumption, current_mileage FROM trucks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trucks []*domain.Truck
	for rows.Next() {
		var truck domain.Truck
		if err := rows.Scan(&truck.ID, &truck.Plate, &truck.HasCapacity, &truck.AvgConsumption, &truck.CurrentMileage); err != nil {
			return nil, err
		}
		trucks = append(trucks, &truck)
	}
	return trucks, rows.Err()
}

// UpdateMileage stores the truck's current mileage and appends the reading.
func (r *TruckRepository) UpdateMileage(ctx context.Context, reading domain.MileageReading) error {
	err := checkAffected(r.q.ExecContext(ctx,
		`UPDATE trucks SET current_mileage = $1 WHERE id = $2`,
		reading.Mileage, reading.TruckID,
	))
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO truck_mileage_readings (truck_id, trip_id, mileage, source, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		reading.TruckID, nullString(reading.TripID), reading.Mileage, reading.Source, reading.RecordedAt,
	)
	return err
}

// MileageHistory retrieves the accepted readings of a truck, oldest first.
func (r *TruckRepository) MileageHistory(ctx context.Context, truckID string) ([]domain.MileageReading, error) {
	if _, err := r.GetByID(ctx, truckID); err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT truck_id, COALESCE(trip_id, ''), mileage, source, recorded_at
		FROM truck_mileage_readings WHERE truck_id = $1 ORDER BY id
	`, truckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []domain.MileageReading
	for rows.Next() {
		var m domain.MileageReading
		if err := rows.Scan(&m.TruckID, &m.TripID, &m.Mileage, &m.Source, &m.RecordedAt); err != nil {
			return nil, err
		}
		readings = append(readings, m)
	}
	return readings, rows.Err()
}

// TrailerRepository is a PostgreSQL implementation of repository.TrailerRepository.
type TrailerRepository struct {
	q Querier
}

// NewTrailerRepositoryWithTx creates a trailer repository using a transaction.
func NewTrailerRepositoryWithTx(tx *sql.Tx) *TrailerRepository {
	return &TrailerRepository{q: tx}
}

// GetByID retrieves a trailer by ID.
func (r *TrailerRepository) GetByID(ctx context.Context, id string) (*domain.Trailer, error) {
	return r.get(ctx, `SELECT id, plate, active FROM trailers WHERE id = $1`, id)
}

// GetForUpdate retrieves a trailer by ID and locks its row.
func (r *TrailerRepository) GetForUpdate(ctx context.Context, id string) (*domain.Trailer, error) {
	return r.get(ctx, `SELECT id, plate, active FROM trailers WHERE id = $1 FOR UPDATE`, id)
}

func (r *TrailerRepository) get(ctx context.Context, query, id string) (*domain.Trailer, error) {
	var trailer domain.Trailer
	err := r.q.QueryRowContext(ctx, query, id).Scan(&trailer.ID, &trailer.Plate, &trailer.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &trailer, nil
}

// GetAll retrieves all trailers.
func (r *TrailerRepository) GetAll(ctx context.Context) ([]*domain.Trailer, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, plate, active FROM trailers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trailers []*domain.Trailer
	for rows.Next() {
		var trailer domain.Trailer
		if err := rows.Scan(&trailer.ID, &trailer.Plate, &trailer.Active); err != nil {
			return nil, err
		}
		trailers = append(trailers, &trailer)
	}
	return trailers, rows.Err()
}

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	return r.get(ctx, `SELECT id, COALESCE(name, '') FROM drivers WHERE id = $1`, id)
}

// GetForUpdate retrieves a driver by ID and locks its row.
func (r *DriverRepository) GetForUpdate(ctx context.Context, id string) (*domain.Driver, error) {
	return r.get(ctx, `SELECT id, COALESCE(name, '') FROM drivers WHERE id = $1 FOR UPDATE`, id)
}

func (r *DriverRepository) get(ctx context.Context, query, id string) (*domain.Driver, error) {
	var driver domain.Driver
	err := r.q.QueryRowContext(ctx, query, id).Scan(&driver.ID, &driver.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &driver, nil
}

// GetAll retrieves all drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, COALESCE(name, '') FROM drivers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		var driver domain.Driver
		if err := rows.Scan(&driver.ID, &driver.Name); err != nil {
			return nil, err
		}
		drivers = append(drivers, &driver)
	}
	return drivers, rows.Err()
}

// Ensure implementations satisfy the repository interfaces.
var (
	_ repository.TruckRepository   = (*TruckRepository)(nil)
	_ repository.TrailerRepository = (*TrailerRepository)(nil)
	_ repository.DriverRepository  = (*DriverRepository)(nil)
)
