package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

const tripColumns = `id, code, status, origin, destination, start_date, end_date, distance,
	start_mileage, end_mileage, revenue, fuel_cost, toll_cost, other_costs, total_cost,
	profit, profit_margin, truck_id, trailer_id, driver_id, client_id, notes, created_at, updated_at`

const legColumns = `id, trip_id, seq, type, waiting_kind, status, start_mileage, end_mileage,
	location, started_at, ended_at`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.Code,
		trip.Status,
		trip.Origin,
		trip.Destination,
		trip.StartDate,
		nullTime(trip.EndDate),
		trip.Distance,
		nullFloat(trip.StartMileage),
		nullFloat(trip.EndMileage),
		trip.Revenue,
		trip.FuelCost,
		trip.TollCost,
		trip.OtherCosts,
		trip.TotalCost,
		trip.Profit,
		trip.ProfitMargin,
		trip.TruckID,
		nullString(trip.TrailerID),
		trip.DriverID,
		nullString(trip.ClientID),
		trip.Notes,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	return r.getOne(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
}

// GetForUpdate retrieves a trip by ID and locks its row.
func (r *TripRepository) GetForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return r.getOne(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, id)
}

// List retrieves trips matching the filter.
func (r *TripRepository) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR truck_id = $2)
		ORDER BY start_date DESC, id
		LIMIT $3
	`
	return r.getMany(ctx, query, string(filter.Status), filter.TruckID, limit)
}

// Update updates an existing trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET status = $1, origin = $2, destination = $3, start_date = $4, end_date = $5, distance = $6,
			start_mileage = $7, end_mileage = $8, revenue = $9, fuel_cost = $10, toll_cost = $11,
			other_costs = $12, total_cost = $13, profit = $14, profit_margin = $15, trailer_id = $16,
			driver_id = $17, client_id = $18, notes = $19, updated_at = $20
		WHERE id = $21
	`

	return checkAffected(r.q.ExecContext(ctx, query,
		trip.Status,
		trip.Origin,
		trip.Destination,
		trip.StartDate,
		nullTime(trip.EndDate),
		trip.Distance,
		nullFloat(trip.StartMileage),
		nullFloat(trip.EndMileage),
		trip.Revenue,
		trip.FuelCost,
		trip.TollCost,
		trip.OtherCosts,
		trip.TotalCost,
		trip.Profit,
		trip.ProfitMargin,
		nullString(trip.TrailerID),
		trip.DriverID,
		nullString(trip.ClientID),
		trip.Notes,
		trip.UpdatedAt,
		trip.ID,
	))
}

// ListOpenByTruck retrieves the non-terminal trips of a truck.
func (r *TripRepository) ListOpenByTruck(ctx context.Context, truckID string) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE truck_id = $1 AND status = ANY($2) ORDER BY start_date`
	return r.getMany(ctx, query, truckID, pq.Array(openStatuses()))
}

// ListOpenByDriver retrieves the non-terminal trips of a driver.
func (r *TripRepository) ListOpenByDriver(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE driver_id = $1 AND status = ANY($2) ORDER BY start_date`
	return r.getMany(ctx, query, driverID, pq.Array(openStatuses()))
}

// ListOpen retrieves every non-terminal trip.
func (r *TripRepository) ListOpen(ctx context.Context) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE status = ANY($1) ORDER BY start_date`
	return r.getMany(ctx, query, pq.Array(openStatuses()))
}

// ListOpenByTrailer retrieves the non-terminal trips of a trailer.
func (r *TripRepository) ListOpenByTrailer(ctx context.Context, trailerID string) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE trailer_id = $1 AND status = ANY($2) ORDER BY start_date`
	return r.getMany(ctx, query, trailerID, pq.Array(openStatuses()))
}

// MarkDelayed moves overdue PLANNED trips to DELAYED.
func (r *TripRepository) MarkDelayed(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		UPDATE trips SET status = $1, updated_at = $2
		WHERE status = $3 AND start_date < $2
		RETURNING id
	`

	rows, err := r.q.QueryContext(ctx, query, domain.TripStatusDelayed, now, domain.TripStatusPlanned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *TripRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Trip, error) {
	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if err := r.attachLegs(ctx, []*domain.Trip{trip}); err != nil {
		return nil, err
	}
	return trip, nil
}

func (r *TripRepository) getMany(ctx context.Context, query string, args ...any) ([]*domain.Trip, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachLegs(ctx, trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// attachLegs loads the legs of all given trips with one query.
func (r *TripRepository) attachLegs(ctx context.Context, trips []*domain.Trip) error {
	if len(trips) == 0 {
		return nil
	}

	ids := make([]string, len(trips))
	byID := make(map[string]*domain.Trip, len(trips))
	for i, t := range trips {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	query := `SELECT ` + legColumns + ` FROM trip_legs WHERE trip_id = ANY($1) ORDER BY trip_id, seq`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		leg, err := scanLeg(rows)
		if err != nil {
			return err
		}
		if t, ok := byID[leg.TripID]; ok {
			t.Legs = append(t.Legs, *leg)
		}
	}
	return rows.Err()
}

func scanTrip(s scanner) (*domain.Trip, error) {
	var trip domain.Trip
	var endDate sql.NullTime
	var startMileage, endMileage sql.NullFloat64
	var trailerID, clientID sql.NullString

	err := s.Scan(
		&trip.ID,
		&trip.Code,
		&trip.Status,
		&trip.Origin,
		&trip.Destination,
		&trip.StartDate,
		&endDate,
		&trip.Distance,
		&startMileage,
		&endMileage,
		&trip.Revenue,
		&trip.FuelCost,
		&trip.TollCost,
		&trip.OtherCosts,
		&trip.TotalCost,
		&trip.Profit,
		&trip.ProfitMargin,
		&trip.TruckID,
		&trailerID,
		&trip.DriverID,
		&clientID,
		&trip.Notes,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		trip.EndDate = endDate.Time
	}
	trip.StartMileage = floatPtr(startMileage)
	trip.EndMileage = floatPtr(endMileage)
	trip.TrailerID = trailerID.String
	trip.ClientID = clientID.String

	return &trip, nil
}

func openStatuses() []string {
	out := make([]string, len(domain.NonTerminalStatuses))
	for i, s := range domain.NonTerminalStatuses {
		out[i] = string(s)
	}
	return out
}

// LegRepository is a PostgreSQL implementation of repository.LegRepository.
type LegRepository struct {
	q Querier
}

// NewLegRepositoryWithTx creates a leg repository using a transaction.
func NewLegRepositoryWithTx(tx *sql.Tx) *LegRepository {
	return &LegRepository{q: tx}
}

// Create appends a leg to its trip.
func (r *LegRepository) Create(ctx context.Context, leg *domain.Leg) error {
	query := `INSERT INTO trip_legs (` + legColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	waitingKind, _ := leg.Kind.WaitingKind()
	_, err := r.q.ExecContext(ctx, query,
		leg.ID,
		leg.TripID,
		leg.Seq,
		leg.Kind.Type(),
		nullString(string(waitingKind)),
		leg.Status,
		leg.StartMileage,
		nullFloat(leg.EndMileage),
		leg.Location,
		leg.StartedAt,
		nullTime(leg.EndedAt),
	)
	return err
}

// Update updates an existing leg. The variant and sequence never change.
func (r *LegRepository) Update(ctx context.Context, leg *domain.Leg) error {
	query := `UPDATE trip_legs SET status = $1, end_mileage = $2, location = $3, ended_at = $4 WHERE id = $5`

	return checkAffected(r.q.ExecContext(ctx, query,
		leg.Status,
		nullFloat(leg.EndMileage),
		leg.Location,
		nullTime(leg.EndedAt),
		leg.ID,
	))
}

func scanLeg(s scanner) (*domain.Leg, error) {
	var leg domain.Leg
	var legType domain.LegType
	var waitingKind sql.NullString
	var endMileage sql.NullFloat64
	var endedAt sql.NullTime

	err := s.Scan(
		&leg.ID,
		&leg.TripID,
		&leg.Seq,
		&legType,
		&waitingKind,
		&leg.Status,
		&leg.StartMileage,
		&endMileage,
		&leg.Location,
		&leg.StartedAt,
		&endedAt,
	)
	if err != nil {
		return nil, err
	}

	kind, err := domain.ParseLegKind(legType, domain.WaitingKind(waitingKind.String))
	if err != nil {
		return nil, fmt.Errorf("leg %s: %w", leg.ID, err)
	}
	leg.Kind = kind
	leg.EndMileage = floatPtr(endMileage)
	if endedAt.Valid {
		leg.EndedAt = endedAt.Time
	}

	return &leg, nil
}

// Ensure implementations satisfy the repository interfaces.
var (
	_ repository.TripRepository = (*TripRepository)(nil)
	_ repository.LegRepository  = (*LegRepository)(nil)
)
