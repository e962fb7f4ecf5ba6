package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

const dieselPriceKey = "diesel_price_per_liter"

// ExpenseRepository is a PostgreSQL implementation of repository.ExpenseRepository.
type ExpenseRepository struct {
	q Querier
}

// NewExpenseRepositoryWithTx creates an expense repository using a transaction.
func NewExpenseRepositoryWithTx(tx *sql.Tx) *ExpenseRepository {
	return &ExpenseRepository{q: tx}
}

// ListByTrip retrieves the expenses linked to a trip.
func (r *ExpenseRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.Expense, error) {
	query := `
		SELECT id, trip_id, COALESCE(truck_id, ''), type, amount, description, incurred_at
		FROM expenses WHERE trip_id = $1 ORDER BY incurred_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.TripID, &e.TruckID, &e.Type, &e.Amount, &e.Description, &e.IncurredAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, &e)
	}
	return expenses, rows.Err()
}

// SettingsRepository is a PostgreSQL implementation of repository.SettingsRepository.
type SettingsRepository struct {
	q Querier
}

// NewSettingsRepositoryWithTx creates a settings repository using a transaction.
func NewSettingsRepositoryWithTx(tx *sql.Tx) *SettingsRepository {
	return &SettingsRepository{q: tx}
}

// DieselPrice returns the stored diesel price per liter.
func (r *SettingsRepository) DieselPrice(ctx context.Context) (float64, error) {
	var raw string
	err := r.q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, dieselPriceKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %s: %w", dieselPriceKey, err)
	}
	return price, nil
}

var (
	_ repository.ExpenseRepository  = (*ExpenseRepository)(nil)
	_ repository.SettingsRepository = (*SettingsRepository)(nil)
)
