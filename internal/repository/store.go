package repository

import "context"

// Store groups the repositories bound to one transaction.
type Store interface {
	Trips() TripRepository
	Legs() LegRepository
	Trucks() TruckRepository
	Trailers() TrailerRepository
	Drivers() DriverRepository
	Expenses() ExpenseRepository
	Settings() SettingsRepository
}

// TxRunner runs a unit of work atomically. Either every write made through
// the Store passed to fn is committed, or none is.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
