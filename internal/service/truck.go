package service

import (
	"context"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// TruckService exposes truck reads for the API.
type TruckService struct {
	tx repository.TxRunner
}

// NewTruckService creates a new TruckService.
func NewTruckService(tx repository.TxRunner) *TruckService {
	return &TruckService{tx: tx}
}

// MileageReport is a truck's current mileage with its accepted readings.
type MileageReport struct {
	Truck    *domain.Truck
	Readings []domain.MileageReading
}

// Mileage retrieves the truck's ledger state.
func (s *TruckService) Mileage(ctx context.Context, truckID string) (*MileageReport, error) {
	if truckID == "" {
		return nil, missingField("truck_id")
	}

	var report MileageReport
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		truck, err := st.Trucks().GetByID(ctx, truckID)
		if err != nil {
			return wrapNotFound(err, "truck", truckID)
		}
		readings, err := st.Trucks().MileageHistory(ctx, truckID)
		if err != nil {
			return err
		}
		report = MileageReport{Truck: truck, Readings: readings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}
