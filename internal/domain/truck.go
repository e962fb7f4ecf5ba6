package domain

import "time"

// Truck is a tractor or rigid truck whose odometer is tracked by the ledger.
type Truck struct {
	ID    string
	Plate string

	// HasCapacity is false for tractor units that must pull a trailer.
	HasCapacity    bool
	AvgConsumption float64 // km per liter
	CurrentMileage float64
}

// MileageSource identifies the operation that produced a mileage reading.
type MileageSource string

const (
	MileageSourceStart  MileageSource = "TRIP_START"
	MileageSourcePause  MileageSource = "LEG_PAUSE"
	MileageSourceResume MileageSource = "LEG_RESUME"
	MileageSourceFinish MileageSource = "TRIP_FINISH"
)

// MileageReading is one accepted odometer update.
type MileageReading struct {
	TruckID    string
	TripID     string
	Mileage    float64
	Source     MileageSource
	RecordedAt time.Time
}
