package handler

import (
	"time"

	"fleet/internal/domain"
	"fleet/internal/service"
)

const timeLayout = time.RFC3339

// LegResponse is one leg of a trip.
type LegResponse struct {
	ID           string   `json:"id"`
	Seq          int      `json:"seq"`
	Type         string   `json:"type"`
	WaitingKind  string   `json:"waiting_kind,omitempty"`
	Status       string   `json:"status"`
	StartMileage float64  `json:"start_mileage"`
	EndMileage   *float64 `json:"end_mileage,omitempty"`
	Location     string   `json:"location,omitempty"`
	StartedAt    string   `json:"started_at"`
	EndedAt      string   `json:"ended_at,omitempty"`
}

// TripResponse is the HTTP view of a trip.
type TripResponse struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	Status       string        `json:"status"`
	Stage        string        `json:"stage,omitempty"`
	Origin       string        `json:"origin"`
	Destination  string        `json:"destination"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date,omitempty"`
	TruckID      string        `json:"truck_id"`
	TrailerID    string        `json:"trailer_id,omitempty"`
	DriverID     string        `json:"driver_id"`
	ClientID     string        `json:"client_id,omitempty"`
	Distance     float64       `json:"distance"`
	StartMileage *float64      `json:"start_mileage,omitempty"`
	EndMileage   *float64      `json:"end_mileage,omitempty"`
	Revenue      float64       `json:"revenue"`
	FuelCost     float64       `json:"fuel_cost"`
	TollCost     float64       `json:"toll_cost"`
	OtherCosts   float64       `json:"other_costs"`
	TotalCost    float64       `json:"total_cost"`
	Profit       float64       `json:"profit"`
	ProfitMargin float64       `json:"profit_margin"`
	Notes        string        `json:"notes,omitempty"`
	Legs         []LegResponse `json:"legs"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func newTripResponse(t *domain.Trip) TripResponse {
	resp := TripResponse{
		ID:           t.ID,
		Code:         t.Code,
		Status:       string(t.Status),
		Origin:       t.Origin,
		Destination:  t.Destination,
		StartDate:    formatTime(t.StartDate),
		EndDate:      formatTime(t.EndDate),
		TruckID:      t.TruckID,
		TrailerID:    t.TrailerID,
		DriverID:     t.DriverID,
		ClientID:     t.ClientID,
		Distance:     t.Distance,
		StartMileage: t.StartMileage,
		EndMileage:   t.EndMileage,
		Revenue:      t.Revenue,
		FuelCost:     t.FuelCost,
		TollCost:     t.TollCost,
		OtherCosts:   t.OtherCosts,
		TotalCost:    t.TotalCost,
		Profit:       t.Profit,
		ProfitMargin: t.ProfitMargin,
		Notes:        t.Notes,
		Legs:         make([]LegResponse, 0, len(t.Legs)),
		CreatedAt:    formatTime(t.CreatedAt),
		UpdatedAt:    formatTime(t.UpdatedAt),
	}
	if t.Status == domain.TripStatusInProgress {
		resp.Stage = string(t.Stage())
	}

	for _, leg := range t.Legs {
		lr := LegResponse{
			ID:           leg.ID,
			Seq:          leg.Seq,
			Type:         string(leg.Kind.Type()),
			Status:       string(leg.Status),
			StartMileage: leg.StartMileage,
			EndMileage:   leg.EndMileage,
			Location:     leg.Location,
			StartedAt:    formatTime(leg.StartedAt),
			EndedAt:      formatTime(leg.EndedAt),
		}
		if wk, ok := leg.Kind.WaitingKind(); ok {
			lr.WaitingKind = string(wk)
		}
		resp.Legs = append(resp.Legs, lr)
	}
	return resp
}

func newTripListResponse(trips []*domain.Trip) []TripResponse {
	resp := make([]TripResponse, 0, len(trips))
	for _, t := range trips {
		resp = append(resp, newTripResponse(t))
	}
	return resp
}

// AvailabilityResponse lists the resources free for a window.
type AvailabilityResponse struct {
	Start    string            `json:"start"`
	End      string            `json:"end,omitempty"`
	Trucks   []TruckResponse   `json:"trucks"`
	Drivers  []DriverResponse  `json:"drivers"`
	Trailers []TrailerResponse `json:"trailers"`
}

// TruckResponse is the HTTP view of a truck.
type TruckResponse struct {
	ID             string  `json:"id"`
	Plate          string  `json:"plate"`
	HasCapacity    bool    `json:"has_capacity"`
	AvgConsumption float64 `json:"avg_consumption"`
	CurrentMileage float64 `json:"current_mileage"`
}

// DriverResponse is the HTTP view of a driver.
type DriverResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TrailerResponse is the HTTP view of a trailer.
type TrailerResponse struct {
	ID    string `json:"id"`
	Plate string `json:"plate"`
}

func newTruckResponse(t *domain.Truck) TruckResponse {
	return TruckResponse{
		ID:             t.ID,
		Plate:          t.Plate,
		HasCapacity:    t.HasCapacity,
		AvgConsumption: t.AvgConsumption,
		CurrentMileage: t.CurrentMileage,
	}
}

func newAvailabilityResponse(a *service.Availability) AvailabilityResponse {
	resp := AvailabilityResponse{
		Start:    formatTime(a.Window.Start),
		End:      formatTime(a.Window.End),
		Trucks:   make([]TruckResponse, 0, len(a.Trucks)),
		Drivers:  make([]DriverResponse, 0, len(a.Drivers)),
		Trailers: make([]TrailerResponse, 0, len(a.Trailers)),
	}
	for _, t := range a.Trucks {
		resp.Trucks = append(resp.Trucks, newTruckResponse(t))
	}
	for _, d := range a.Drivers {
		resp.Drivers = append(resp.Drivers, DriverResponse{ID: d.ID, Name: d.Name})
	}
	for _, t := range a.Trailers {
		resp.Trailers = append(resp.Trailers, TrailerResponse{ID: t.ID, Plate: t.Plate})
	}
	return resp
}

// MileageReadingResponse is one accepted odometer reading.
type MileageReadingResponse struct {
	TripID     string  `json:"trip_id,omitempty"`
	Mileage    float64 `json:"mileage"`
	Source     string  `json:"source"`
	RecordedAt string  `json:"recorded_at"`
}

// TruckMileageResponse is a truck with its mileage history.
type TruckMileageResponse struct {
	Truck    TruckResponse            `json:"truck"`
	Readings []MileageReadingResponse `json:"readings"`
}

func newTruckMileageResponse(r *service.MileageReport) TruckMileageResponse {
	resp := TruckMileageResponse{
		Truck:    newTruckResponse(r.Truck),
		Readings: make([]MileageReadingResponse, 0, len(r.Readings)),
	}
	for _, reading := range r.Readings {
		resp.Readings = append(resp.Readings, MileageReadingResponse{
			TripID:     reading.TripID,
			Mileage:    reading.Mileage,
			Source:     string(reading.Source),
			RecordedAt: formatTime(reading.RecordedAt),
		})
	}
	return resp
}
