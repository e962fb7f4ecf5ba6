package domain

import "time"

// ExpenseType classifies an expense for cost aggregation.
type ExpenseType string

const (
	ExpenseFuel        ExpenseType = "FUEL"
	ExpenseToll        ExpenseType = "TOLL"
	ExpenseMaintenance ExpenseType = "MAINTENANCE"
	ExpenseFood        ExpenseType = "FOOD"
	ExpenseLodging     ExpenseType = "LODGING"
	ExpenseOther       ExpenseType = "OTHER"
)

// Expense is a cost entry linked to a trip.
type Expense struct {
	ID          string
	TripID      string
	TruckID     string
	Type        ExpenseType
	Amount      float64
	Description string
	IncurredAt  time.Time
}

// CostBreakdown holds the figures frozen onto a trip when it completes.
type CostBreakdown struct {
	FuelCost      float64
	FuelEstimated bool
	TollCost      float64
	OtherCosts    float64
	TotalCost     float64
	Profit        float64
	ProfitMargin  float64
}
