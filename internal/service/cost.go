package service

import "fleet/internal/domain"

// CostEngine derives the final cost figures of a trip. It is pure.
type CostEngine struct{}

// NewCostEngine creates a new CostEngine.
func NewCostEngine() *CostEngine {
	return &CostEngine{}
}

// ComputeFinal aggregates the trip's expenses by type. Fuel falls back to an
// estimate from distance, average consumption and diesel price when no FUEL
// expense was recorded. Negative amounts are ignored.
func (e *CostEngine) ComputeFinal(trip *domain.Trip, truck *domain.Truck, expenses []*domain.Expense, dieselPrice float64) domain.CostBreakdown {
	var (
		c       domain.CostBreakdown
		hasFuel bool
	)

	for _, exp := range expenses {
		amount := exp.Amount
		if amount < 0 {
			amount = 0
		}
		switch exp.Type {
		case domain.ExpenseFuel:
			hasFuel = true
			c.FuelCost += amount
		case domain.ExpenseToll:
			c.TollCost += amount
		default:
			c.OtherCosts += amount
		}
	}

	if !hasFuel {
		c.FuelCost = EstimateFuel(trip.Distance, truck.AvgConsumption, dieselPrice)
		c.FuelEstimated = true
	}

	c.TotalCost = c.FuelCost + c.TollCost + c.OtherCosts
	c.Profit = trip.Revenue - c.TotalCost
	if trip.Revenue > 0 {
		c.ProfitMargin = c.Profit / trip.Revenue * 100
	}
	return c
}

// EstimateFuel returns (distance / kmPerLiter) * pricePerLiter, or 0 when
// any input is not positive.
func EstimateFuel(distance, kmPerLiter, pricePerLiter float64) float64 {
	if distance <= 0 || kmPerLiter <= 0 || pricePerLiter <= 0 {
		return 0
	}
	return distance / kmPerLiter * pricePerLiter
}
