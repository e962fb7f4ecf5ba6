package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fleet/internal/domain"
)

func TestCostEngine_ComputeFinal(t *testing.T) {
	t.Parallel()

	truck := &domain.Truck{ID: "t1", AvgConsumption: 2.5}

	tests := []struct {
		name     string
		revenue  float64
		distance float64
		expenses []*domain.Expense
		price    float64
		want     domain.CostBreakdown
	}{
		{
			name:     "estimated fuel without expenses",
			revenue:  2000,
			distance: 500,
			price:    6,
			want: domain.CostBreakdown{
				FuelCost: 1200, FuelEstimated: true, TotalCost: 1200, Profit: 800, ProfitMargin: 40,
			},
		},
		{
			name:     "fuel expenses replace the estimate",
			revenue:  2000,
			distance: 500,
			price:    6,
			expenses: []*domain.Expense{
				{Type: domain.ExpenseFuel, Amount: 300},
				{Type: domain.ExpenseFuel, Amount: 200},
				{Type: domain.ExpenseToll, Amount: 50},
				{Type: domain.ExpenseMaintenance, Amount: 150},
			},
			want: domain.CostBreakdown{
				FuelCost: 500, TollCost: 50, OtherCosts: 150, TotalCost: 700, Profit: 1300, ProfitMargin: 65,
			},
		},
		{
			name:     "zero revenue keeps margin at zero",
			distance: 100,
			price:    5,
			expenses: []*domain.Expense{{Type: domain.ExpenseToll, Amount: 10}},
			want: domain.CostBreakdown{
				FuelCost: 200, FuelEstimated: true, TollCost: 10, TotalCost: 210, Profit: -210,
			},
		},
		{
			name:     "negative amounts are ignored",
			revenue:  100,
			expenses: []*domain.Expense{{Type: domain.ExpenseFuel, Amount: -40}, {Type: domain.ExpenseOther, Amount: 20}},
			want: domain.CostBreakdown{
				OtherCosts: 20, TotalCost: 20, Profit: 80, ProfitMargin: 80,
			},
		},
	}

	engine := NewCostEngine()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			trip := &domain.Trip{Revenue: tt.revenue, Distance: tt.distance}
			got := engine.ComputeFinal(trip, truck, tt.expenses, tt.price)

			assert.Equal(t, tt.want.FuelEstimated, got.FuelEstimated)
			assert.InDelta(t, tt.want.FuelCost, got.FuelCost, 1e-9)
			assert.InDelta(t, tt.want.TollCost, got.TollCost, 1e-9)
			assert.InDelta(t, tt.want.OtherCosts, got.OtherCosts, 1e-9)
			assert.InDelta(t, tt.want.TotalCost, got.TotalCost, 1e-9)
			assert.InDelta(t, tt.want.Profit, got.Profit, 1e-9)
			assert.InDelta(t, tt.want.ProfitMargin, got.ProfitMargin, 1e-9)
		})
	}
}

func TestEstimateFuel_NonPositiveInputs(t *testing.T) {
	t.Parallel()

	assert.Zero(t, EstimateFuel(100, 0, 6))
	assert.Zero(t, EstimateFuel(0, 3, 6))
	assert.Zero(t, EstimateFuel(100, 3, 0))
	assert.InDelta(t, 200, EstimateFuel(100, 3, 6), 1e-9)
}
