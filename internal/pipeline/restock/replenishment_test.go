package restock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateReplenishment(t *testing.T) {
	tests := []struct {
		name string
		in   ReplenishmentInput
		want Replenishment
	}{
		{
			name: "event within cutoff",
			in: ReplenishmentInput{
				AvgUnits: 2, EventForecastedUnits: 28, DaysToEvent: 10, CutoffDays: 90,
				CoverageDays: 49, CurrentInventory: 50, UnitsPerBox: 10,
			},
			want: Replenishment{EffectiveDaysToEvent: 10, IncludesEvent: true, TotalUnitsNeeded: 146, ToShipUnits: 96, ToShipBoxes: 10},
		},
		{
			name: "event beyond cutoff is ignored",
			in: ReplenishmentInput{
				AvgUnits: 2, EventForecastedUnits: 28, DaysToEvent: 120, CutoffDays: 90,
				CoverageDays: 49, UnitsPerBox: 12,
			},
			want: Replenishment{TotalUnitsNeeded: 98, ToShipUnits: 98, ToShipBoxes: 8},
		},
		{
			name: "short cutoff",
			in: ReplenishmentInput{
				AvgUnits: 1, EventForecastedUnits: 10, DaysToEvent: 46, CutoffDays: 45,
				CoverageDays: 49, UnitsPerBox: 7,
			},
			want: Replenishment{TotalUnitsNeeded: 49, ToShipUnits: 49, ToShipBoxes: 7},
		},
		{
			name: "overstocked",
			in: ReplenishmentInput{
				AvgUnits: 1, DaysToEvent: 10, CutoffDays: 90, CoverageDays: 49,
				CurrentInventory: 500, WHInventory: 20, UnitsPerBox: 6,
			},
			want: Replenishment{EffectiveDaysToEvent: 10, IncludesEvent: true, TotalUnitsNeeded: 59},
		},
		{
			name: "empty marketplace with warehouse stock ships a trickle",
			in: ReplenishmentInput{
				DaysToEvent: 10, CutoffDays: 90, CoverageDays: 49, WHInventory: 5, UnitsPerBox: 6,
			},
			want: Replenishment{EffectiveDaysToEvent: 10, IncludesEvent: true, ToShipUnits: 1, ToShipBoxes: 1},
		},
		{
			name: "unknown box size",
			in: ReplenishmentInput{
				AvgUnits: 1, DaysToEvent: 200, CutoffDays: 90, CoverageDays: 49,
			},
			want: Replenishment{TotalUnitsNeeded: 49, ToShipUnits: 49},
		},
		{
			name: "boxes round half to even",
			in: ReplenishmentInput{
				AvgUnits: 1, DaysToEvent: 200, CutoffDays: 90, CoverageDays: 49, CurrentInventory: 4, UnitsPerBox: 18,
			},
			want: Replenishment{TotalUnitsNeeded: 49, ToShipUnits: 45, ToShipBoxes: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateReplenishment(tt.in))
		})
	}
}

func TestCalculateReplenishment_NeverNegative(t *testing.T) {
	for _, avg := range []float64{0, 0.3, 2, 40} {
		for _, current := range []float64{-5, 0, 10, 1e6} {
			for _, days := range []int{-1, 0, 44, 45, 46, 90, 365} {
				got := CalculateReplenishment(ReplenishmentInput{
					AvgUnits: avg, EventForecastedUnits: 12, DaysToEvent: days, CutoffDays: 45,
					CoverageDays: 49, CurrentInventory: current, WHInventory: 3, UnitsPerBox: 4,
				})
				assert.GreaterOrEqual(t, got.ToShipUnits, 0)
				assert.GreaterOrEqual(t, got.ToShipBoxes, 0)
			}
		}
	}
}
