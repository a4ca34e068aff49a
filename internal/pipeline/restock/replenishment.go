package restock

import "math"

// ReplenishmentInput holds everything needed to size a shipment for one entity.
type ReplenishmentInput struct {
	AvgUnits             float64
	EventForecastedUnits float64
	DaysToEvent          int
	// CutoffDays is the planning horizon of the target event. An event
	// further away than this contributes nothing.
	CutoffDays       int
	CoverageDays     int
	CurrentInventory float64
	WHInventory      float64
	UnitsPerBox      float64
}

// Replenishment is the shipment sizing for one entity.
type Replenishment struct {
	EffectiveDaysToEvent int
	IncludesEvent        bool
	TotalUnitsNeeded     float64
	ToShipUnits          int
	ToShipBoxes          int
}

// CalculateReplenishment derives units and boxes to ship. The result is
// never negative. When nothing is needed but the marketplace is empty while
// the warehouse still holds stock, one unit and one box are shipped.
func CalculateReplenishment(in ReplenishmentInput) Replenishment {
	var out Replenishment
	if in.DaysToEvent >= 0 && in.DaysToEvent <= in.CutoffDays {
		out.EffectiveDaysToEvent = in.DaysToEvent
		out.IncludesEvent = true
	}

	total := in.AvgUnits * float64(out.EffectiveDaysToEvent+in.CoverageDays)
	if out.IncludesEvent {
		total += in.EventForecastedUnits
	}
	out.TotalUnitsNeeded = finite(total)

	shortfall := math.RoundToEven(out.TotalUnitsNeeded - in.CurrentInventory)
	out.ToShipUnits = int(math.Max(0, finite(shortfall)))
	out.ToShipBoxes = int(math.RoundToEven(safeDiv(float64(out.ToShipUnits), in.UnitsPerBox)))

	if out.ToShipUnits == 0 && in.CurrentInventory == 0 && in.WHInventory > 0 {
		out.ToShipUnits = 1
		out.ToShipBoxes = 1
	}
	return out
}
