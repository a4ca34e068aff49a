package restock

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/andresuchdata/restock-go/internal/domain"
)

// poorPerformanceMultiplier scales the plain velocity over the event duration
// for entities whose own best multiplier is not trusted.
const poorPerformanceMultiplier = 2

// EventForecastRow is the expected total units an entity sells during an event.
type EventForecastRow struct {
	EntityID               string  `json:"entity_id"`
	AverageEventUnitsTotal float64 `json:"average_event_units_total"`
	BestEventMultiplier    float64 `json:"best_event_performance_multiplier"`
	ForecastedUnits        float64 `json:"event_forecasted_units"`
}

// FilterEventSheet extracts the entity, average and best performance columns
// of one event from the full event sheet. Blank cells read as 0.
func FilterEventSheet(sheet domain.EventSheet, def domain.EventDefinition) ([]domain.EventPerformanceRecord, error) {
	idxEntity := columnIndex(sheet.Header, domain.EventEntityColumn)
	idxAvg := columnIndex(sheet.Header, def.AverageColumn)
	idxBest := columnIndex(sheet.Header, def.BestColumn)

	var missing []string
	if idxEntity < 0 {
		missing = append(missing, domain.EventEntityColumn)
	}
	if idxAvg < 0 {
		missing = append(missing, def.AverageColumn)
	}
	if idxBest < 0 {
		missing = append(missing, def.BestColumn)
	}
	if len(missing) > 0 {
		return nil, configError(ErrMissingColumn, "event sheet for %s lacks %s", def.Event, strings.Join(missing, ", "))
	}

	seen := make(map[string]struct{}, len(sheet.Rows))
	records := make([]domain.EventPerformanceRecord, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		entity := cell(row, idxEntity)
		if entity == "" {
			continue
		}
		if _, dup := seen[entity]; dup {
			return nil, integrityError("event sheet lists %s more than once", entity)
		}
		seen[entity] = struct{}{}

		avg, err := parseSheetNumber(cell(row, idxAvg))
		if err != nil {
			return nil, fmt.Errorf("event sheet row %d, column %q: %w", i+2, def.AverageColumn, err)
		}
		best, err := parseSheetNumber(cell(row, idxBest))
		if err != nil {
			return nil, fmt.Errorf("event sheet row %d, column %q: %w", i+2, def.BestColumn, err)
		}

		records = append(records, domain.EventPerformanceRecord{
			EntityID:               entity,
			AverageEventUnitsTotal: avg,
			BestEventMultiplier:    best,
		})
	}
	return records, nil
}

// ForecastEvent averages the historical event total with a velocity based
// estimate. Entities at or above strongThreshold units/day scale with their
// best event multiplier, the rest with a flat duration based estimate.
// Entities missing from the performance records default to 0 for both inputs.
func ForecastEvent(velocity []VelocityRow, performance []domain.EventPerformanceRecord, def domain.EventDefinition, strongThreshold float64) ([]EventForecastRow, error) {
	perfByEntity := make(map[string]domain.EventPerformanceRecord, len(performance))
	for _, p := range performance {
		if _, dup := perfByEntity[p.EntityID]; dup {
			return nil, integrityError("duplicate event performance for %s", p.EntityID)
		}
		perfByEntity[p.EntityID] = p
	}

	duration := float64(def.DurationDays)
	seen := make(map[string]struct{}, len(velocity))
	rows := make([]EventForecastRow, 0, len(velocity))
	for _, v := range velocity {
		if v.EntityID == "" {
			return nil, configError(ErrMissingColumn, "velocity table row without entity_id")
		}
		if _, dup := seen[v.EntityID]; dup {
			return nil, integrityError("duplicate velocity row for %s", v.EntityID)
		}
		seen[v.EntityID] = struct{}{}

		perf := perfByEntity[v.EntityID]
		baseline := perf.AverageEventUnitsTotal

		var estimate float64
		if v.AvgUnits >= strongThreshold {
			estimate = v.AvgUnits * perf.BestEventMultiplier
		} else {
			estimate = v.AvgUnits * duration * poorPerformanceMultiplier
		}

		rows = append(rows, EventForecastRow{
			EntityID:               v.EntityID,
			AverageEventUnitsTotal: baseline,
			BestEventMultiplier:    perf.BestEventMultiplier,
			ForecastedUnits:        finite((baseline + estimate) / 2),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].EntityID < rows[j].EntityID })
	return rows, nil
}

func columnIndex(header []string, name string) int {
	target := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == target {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseSheetNumber(v string) (float64, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", v)
	}
	return finite(f), nil
}
