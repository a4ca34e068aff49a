package restock

import (
	"sort"
	"time"

	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/domain"
)

// shortISRWindowDays is the length of the trailing in-stock window, inclusive
// of the max date.
const shortISRWindowDays = 14

// ISRRow is the in-stock rate of one entity over the long and short windows.
type ISRRow struct {
	EntityID string  `json:"entity_id"`
	ISR      float64 `json:"isr"`
	ISRShort float64 `json:"isr_short"`
}

type dateKey struct {
	date time.Time
	key  string
}

// EstimateISR computes, per entity, the fraction of snapshot days with
// positive inventory. Snapshots of the same (date, entity) are summed first.
// A zero maxDate uses the latest snapshot date. Entities without a snapshot
// inside the short window get ISRShort 0.
func EstimateISR(snapshots []domain.InventorySnapshot, maxDate time.Time, mode KeyMode) []ISRRow {
	if len(snapshots) == 0 {
		return nil
	}

	if maxDate.IsZero() {
		for _, s := range snapshots {
			if d := calendar.DateOnly(s.Date); d.After(maxDate) {
				maxDate = d
			}
		}
	}
	maxDate = calendar.DateOnly(maxDate)
	shortStart := maxDate.AddDate(0, 0, -(shortISRWindowDays - 1))

	daily := make(map[dateKey]float64)
	for _, s := range snapshots {
		key := snapshotKey(s, mode)
		if key == "" {
			continue
		}
		d := calendar.DateOnly(s.Date)
		if d.After(maxDate) {
			continue
		}
		daily[dateKey{date: d, key: key}] += s.AmzInventory
	}

	type counter struct {
		days, inStock           int
		shortDays, shortInStock int
	}
	counts := make(map[string]*counter)
	for dk, qty := range daily {
		c, ok := counts[dk.key]
		if !ok {
			c = &counter{}
			counts[dk.key] = c
		}
		inStock := qty > 0
		c.days++
		if inStock {
			c.inStock++
		}
		if !dk.date.Before(shortStart) {
			c.shortDays++
			if inStock {
				c.shortInStock++
			}
		}
	}

	rows := make([]ISRRow, 0, len(counts))
	for key, c := range counts {
		rows = append(rows, ISRRow{
			EntityID: key,
			ISR:      roundFloat(safeDiv(float64(c.inStock), float64(c.days)), 2),
			ISRShort: roundFloat(safeDiv(float64(c.shortInStock), float64(c.shortDays)), 2),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EntityID < rows[j].EntityID })
	return rows
}

func snapshotKey(s domain.InventorySnapshot, mode KeyMode) string {
	if mode == KeySKU {
		return s.SKU
	}
	return s.ASIN
}
