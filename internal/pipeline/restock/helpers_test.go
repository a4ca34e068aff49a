package restock

import (
	"time"

	"github.com/andresuchdata/restock-go/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func snapshot(date time.Time, asin string, inventory float64) domain.InventorySnapshot {
	return domain.InventorySnapshot{Date: date, ASIN: asin, SKU: asin + "-SKU", AmzInventory: inventory, AmzAvailable: inventory}
}

// eventSheetHeader lists the entity column followed by every event's columns.
func eventSheetHeader() []string {
	header := []string{domain.EventEntityColumn}
	for _, def := range domain.EventDefinitions() {
		header = append(header, def.AverageColumn, def.BestColumn)
	}
	return header
}

// eventSheetRow fills only the columns of e; the rest are blank.
func eventSheetRow(entity string, e domain.Event, avg, best string) []string {
	row := []string{entity}
	for _, def := range domain.EventDefinitions() {
		if def.Event == e {
			row = append(row, avg, best)
			continue
		}
		row = append(row, "", "")
	}
	return row
}
