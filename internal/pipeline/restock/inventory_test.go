package restock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-go/internal/domain"
)

func TestInventoryResolver_LatestSnapshot(t *testing.T) {
	maxDate := day(2024, time.June, 20)
	snaps := []domain.InventorySnapshot{
		{Date: day(2024, time.June, 19), ASIN: "A", SKU: "A-1", AmzInventory: 99},
		{Date: day(2024, time.June, 20), ASIN: "A", SKU: "A-1", AmzInventory: 10, AmzAvailable: 8, Alert: "Low", HealthyInventoryLevel: 5},
		{Date: day(2024, time.June, 20), ASIN: "A", SKU: "A-2", AmzInventory: 5, AmzAvailable: 4, Alert: "Excess", HealthyInventoryLevel: 1},
		{Date: day(2024, time.June, 20), ASIN: "A", SKU: "A-3", Alert: "Low", StorageType: "nan"},
		{Date: day(2024, time.June, 19), ASIN: "B", SKU: "B-1", AmzInventory: 7},
		{Date: day(2024, time.June, 1), ASIN: "C", SKU: "C-1", AmzInventory: 7},
	}

	r := NewInventoryResolver(KeyASIN)
	rows, warnings := r.Resolve(snaps, maxDate)
	assert.Empty(t, warnings)
	require.Len(t, rows, 2)

	a := rows[0]
	assert.Equal(t, "A", a.EntityID)
	assert.Equal(t, maxDate, a.Date)
	assert.Equal(t, 15.0, a.AmzInventory)
	assert.Equal(t, 12.0, a.AmzAvailable)
	assert.Equal(t, 6.0, a.HealthyInventoryLevel)
	assert.Equal(t, "Excess, Low", a.Alert)
	assert.Empty(t, a.StorageType)

	assert.Equal(t, "B", rows[1].EntityID)
	assert.Equal(t, 7.0, rows[1].AmzInventory)
}

func TestInventoryResolver_StepsBackOverGaps(t *testing.T) {
	maxDate := day(2024, time.June, 20)
	snaps := []domain.InventorySnapshot{snapshot(day(2024, time.June, 16), "A", 4)}

	var seen []DataQualityWarning
	r := NewInventoryResolver(KeyASIN)
	r.OnWarning = func(w DataQualityWarning) { seen = append(seen, w) }

	rows, warnings := r.Resolve(snaps, maxDate)
	require.Len(t, rows, 1)
	assert.Equal(t, 4.0, rows[0].AmzInventory)

	require.Len(t, warnings, 3)
	assert.Equal(t, day(2024, time.June, 19), warnings[0].Date)
	assert.Equal(t, day(2024, time.June, 18), warnings[1].Date)
	assert.Equal(t, day(2024, time.June, 17), warnings[2].Date)
	assert.Equal(t, 3, warnings[2].Attempt)
	assert.Equal(t, warnings, seen)
}

func TestInventoryResolver_ExhaustedLookback(t *testing.T) {
	maxDate := day(2024, time.June, 20)
	snaps := []domain.InventorySnapshot{snapshot(day(2024, time.May, 1), "A", 4)}

	rows, warnings := NewInventoryResolver(KeyASIN).Resolve(snaps, maxDate)
	assert.Empty(t, rows)
	require.Len(t, warnings, DefaultInventoryLookbackAttempts+1)
	assert.Contains(t, warnings[len(warnings)-1].Message, "exhausted")
}

func TestInventoryResolver_SKUModeSkipsHealthFields(t *testing.T) {
	maxDate := day(2024, time.June, 20)
	snaps := []domain.InventorySnapshot{
		{Date: maxDate, ASIN: "A", SKU: "A-1", AmzInventory: 3, Alert: "Low", HealthyInventoryLevel: 9},
		{Date: maxDate, ASIN: "A", SKU: "A-2", AmzInventory: 2},
	}

	rows, _ := NewInventoryResolver(KeySKU).Resolve(snaps, maxDate)
	require.Len(t, rows, 2)
	assert.Equal(t, "A-1", rows[0].EntityID)
	assert.Equal(t, 3.0, rows[0].AmzInventory)
	assert.Empty(t, rows[0].Alert)
	assert.Zero(t, rows[0].HealthyInventoryLevel)
}

func TestDataQualityWarning_String(t *testing.T) {
	w := DataQualityWarning{Date: day(2024, time.June, 19), Attempt: 2, Message: "gap"}
	assert.Equal(t, "gap (date 2024-06-19, attempt 2)", w.String())
}
