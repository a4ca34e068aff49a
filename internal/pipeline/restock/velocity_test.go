package restock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/domain"
)

func newTestEstimator(t *testing.T, long, short int) *VelocityEstimator {
	t.Helper()
	cal, err := calendar.New()
	require.NoError(t, err)

	v := NewVelocityEstimator(cal)
	v.LongTermDays = long
	v.ShortTermDays = short
	return v
}

func sale(date time.Time, asin string, units, dollars float64) domain.SalesRecord {
	return domain.SalesRecord{Date: date, EntityID: asin, SKU: asin + "-SKU", UnitSales: units, DollarSales: dollars}
}

func TestVelocityEstimator_SpikeGuard(t *testing.T) {
	v := newTestEstimator(t, 40, 2)
	maxDate := day(2024, time.June, 30)

	sales := []domain.SalesRecord{
		sale(maxDate, "X", 50, 500),
		sale(maxDate.AddDate(0, 0, -1), "X", 50, 500),
		sale(maxDate.AddDate(0, 0, -20), "X", 100, 1000),
	}
	isr := []ISRRow{{EntityID: "X", ISR: 1, ISRShort: 1}}

	rows, err := v.Estimate(sales, isr, maxDate)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 50.0, row.AvgUnitsShort)
	assert.Equal(t, 5.0, row.AvgUnitsLong)
	assert.Equal(t, 9.5, row.AvgUnits)
	assert.Equal(t, 500.0, row.AvgDollarsShort)
	assert.Equal(t, 50.0, row.AvgDollarsLong)
	// the units ratio decides the blend for dollars too
	assert.Equal(t, 95.0, row.AvgDollars)
}

func TestVelocityEstimator_RegularBlend(t *testing.T) {
	v := newTestEstimator(t, 10, 2)
	maxDate := day(2024, time.June, 30)

	var sales []domain.SalesRecord
	for i := 0; i < 10; i++ {
		units := 1.0
		if i < 2 {
			units = 3
		}
		sales = append(sales, sale(maxDate.AddDate(0, 0, -i), "Y", units, units*10))
	}
	isr := []ISRRow{{EntityID: "Y", ISR: 0.5, ISRShort: 1}}

	rows, err := v.Estimate(sales, isr, maxDate)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// long: 14 units / 10 days / 0.5 isr, short: 6 / 2 / 1
	assert.Equal(t, 2.8, rows[0].AvgUnitsLong)
	assert.Equal(t, 3.0, rows[0].AvgUnitsShort)
	assert.InDelta(t, 0.6*3.0+0.4*2.8, rows[0].AvgUnits, 1e-9)
	assert.InDelta(t, 29.2, rows[0].AvgDollars, 1e-9)
}

func TestVelocityEstimator_ZeroISRYieldsZero(t *testing.T) {
	v := newTestEstimator(t, 10, 2)
	maxDate := day(2024, time.June, 30)

	sales := []domain.SalesRecord{sale(maxDate, "Z", 4, 40)}

	rows, err := v.Estimate(sales, nil, maxDate)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, VelocityRow{EntityID: "Z"}, rows[0])
}

func TestVelocityEstimator_ZeroLongAverageIsSpike(t *testing.T) {
	v := newTestEstimator(t, 10, 2)
	maxDate := day(2024, time.June, 30)

	sales := []domain.SalesRecord{sale(maxDate, "S", 10, 100)}
	isr := []ISRRow{{EntityID: "S", ISR: 0, ISRShort: 1}}

	rows, err := v.Estimate(sales, isr, maxDate)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].AvgUnitsLong)
	assert.Equal(t, 5.0, rows[0].AvgUnitsShort)
	assert.Equal(t, 0.5, rows[0].AvgUnits)
}

func TestVelocityEstimator_DropsIncompleteLastDay(t *testing.T) {
	v := newTestEstimator(t, 10, 2)
	last := day(2024, time.June, 30)

	sales := []domain.SalesRecord{
		sale(last, "LATE", 10, 100),
		sale(last.AddDate(0, 0, -1), "EARLY", 2, 20),
		sale(last.AddDate(0, 0, -1), "EARLY", 2, 20),
	}
	isr := []ISRRow{{EntityID: "EARLY", ISR: 1, ISRShort: 1}, {EntityID: "LATE", ISR: 1, ISRShort: 1}}

	rows, err := v.Estimate(sales, isr, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "EARLY", rows[0].EntityID)
	assert.Equal(t, 0.4, rows[0].AvgUnitsLong)
	assert.Equal(t, 2.0, rows[0].AvgUnitsShort)
}

func TestVelocityEstimator_SkipsEventDays(t *testing.T) {
	v := NewVelocityEstimator(calendar.Default())
	v.LongTermDays = 3
	v.ShortTermDays = 1
	maxDate := day(2024, time.March, 22)

	// March 20 and 21 are inside the BSS window
	sales := []domain.SalesRecord{
		sale(day(2024, time.March, 21), "E", 100, 100),
		sale(day(2024, time.March, 20), "E", 100, 100),
		sale(day(2024, time.March, 19), "E", 3, 3),
	}
	isr := []ISRRow{{EntityID: "E", ISR: 1, ISRShort: 1}}

	rows, err := v.Estimate(sales, isr, maxDate)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].AvgUnitsLong)

	v.IncludeEvents = true
	rows, err = v.Estimate(sales, isr, maxDate)
	require.NoError(t, err)
	assert.Equal(t, 66.67, rows[0].AvgUnitsLong)
}

func TestVelocityEstimator_DuplicateISR(t *testing.T) {
	v := newTestEstimator(t, 10, 2)
	isr := []ISRRow{{EntityID: "A"}, {EntityID: "A"}}

	_, err := v.Estimate([]domain.SalesRecord{sale(day(2024, time.June, 1), "A", 1, 1)}, isr, day(2024, time.June, 1))
	assert.ErrorIs(t, err, ErrJoinIntegrity)
}

func TestIsSpike(t *testing.T) {
	assert.True(t, isSpike(50, 5, 5))
	assert.False(t, isSpike(25, 5, 5))
	assert.True(t, isSpike(1, 0, 5))
	assert.False(t, isSpike(0, 0, 5))
}
