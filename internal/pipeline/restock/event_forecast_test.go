package restock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-go/internal/domain"
)

func mustDefinition(t *testing.T, e domain.Event) domain.EventDefinition {
	t.Helper()
	def, ok := domain.LookupEvent(e)
	require.True(t, ok)
	return def
}

func TestForecastEvent(t *testing.T) {
	pd := mustDefinition(t, domain.EventPD)

	velocity := []VelocityRow{
		{EntityID: "WEAK", AvgUnits: 2},
		{EntityID: "STRONG", AvgUnits: 4},
		{EntityID: "NEW", AvgUnits: 1},
		{EntityID: "EDGE", AvgUnits: 3},
	}
	perf := []domain.EventPerformanceRecord{
		{EntityID: "WEAK", AverageEventUnitsTotal: 40, BestEventMultiplier: 9},
		{EntityID: "STRONG", AverageEventUnitsTotal: 10, BestEventMultiplier: 5},
		{EntityID: "EDGE", AverageEventUnitsTotal: 0, BestEventMultiplier: 2},
		{EntityID: "UNSOLD", AverageEventUnitsTotal: 100, BestEventMultiplier: 2},
	}

	rows, err := ForecastEvent(velocity, perf, pd, DefaultStrongVelocityThreshold)
	require.NoError(t, err)

	byEntity := make(map[string]EventForecastRow)
	for _, r := range rows {
		byEntity[r.EntityID] = r
	}
	require.Len(t, byEntity, 4)

	// (40 + 2*4*2) / 2
	assert.Equal(t, 28.0, byEntity["WEAK"].ForecastedUnits)
	// (10 + 4*5) / 2
	assert.Equal(t, 15.0, byEntity["STRONG"].ForecastedUnits)
	// no history: (0 + 1*4*2) / 2
	assert.Equal(t, 4.0, byEntity["NEW"].ForecastedUnits)
	assert.Equal(t, 0.0, byEntity["NEW"].BestEventMultiplier)
	// the threshold is inclusive
	assert.Equal(t, 3.0, byEntity["EDGE"].ForecastedUnits)

	_, ok := byEntity["UNSOLD"]
	assert.False(t, ok)
}

func TestForecastEvent_Errors(t *testing.T) {
	pd := mustDefinition(t, domain.EventPD)

	_, err := ForecastEvent([]VelocityRow{{AvgUnits: 1}}, nil, pd, 3)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.True(t, IsConfigurationError(err))

	_, err = ForecastEvent([]VelocityRow{{EntityID: "A"}, {EntityID: "A"}}, nil, pd, 3)
	assert.ErrorIs(t, err, ErrJoinIntegrity)

	perf := []domain.EventPerformanceRecord{{EntityID: "A"}, {EntityID: "A"}}
	_, err = ForecastEvent([]VelocityRow{{EntityID: "A"}}, perf, pd, 3)
	assert.ErrorIs(t, err, ErrJoinIntegrity)
}

func TestFilterEventSheet(t *testing.T) {
	pd := mustDefinition(t, domain.EventPD)
	sheet := domain.EventSheet{
		Header: eventSheetHeader(),
		Rows: [][]string{
			eventSheetRow("A", domain.EventPD, "40", "3.5"),
			eventSheetRow("B", domain.EventPD, "", " 1,200 "),
			eventSheetRow("", domain.EventPD, "1", "1"),
			{"C"},
		},
	}

	records, err := FilterEventSheet(sheet, pd)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventPerformanceRecord{
		{EntityID: "A", AverageEventUnitsTotal: 40, BestEventMultiplier: 3.5},
		{EntityID: "B", AverageEventUnitsTotal: 0, BestEventMultiplier: 1200},
		{EntityID: "C"},
	}, records)
}

func TestFilterEventSheet_MissingColumn(t *testing.T) {
	pd := mustDefinition(t, domain.EventPD)
	sheet := domain.EventSheet{Header: []string{"ASIN", pd.AverageColumn}}

	_, err := FilterEventSheet(sheet, pd)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), pd.BestColumn)
}

func TestFilterEventSheet_BadNumberAndDuplicates(t *testing.T) {
	pd := mustDefinition(t, domain.EventPD)

	sheet := domain.EventSheet{
		Header: eventSheetHeader(),
		Rows:   [][]string{eventSheetRow("A", domain.EventPD, "lots", "1")},
	}
	_, err := FilterEventSheet(sheet, pd)
	assert.Error(t, err)

	sheet.Rows = [][]string{
		eventSheetRow("A", domain.EventPD, "1", "1"),
		eventSheetRow("A", domain.EventPD, "2", "2"),
	}
	_, err = FilterEventSheet(sheet, pd)
	assert.ErrorIs(t, err, ErrJoinIntegrity)
}
