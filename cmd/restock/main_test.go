package main

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/restock-go/internal/config"
	"github.com/andresuchdata/restock-go/internal/domain"
	"github.com/andresuchdata/restock-go/internal/pipeline"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

func TestBuildParams_Defaults(t *testing.T) {
	today := time.Date(2024, time.July, 1, 15, 30, 0, 0, time.UTC)

	p, err := buildParams(config.RestockConfig{}, today)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), p.ReferenceDate)
	assert.Equal(t, restock.DefaultLongTermDays, p.LongTermDays)
	assert.Equal(t, restock.KeyASIN, p.KeyMode)
	assert.Empty(t, p.Event)
}

func TestBuildParams_FromConfig(t *testing.T) {
	rc := config.RestockConfig{
		ReferenceDate: "2024-08-15",
		LongTermDays:  90,
		ShortTermDays: 7,
		IncludeEvents: true,
		SpikeRatio:    4,
		CoverageDays:  30,
		KeyMode:       "SKU",
		Event:         "bfcm",
	}

	p, err := buildParams(rc, time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC), p.ReferenceDate)
	assert.Equal(t, 90, p.LongTermDays)
	assert.Equal(t, 7, p.ShortTermDays)
	assert.True(t, p.IncludeEvents)
	assert.Equal(t, 4.0, p.SpikeRatio)
	assert.Equal(t, 30, p.CoverageDays)
	assert.Equal(t, restock.KeySKU, p.KeyMode)
	assert.Equal(t, domain.EventBFCM, p.Event)
}

func TestBuildParams_BadDate(t *testing.T) {
	_, err := buildParams(config.RestockConfig{ReferenceDate: "01/07/2024"}, time.Now())
	require.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range paramFlags() {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{
		"--event", "PD", "--long-term-days", "60", "--inventory-max-date", "2024-06-30",
		"--spike-ratio", "8", "--strong-velocity-threshold", "2.5",
	}))
	c := cli.NewContext(cli.NewApp(), set, nil)

	rc := config.RestockConfig{Event: "BFCM", LongTermDays: 180, KeyMode: "asin"}
	applyFlags(c, &rc)
	assert.Equal(t, "PD", rc.Event)
	assert.Equal(t, 60, rc.LongTermDays)
	assert.Equal(t, 8.0, rc.SpikeRatio)
	assert.Equal(t, 2.5, rc.StrongVelocityThreshold)
	assert.Equal(t, "asin", rc.KeyMode)

	p := restock.DefaultParams(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, applyMaxDates(c, &p))
	assert.Equal(t, time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), p.InventoryMaxDate)
	assert.True(t, p.SalesMaxDate.IsZero())
}

func TestPrintSummary(t *testing.T) {
	outcome := &pipeline.Outcome{
		Result: &restock.Result{
			ReferenceDate:     time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
			Event:             domain.EventPD,
			EventDate:         time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC),
			DaysToEvent:       9,
			EventDurationDays: 4,
			Rows:              []domain.ForecastRow{{ToShipUnits: 114, ToShipBoxes: 10}, {ToShipUnits: 1, ToShipBoxes: 1}},
			Warnings:          []restock.DataQualityWarning{{Date: time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), Attempt: 1, Message: "no inventory"}},
		},
		Files: []string{"out/restock_forecast_2024-07-01_PD.csv"},
	}

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, outcome))
	out := buf.String()
	assert.Contains(t, out, "PD on 2024-07-10 (9 days, lasts 4)")
	assert.Contains(t, out, "115 units in 11 boxes")
	assert.Contains(t, out, "no inventory (date 2024-06-30, attempt 1)")
	assert.Contains(t, out, "wrote:          out/restock_forecast_2024-07-01_PD.csv")
}

func TestBuildSources_Dir(t *testing.T) {
	cfg := config.New()
	cfg.App.InputSource = "dir"
	cfg.App.InputDir = t.TempDir()

	sources, err := buildSources(t.Context(), cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, sources.Sales)
	assert.NotNil(t, sources.EventSheet)
}

func TestBuildSources_RequiresBackends(t *testing.T) {
	cfg := config.New()
	cfg.App.InputDir = t.TempDir()

	for _, name := range []string{"postgres", "storage", "drive", "ftp"} {
		cfg.App.InputSource = name
		_, err := buildSources(t.Context(), cfg, nil, nil, nil)
		assert.Error(t, err, name)
	}
}

func projectionContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range projectionFlags() {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestProjectionOptions(t *testing.T) {
	opts, err := projectionOptions(projectionContext(t))
	require.NoError(t, err)
	assert.Equal(t, restock.DefaultProjectionDays, opts.Days)
	assert.Equal(t, restock.DefaultProjectionLongTermDays, opts.LongTermDays)
	assert.True(t, opts.HistoryFrom.IsZero())

	opts, err = projectionOptions(projectionContext(t, "--days", "30", "--velocity-days", "90", "--history-from", "2023-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 30, opts.Days)
	assert.Equal(t, 90, opts.LongTermDays)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), opts.HistoryFrom)

	_, err = projectionOptions(projectionContext(t, "--history-from", "01/01/2023"))
	require.Error(t, err)
	_, err = projectionOptions(projectionContext(t, "--days", "-1"))
	require.Error(t, err)
}
