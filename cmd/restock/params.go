package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/config"
	"github.com/andresuchdata/restock-go/internal/domain"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

const dateLayout = "2006-01-02"

// paramFlags override the engine parameters read from the configuration.
func paramFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "reference-date", Usage: "Run date as YYYY-MM-DD (default today)", EnvVars: []string{"REFERENCE_DATE"}},
		&cli.StringFlag{Name: "event", Usage: "Force the target event (BSS, PD, PBDD, BFCM)", EnvVars: []string{"EVENT"}},
		&cli.StringFlag{Name: "key-mode", Usage: "Entity key: asin or sku", EnvVars: []string{"KEY_MODE"}},
		&cli.IntFlag{Name: "long-term-days", Usage: "Long velocity window", EnvVars: []string{"LONG_TERM_DAYS"}},
		&cli.IntFlag{Name: "short-term-days", Usage: "Short velocity window", EnvVars: []string{"SHORT_TERM_DAYS"}},
		&cli.Float64Flag{Name: "spike-ratio", Usage: "Short/long velocity ratio above which the damped blend is used", EnvVars: []string{"SPIKE_RATIO"}},
		&cli.Float64Flag{Name: "strong-velocity-threshold", Usage: "Units/day from which an entity's best event multiplier is trusted", EnvVars: []string{"STRONG_VELOCITY_THRESHOLD"}},
		&cli.IntFlag{Name: "coverage-days", Usage: "Stock cover beyond the event horizon", EnvVars: []string{"COVERAGE_DAYS"}},
		&cli.BoolFlag{Name: "include-events", Usage: "Keep event days in the velocity windows", EnvVars: []string{"INCLUDE_EVENTS"}},
		&cli.StringFlag{Name: "sales-max-date", Usage: "Last sales date used (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "inventory-max-date", Usage: "Last inventory snapshot date used (YYYY-MM-DD)"},
	}
}

// applyFlags copies every flag the user set onto the configuration.
func applyFlags(c *cli.Context, rc *config.RestockConfig) {
	if c.IsSet("reference-date") {
		rc.ReferenceDate = c.String("reference-date")
	}
	if c.IsSet("event") {
		rc.Event = c.String("event")
	}
	if c.IsSet("key-mode") {
		rc.KeyMode = c.String("key-mode")
	}
	if c.IsSet("long-term-days") {
		rc.LongTermDays = c.Int("long-term-days")
	}
	if c.IsSet("short-term-days") {
		rc.ShortTermDays = c.Int("short-term-days")
	}
	if c.IsSet("spike-ratio") {
		rc.SpikeRatio = c.Float64("spike-ratio")
	}
	if c.IsSet("strong-velocity-threshold") {
		rc.StrongVelocityThreshold = c.Float64("strong-velocity-threshold")
	}
	if c.IsSet("coverage-days") {
		rc.CoverageDays = c.Int("coverage-days")
	}
	if c.IsSet("include-events") {
		rc.IncludeEvents = c.Bool("include-events")
	}
}

// buildParams turns the configuration into engine parameters. today is
// captured once by the caller and used when no reference date is set.
func buildParams(rc config.RestockConfig, today time.Time) (restock.Params, error) {
	ref := calendar.DateOnly(today)
	if rc.ReferenceDate != "" {
		parsed, err := time.Parse(dateLayout, rc.ReferenceDate)
		if err != nil {
			return restock.Params{}, fmt.Errorf("invalid reference date %q: %w", rc.ReferenceDate, err)
		}
		ref = parsed
	}

	p := restock.DefaultParams(ref)
	p.IncludeEvents = rc.IncludeEvents
	if rc.LongTermDays != 0 {
		p.LongTermDays = rc.LongTermDays
	}
	if rc.ShortTermDays != 0 {
		p.ShortTermDays = rc.ShortTermDays
	}
	if rc.SpikeRatio != 0 {
		p.SpikeRatio = rc.SpikeRatio
	}
	if rc.StrongVelocityThreshold != 0 {
		p.StrongVelocityThreshold = rc.StrongVelocityThreshold
	}
	if rc.CoverageDays != 0 {
		p.CoverageDays = rc.CoverageDays
	}
	if rc.InventoryLookbackAttempts != 0 {
		p.InventoryLookbackAttempts = rc.InventoryLookbackAttempts
	}
	if rc.KeyMode != "" {
		p.KeyMode = restock.KeyMode(strings.ToLower(rc.KeyMode))
	}
	if rc.Event != "" {
		p.Event = domain.Event(strings.ToUpper(rc.Event))
	}
	return p, nil
}

// applyMaxDates sets the optional window bounds given on the command line.
func applyMaxDates(c *cli.Context, p *restock.Params) error {
	for _, f := range []struct {
		name string
		dst  *time.Time
	}{
		{"sales-max-date", &p.SalesMaxDate},
		{"inventory-max-date", &p.InventoryMaxDate},
	} {
		raw := c.String(f.name)
		if raw == "" {
			continue
		}
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, raw, err)
		}
		*f.dst = date
	}
	return nil
}

func projectionFlags() []cli.Flag {
	return append(paramFlags(),
		&cli.IntFlag{Name: "days", Usage: "Days to project past the reference date", Value: restock.DefaultProjectionDays},
		&cli.IntFlag{Name: "velocity-days", Usage: "Event-free window of the starting velocity", Value: restock.DefaultProjectionLongTermDays},
		&cli.StringFlag{Name: "history-from", Usage: "First day of the seasonality history (YYYY-MM-DD)", EnvVars: []string{"PROJECTION_HISTORY_FROM"}},
	)
}

func projectionOptions(c *cli.Context) (restock.ProjectionOptions, error) {
	opts := restock.ProjectionOptions{
		Days:         c.Int("days"),
		LongTermDays: c.Int("velocity-days"),
	}
	if opts.Days < 0 || opts.LongTermDays < 0 {
		return opts, fmt.Errorf("days and velocity-days must not be negative")
	}
	if raw := c.String("history-from"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			return opts, fmt.Errorf("invalid history-from %q: %w", raw, err)
		}
		opts.HistoryFrom = date
	}
	return opts, nil
}
