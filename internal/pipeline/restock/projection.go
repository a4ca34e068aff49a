package restock

import (
	"sort"
	"time"

	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/domain"
)

const (
	// SeasonalityWindow is the trailing mean a day's sales are compared
	// against, and the memory of the projected demand level.
	SeasonalityWindow = 180
	// SeasonalitySmoothing is the rolling mean applied to the raw ratios.
	SeasonalitySmoothing = 7

	DefaultProjectionDays         = 500
	DefaultProjectionLongTermDays = 365
	DefaultProjectionHistoryDays  = 3 * 365
)

// MonthDay identifies a calendar day independent of the year.
type MonthDay struct {
	Month time.Month
	Day   int
}

func monthDayOf(t time.Time) MonthDay {
	return MonthDay{Month: t.Month(), Day: t.Day()}
}

// Seasonality holds the average demand coefficient of every day of the year
// seen in the history. A coefficient of 1 is an average day.
type Seasonality struct {
	coeffs map[MonthDay]float64
}

// Len reports how many days of the year carry a coefficient.
func (s Seasonality) Len() int {
	return len(s.coeffs)
}

// Coefficient returns the coefficient of date's day of year. Days missing
// from the history take the next known day. An empty table yields 1.
func (s Seasonality) Coefficient(date time.Time) float64 {
	if len(s.coeffs) == 0 {
		return 1
	}
	// 2024 is a leap year so the walk visits Feb 29 as well
	d := time.Date(2024, date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < 366; i++ {
		if c, ok := s.coeffs[monthDayOf(d)]; ok {
			return c
		}
		d = d.AddDate(0, 0, 1)
		if d.Year() > 2024 {
			d = d.AddDate(-1, 0, 0)
		}
	}
	return 1
}

// BuildSeasonality derives day of year coefficients from the store-wide daily
// unit totals. Event days are left out. Each day is divided by the mean of the
// trailing SeasonalityWindow days, the ratios are smoothed over
// SeasonalitySmoothing days, and only days in [from, to) are averaged per day
// of year. A zero from keeps all history.
func BuildSeasonality(sales []domain.SalesRecord, cal *calendar.Calendar, from, to time.Time) Seasonality {
	if cal == nil {
		cal = calendar.Default()
	}
	from, to = calendar.DateOnly(from), calendar.DateOnly(to)

	totals := make(map[time.Time]float64)
	for _, s := range sales {
		totals[calendar.DateOnly(s.Date)] += s.UnitSales
	}
	dates := make([]time.Time, 0, len(totals))
	for d := range totals {
		if _, ok := cal.IsEvent(d); ok {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// ratio[i] is only defined once a full trailing window exists
	ratio := make([]float64, len(dates))
	defined := make([]bool, len(dates))
	var windowSum float64
	for i, d := range dates {
		windowSum += totals[d]
		if i >= SeasonalityWindow {
			windowSum -= totals[dates[i-SeasonalityWindow]]
		}
		if i < SeasonalityWindow-1 {
			continue
		}
		avg := windowSum / SeasonalityWindow
		if avg <= 0 {
			continue
		}
		ratio[i] = totals[d] / avg
		defined[i] = true
	}

	sums := make(map[MonthDay]float64)
	counts := make(map[MonthDay]int)
	for i, d := range dates {
		if d.Before(from) || !d.Before(to) || i < SeasonalitySmoothing-1 {
			continue
		}
		var sum float64
		ok := true
		for j := i - SeasonalitySmoothing + 1; j <= i; j++ {
			if !defined[j] {
				ok = false
				break
			}
			sum += ratio[j]
		}
		if !ok {
			continue
		}
		md := monthDayOf(d)
		sums[md] += sum / SeasonalitySmoothing
		counts[md]++
	}

	coeffs := make(map[MonthDay]float64, len(sums))
	for md, sum := range sums {
		coeffs[md] = sum / float64(counts[md])
	}
	return Seasonality{coeffs: coeffs}
}

// ProjectionRow is the daily demand outlook of one entity.
type ProjectionRow struct {
	EntityID string    `json:"entity_id"`
	AvgUnits float64   `json:"avg_units"`
	AvgPrice float64   `json:"avg_price"`
	Units    []float64 `json:"units"`
	Dollars  []float64 `json:"dollars"`
}

// Projection is a day by day sales outlook. Units and Dollars of every row
// line up with Dates.
type Projection struct {
	Start time.Time       `json:"start"`
	Days  int             `json:"days"`
	Dates []time.Time     `json:"dates"`
	Rows  []ProjectionRow `json:"rows"`
}

// ProjectDemand rolls each entity's velocity forward from start through
// start+days. Every day's units are the current level times the day's
// seasonal coefficient, and the level then moves 1/SeasonalityWindow of the
// way towards that day. Dollars use the entity's average unit price.
func ProjectDemand(velocity []VelocityRow, s Seasonality, start time.Time, days int) *Projection {
	if days < 0 {
		days = 0
	}
	start = calendar.DateOnly(start)

	dates := make([]time.Time, days+1)
	coeffs := make([]float64, days+1)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
		coeffs[i] = s.Coefficient(dates[i])
	}

	sorted := make([]VelocityRow, len(velocity))
	copy(sorted, velocity)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EntityID < sorted[j].EntityID })

	const keep = float64(SeasonalityWindow-1) / SeasonalityWindow
	rows := make([]ProjectionRow, 0, len(sorted))
	for _, v := range sorted {
		row := ProjectionRow{
			EntityID: v.EntityID,
			AvgUnits: v.AvgUnits,
			AvgPrice: roundFloat(safeDiv(v.AvgDollars, v.AvgUnits), 2),
			Units:    make([]float64, len(dates)),
			Dollars:  make([]float64, len(dates)),
		}
		level := v.AvgUnits
		for i := range dates {
			units := level * coeffs[i]
			row.Units[i] = roundFloat(units, 2)
			row.Dollars[i] = roundFloat(units*row.AvgPrice, 2)
			level = level*keep + units/SeasonalityWindow
		}
		rows = append(rows, row)
	}

	return &Projection{Dates: dates, Rows: rows, Days: days, Start: start}
}

// ProjectionOptions tunes Calculator.Project. Zero fields take the defaults.
type ProjectionOptions struct {
	Days         int
	LongTermDays int
	// HistoryFrom is the first day whose coefficient enters the seasonality
	// table. Earlier sales still feed the trailing means.
	HistoryFrom time.Time
}

func (o ProjectionOptions) withDefaults(today time.Time) ProjectionOptions {
	if o.Days == 0 {
		o.Days = DefaultProjectionDays
	}
	if o.LongTermDays == 0 {
		o.LongTermDays = DefaultProjectionLongTermDays
	}
	if o.HistoryFrom.IsZero() {
		o.HistoryFrom = today.AddDate(0, 0, -DefaultProjectionHistoryDays)
	}
	return o
}

// Project builds the long range sales outlook. The starting level of each
// entity is its event-free velocity over opts.LongTermDays.
func (c *Calculator) Project(in Inputs, p Params, opts ProjectionOptions) (*Projection, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}
	if opts.Days < 0 || opts.LongTermDays < 0 {
		return nil, configError(ErrInvalidParameter, "projection days and window must not be negative")
	}
	today := calendar.DateOnly(p.ReferenceDate)
	opts = opts.withDefaults(today)

	isr := EstimateISR(in.Inventory, p.InventoryMaxDate, p.KeyMode)
	estimator := &VelocityEstimator{
		Calendar:      c.cal,
		LongTermDays:  opts.LongTermDays,
		ShortTermDays: p.ShortTermDays,
		SpikeRatio:    p.SpikeRatio,
		KeyMode:       p.KeyMode,
	}
	velocity, err := estimator.Estimate(in.Sales, isr, p.SalesMaxDate)
	if err != nil {
		return nil, err
	}

	seasonality := BuildSeasonality(in.Sales, c.cal, opts.HistoryFrom, today)
	return ProjectDemand(velocity, seasonality, today, opts.Days), nil
}
