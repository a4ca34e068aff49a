package restock

import (
	"sort"
	"time"

	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/domain"
)

// Blend weights. The damped pair is used when the short window spikes.
const (
	shortWeight       = 0.6
	longWeight        = 0.4
	dampedShortWeight = 0.1
	dampedLongWeight  = 0.9
)

// VelocityRow is the stock-out corrected sales velocity of one entity.
type VelocityRow struct {
	EntityID        string  `json:"entity_id"`
	ISR             float64 `json:"isr"`
	ISRShort        float64 `json:"isr_short"`
	AvgUnitsShort   float64 `json:"avg_sales_short"`
	AvgUnitsLong    float64 `json:"avg_sales_long"`
	AvgDollarsShort float64 `json:"avg_dollars_short"`
	AvgDollarsLong  float64 `json:"avg_dollars_long"`
	AvgUnits        float64 `json:"avg_units"`
	AvgDollars      float64 `json:"avg_dollars"`
}

// VelocityEstimator blends short and long term daily sales averages.
type VelocityEstimator struct {
	Calendar      *calendar.Calendar
	LongTermDays  int
	ShortTermDays int
	IncludeEvents bool
	SpikeRatio    float64
	KeyMode       KeyMode
}

// NewVelocityEstimator returns an estimator with the default windows.
func NewVelocityEstimator(cal *calendar.Calendar) *VelocityEstimator {
	return &VelocityEstimator{
		Calendar:      cal,
		LongTermDays:  DefaultLongTermDays,
		ShortTermDays: DefaultShortTermDays,
		SpikeRatio:    DefaultSpikeRatio,
		KeyMode:       KeyASIN,
	}
}

type salesTotals struct {
	units, dollars float64
}

// Estimate computes one row per entity that sold inside the long window.
// A zero maxDate uses the latest sales date minus one day, since the most
// recent day is still incomplete.
func (v *VelocityEstimator) Estimate(sales []domain.SalesRecord, isr []ISRRow, maxDate time.Time) ([]VelocityRow, error) {
	if len(sales) == 0 {
		return nil, nil
	}

	isrByKey := make(map[string]ISRRow, len(isr))
	for _, row := range isr {
		if _, dup := isrByKey[row.EntityID]; dup {
			return nil, integrityError("duplicate ISR row for %s", row.EntityID)
		}
		isrByKey[row.EntityID] = row
	}

	if maxDate.IsZero() {
		for _, s := range sales {
			if d := calendar.DateOnly(s.Date); d.After(maxDate) {
				maxDate = d
			}
		}
		maxDate = maxDate.AddDate(0, 0, -1)
	}
	maxDate = calendar.DateOnly(maxDate)

	longDates := dateSet(v.Calendar.NonEventDates(v.LongTermDays, maxDate, v.IncludeEvents))
	shortDates := dateSet(v.Calendar.NonEventDates(v.ShortTermDays, maxDate, v.IncludeEvents))

	long := make(map[string]*salesTotals)
	short := make(map[string]*salesTotals)
	for _, s := range sales {
		key := s.EntityID
		if v.KeyMode == KeySKU {
			key = s.SKU
		}
		if key == "" {
			continue
		}
		d := calendar.DateOnly(s.Date)
		if _, ok := longDates[d]; ok {
			addSales(long, key, s)
		}
		if _, ok := shortDates[d]; ok {
			addSales(short, key, s)
		}
	}

	keys := make([]string, 0, len(long)+len(short))
	for key := range long {
		keys = append(keys, key)
	}
	for key := range short {
		if _, ok := long[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	longDays := float64(v.LongTermDays)
	shortDays := float64(v.ShortTermDays)

	rows := make([]VelocityRow, 0, len(keys))
	for _, key := range keys {
		rates := isrByKey[key]
		lt := totalsOf(long, key)
		st := totalsOf(short, key)

		row := VelocityRow{
			EntityID:        key,
			ISR:             rates.ISR,
			ISRShort:        rates.ISRShort,
			AvgUnitsLong:    roundFloat(safeDiv(safeDiv(lt.units, longDays), rates.ISR), 2),
			AvgDollarsLong:  roundFloat(safeDiv(safeDiv(lt.dollars, longDays), rates.ISR), 2),
			AvgUnitsShort:   roundFloat(safeDiv(safeDiv(st.units, shortDays), rates.ISRShort), 2),
			AvgDollarsShort: roundFloat(safeDiv(safeDiv(st.dollars, shortDays), rates.ISRShort), 2),
		}

		damped := isSpike(row.AvgUnitsShort, row.AvgUnitsLong, v.SpikeRatio)
		row.AvgUnits = roundFloat(blend(row.AvgUnitsShort, row.AvgUnitsLong, damped), 4)
		row.AvgDollars = roundFloat(blend(row.AvgDollarsShort, row.AvgDollarsLong, damped), 2)
		rows = append(rows, row)
	}

	return rows, nil
}

// isSpike reports whether the short average exceeds ratio times the long one.
// A positive short average over a zero long average is an unbounded spike.
func isSpike(short, long, ratio float64) bool {
	if long == 0 {
		return short > 0
	}
	return short/long > ratio
}

func blend(short, long float64, damped bool) float64 {
	if damped {
		return finite(dampedShortWeight*short + dampedLongWeight*long)
	}
	return finite(shortWeight*short + longWeight*long)
}

func addSales(totals map[string]*salesTotals, key string, s domain.SalesRecord) {
	t, ok := totals[key]
	if !ok {
		t = &salesTotals{}
		totals[key] = t
	}
	t.units += s.UnitSales
	t.dollars += s.DollarSales
}

func totalsOf(totals map[string]*salesTotals, key string) salesTotals {
	if t, ok := totals[key]; ok {
		return *t
	}
	return salesTotals{}
}

func dateSet(dates []time.Time) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}
