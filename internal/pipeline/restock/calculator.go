package restock

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/domain"
)

// Calculator composes the engine stages into the final forecast table.
// It keeps no state between runs and is safe for concurrent use.
type Calculator struct {
	cal *calendar.Calendar
}

// NewCalculator returns a calculator over the given event calendar.
func NewCalculator(cal *calendar.Calendar) *Calculator {
	if cal == nil {
		cal = calendar.Default()
	}
	return &Calculator{cal: cal}
}

// Run computes one forecast row per entity. Inputs must be fully loaded.
// Configuration and join integrity problems abort the run; inventory gaps are
// reported as warnings on the result.
func (c *Calculator) Run(in Inputs, p Params) (*Result, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}
	today := calendar.DateOnly(p.ReferenceDate)

	target, err := c.targetEvent(today, p.Event)
	if err != nil {
		return nil, err
	}

	products, err := indexDictionary(in.Dictionary, p.KeyMode)
	if err != nil {
		return nil, err
	}
	warehouse, warehouseWarnings, err := indexWarehouse(in.Warehouse, products, p.KeyMode, today)
	if err != nil {
		return nil, err
	}
	unitsPerBox, err := indexDimensions(in.Dimensions)
	if err != nil {
		return nil, err
	}

	isr := EstimateISR(in.Inventory, p.InventoryMaxDate, p.KeyMode)

	estimator := &VelocityEstimator{
		Calendar:      c.cal,
		LongTermDays:  p.LongTermDays,
		ShortTermDays: p.ShortTermDays,
		IncludeEvents: p.IncludeEvents,
		SpikeRatio:    p.SpikeRatio,
		KeyMode:       p.KeyMode,
	}
	velocity, err := estimator.Estimate(in.Sales, isr, p.SalesMaxDate)
	if err != nil {
		return nil, err
	}

	performance, err := FilterEventSheet(in.EventSheet, target.Definition)
	if err != nil {
		return nil, err
	}
	if p.KeyMode == KeySKU {
		performance = performanceBySKU(performance, in.Dictionary)
	}
	forecasts, err := ForecastEvent(velocity, performance, target.Definition, p.StrongVelocityThreshold)
	if err != nil {
		return nil, err
	}

	resolverDate := p.InventoryMaxDate
	if resolverDate.IsZero() {
		resolverDate = today.AddDate(0, 0, -1)
	}
	resolver := &InventoryResolver{MaxAttempts: p.InventoryLookbackAttempts, KeyMode: p.KeyMode}
	inventory, warnings := resolver.Resolve(in.Inventory, resolverDate)
	warnings = append(warnings, warehouseWarnings...)

	velocityByKey := make(map[string]VelocityRow, len(velocity))
	for _, v := range velocity {
		velocityByKey[v.EntityID] = v
	}
	forecastByKey := make(map[string]EventForecastRow, len(forecasts))
	for _, f := range forecasts {
		forecastByKey[f.EntityID] = f
	}
	inventoryByKey := make(map[string]InventoryRow, len(inventory))
	for _, inv := range inventory {
		inventoryByKey[inv.EntityID] = inv
	}

	entities := make(map[string]struct{}, len(velocity)+len(inventory)+len(warehouse))
	for key := range velocityByKey {
		entities[key] = struct{}{}
	}
	for key := range inventoryByKey {
		entities[key] = struct{}{}
	}
	for key := range warehouse {
		entities[key] = struct{}{}
	}
	keys := make([]string, 0, len(entities))
	for key := range entities {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]domain.ForecastRow, 0, len(keys))
	for _, key := range keys {
		v := velocityByKey[key]
		f := forecastByKey[key]
		inv := inventoryByKey[key]
		wh := warehouse[key]
		info := products.byKey[key]

		rep := CalculateReplenishment(ReplenishmentInput{
			AvgUnits:             v.AvgUnits,
			EventForecastedUnits: f.ForecastedUnits,
			DaysToEvent:          target.DaysUntil,
			CutoffDays:           target.Definition.PlanningCutoffDays,
			CoverageDays:         p.CoverageDays,
			CurrentInventory:     inv.AmzInventory,
			WHInventory:          wh.WHInventory,
			UnitsPerBox:          boxSize(unitsPerBox, key, info.ASIN),
		})

		row := domain.ForecastRow{
			EntityID:    key,
			SKU:         info.SKU,
			Collection:  info.Collection,
			Size:        info.Size,
			Color:       info.Color,
			LifeStage:   info.LifeStage,
			Restockable: info.Restockable,

			ISR:             v.ISR,
			ISRShort:        v.ISRShort,
			AvgSalesShort:   v.AvgUnitsShort,
			AvgSalesLong:    v.AvgUnitsLong,
			AvgDollarsShort: v.AvgDollarsShort,
			AvgDollarsLong:  v.AvgDollarsLong,
			AvgUnits:        v.AvgUnits,
			AvgDollars:      v.AvgDollars,

			Event:                target.Event,
			DaysToEvent:          rep.EffectiveDaysToEvent,
			EventForecastedUnits: f.ForecastedUnits,
			TotalUnitsNeeded:     rep.TotalUnitsNeeded,

			CurrentInventory:   inv.AmzInventory,
			AmzAvailable:       inv.AmzAvailable,
			WHInventory:        wh.WHInventory,
			IncomingContainers: wh.IncomingContainers,
			Alert:              inv.Alert,
			RecommendedAction:  inv.RecommendedAction,

			ToShipUnits: rep.ToShipUnits,
			ToShipBoxes: rep.ToShipBoxes,
		}
		if p.KeyMode == KeySKU {
			row.SKU = key
			row.EntityID = info.ASIN
			if row.EntityID == "" {
				row.EntityID = key
			}
		}
		if !rep.IncludesEvent {
			row.EventForecastedUnits = 0
		}
		row.DOSAvailable = roundFloat(safeDiv(inv.AmzAvailable, v.AvgUnits), 2)
		row.DOSInbound = roundFloat(safeDiv(inv.AmzInventory, v.AvgUnits), 2)
		row.DOSShipped = roundFloat(safeDiv(inv.AmzInventory+float64(rep.ToShipUnits), v.AvgUnits), 2)

		rows = append(rows, row)
	}

	log.Debug().
		Str("event", string(target.Event)).
		Int("days_to_event", target.DaysUntil).
		Int("entities", len(rows)).
		Int("warnings", len(warnings)).
		Msg("restock: forecast computed")

	return &Result{
		ReferenceDate:     today,
		Event:             target.Event,
		EventDate:         target.Date,
		DaysToEvent:       target.DaysUntil,
		EventDurationDays: target.DurationDays,
		Rows:              rows,
		Incoming:          AggregateIncomingWeeks(in.IncomingOrders, today),
		Warnings:          warnings,
	}, nil
}

// targetEvent returns the forced event when one is set, otherwise the nearest.
func (c *Calculator) targetEvent(today time.Time, forced domain.Event) (calendar.Nearest, error) {
	if forced != "" {
		def, ok := c.cal.Definition(forced)
		if !ok {
			return calendar.Nearest{}, configError(ErrInvalidParameter, "unknown event %q", forced)
		}
		return c.cal.Next(def, today), nil
	}
	next, ok := c.cal.NearestEvent(today)
	if !ok {
		return calendar.Nearest{}, configError(ErrInvalidParameter, "event calendar is empty")
	}
	return next, nil
}

// productIndex is the dictionary seen through the run's entity key. In ASIN
// mode several SKUs share one entity; the row of the lowest SKU enriches it.
type productIndex struct {
	byKey    map[string]domain.ProductInfo
	keyOfSKU map[string]string
}

func indexDictionary(dict []domain.ProductInfo, mode KeyMode) (productIndex, error) {
	idx := productIndex{
		byKey:    make(map[string]domain.ProductInfo, len(dict)),
		keyOfSKU: make(map[string]string, len(dict)),
	}
	for _, info := range dict {
		if info.SKU != "" {
			if _, dup := idx.keyOfSKU[info.SKU]; dup {
				return productIndex{}, integrityError("product dictionary lists sku %s more than once", info.SKU)
			}
		}

		key := info.ASIN
		if mode == KeySKU {
			key = info.SKU
		}
		if key == "" {
			continue
		}
		if info.SKU != "" {
			idx.keyOfSKU[info.SKU] = key
		}
		if cur, ok := idx.byKey[key]; !ok || preferProduct(info, cur) {
			idx.byKey[key] = info
		}
	}
	return idx, nil
}

func preferProduct(candidate, current domain.ProductInfo) bool {
	if candidate.SKU == "" {
		return false
	}
	return current.SKU == "" || candidate.SKU < current.SKU
}

// indexWarehouse sums warehouse stock of every SKU onto its entity key. In
// ASIN mode SKUs the dictionary does not know cannot be placed and are
// reported as warnings.
func indexWarehouse(records []domain.WarehouseInventoryRecord, products productIndex, mode KeyMode, today time.Time) (map[string]domain.WarehouseInventoryRecord, []DataQualityWarning, error) {
	seen := make(map[string]struct{}, len(records))
	out := make(map[string]domain.WarehouseInventoryRecord, len(records))
	var unknown []string
	for _, r := range records {
		if r.SKU == "" {
			continue
		}
		if _, dup := seen[r.SKU]; dup {
			return nil, nil, integrityError("warehouse inventory lists %s more than once", r.SKU)
		}
		seen[r.SKU] = struct{}{}

		key, ok := products.keyOfSKU[r.SKU]
		if !ok {
			if mode != KeySKU {
				unknown = append(unknown, r.SKU)
				continue
			}
			key = r.SKU
		}

		agg, exists := out[key]
		if !exists || r.SKU < agg.SKU {
			agg.SKU = r.SKU
		}
		agg.WHInventory += r.WHInventory
		agg.IncomingContainers += r.IncomingContainers
		out[key] = agg
	}

	sort.Strings(unknown)
	warnings := make([]DataQualityWarning, 0, len(unknown))
	for _, sku := range unknown {
		log.Warn().Str("sku", sku).Msg("restock: warehouse sku missing from dictionary")
		warnings = append(warnings, DataQualityWarning{
			Date:    today,
			Message: fmt.Sprintf("warehouse sku %s is missing from the product dictionary; its stock is not counted", sku),
		})
	}
	return out, warnings, nil
}

func indexDimensions(dims []domain.BoxDimension) (map[string]float64, error) {
	out := make(map[string]float64, len(dims))
	for _, d := range dims {
		if d.EntityID == "" {
			continue
		}
		if _, dup := out[d.EntityID]; dup {
			return nil, integrityError("dimension table lists %s more than once", d.EntityID)
		}
		out[d.EntityID] = d.UnitsPerBox
	}
	return out, nil
}

// boxSize looks up the carton size by entity key, then by the ASIN of the
// product when keying by SKU.
func boxSize(unitsPerBox map[string]float64, key, asin string) float64 {
	if upb, ok := unitsPerBox[key]; ok {
		return upb
	}
	return unitsPerBox[asin]
}

// performanceBySKU re-keys ASIN level event performance onto every SKU of the
// ASIN so it can join SKU keyed velocity.
func performanceBySKU(perf []domain.EventPerformanceRecord, dict []domain.ProductInfo) []domain.EventPerformanceRecord {
	byASIN := make(map[string]domain.EventPerformanceRecord, len(perf))
	for _, p := range perf {
		byASIN[p.EntityID] = p
	}
	out := make([]domain.EventPerformanceRecord, 0, len(perf))
	for _, info := range dict {
		p, ok := byASIN[info.ASIN]
		if !ok || info.SKU == "" {
			continue
		}
		p.EntityID = info.SKU
		out = append(out, p)
	}
	return out
}
