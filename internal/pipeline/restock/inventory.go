package restock

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/domain"
)

// InventoryRow is the resolved latest inventory of one entity. Categorical
// health fields hold the sorted distinct values of the snapshot date.
type InventoryRow struct {
	EntityID     string    `json:"entity_id"`
	Date         time.Time `json:"date"`
	AmzInventory float64   `json:"amz_inventory"`
	AmzAvailable float64   `json:"amz_available"`

	Alert                         string  `json:"alert,omitempty"`
	RecommendedAction             string  `json:"recommended_action,omitempty"`
	HealthyInventoryLevel         float64 `json:"healthy_inventory_level"`
	RecommendedRemovalQuantity    float64 `json:"recommended_removal_quantity"`
	EstimatedExcessQuantity       float64 `json:"estimated_excess_quantity"`
	FBAMinimumInventoryLevel      float64 `json:"fba_minimum_inventory_level"`
	FBAInventoryLevelHealthStatus string  `json:"fba_inventory_level_health_status,omitempty"`
	StorageType                   string  `json:"storage_type,omitempty"`
}

// InventoryResolver picks the most recent usable snapshot per entity.
type InventoryResolver struct {
	MaxAttempts int
	KeyMode     KeyMode
	// OnWarning, when set, receives every data quality warning as it happens.
	OnWarning func(DataQualityWarning)
}

// NewInventoryResolver returns a resolver with the default lookback.
func NewInventoryResolver(mode KeyMode) *InventoryResolver {
	return &InventoryResolver{MaxAttempts: DefaultInventoryLookbackAttempts, KeyMode: mode}
}

// Resolve returns the latest snapshot per entity from dates on or after
// maxDate minus one day. When nothing is found the window steps back one day
// at a time, up to MaxAttempts, with a warning per step. Exhausting the
// attempts yields an empty result, never an error.
func (r *InventoryResolver) Resolve(snapshots []domain.InventorySnapshot, maxDate time.Time) ([]InventoryRow, []DataQualityWarning) {
	maxDate = calendar.DateOnly(maxDate)
	checkDate := maxDate.AddDate(0, 0, -1)
	latest := sinceDate(snapshots, checkDate)

	var warnings []DataQualityWarning
	for attempt := 1; len(latest) == 0 && attempt <= r.MaxAttempts; attempt++ {
		warnings = append(warnings, r.warn(DataQualityWarning{
			Date:    checkDate,
			Attempt: attempt,
			Message: "no inventory data found for expected date",
		}))
		checkDate = maxDate.AddDate(0, 0, -(attempt + 1))
		latest = sinceDate(snapshots, checkDate)
		if len(latest) > 0 {
			log.Info().Str("date", checkDate.Format("2006-01-02")).Msg("inventory: using older snapshot date")
		}
	}
	if len(latest) == 0 {
		warnings = append(warnings, r.warn(DataQualityWarning{
			Date:    checkDate,
			Attempt: r.MaxAttempts,
			Message: "inventory lookback exhausted, continuing without inventory",
		}))
		return nil, warnings
	}

	return r.aggregate(latest), warnings
}

func (r *InventoryResolver) warn(w DataQualityWarning) DataQualityWarning {
	log.Warn().
		Str("date", w.Date.Format("2006-01-02")).
		Int("attempt", w.Attempt).
		Msg("inventory: " + w.Message)
	if r.OnWarning != nil {
		r.OnWarning(w)
	}
	return w
}

type inventoryGroup struct {
	row         InventoryRow
	alerts      map[string]struct{}
	actions     map[string]struct{}
	statuses    map[string]struct{}
	storageType map[string]struct{}
}

func (r *InventoryResolver) aggregate(snapshots []domain.InventorySnapshot) []InventoryRow {
	groups := make(map[dateKey]*inventoryGroup)
	for _, s := range snapshots {
		key := snapshotKey(s, r.KeyMode)
		if key == "" {
			continue
		}
		dk := dateKey{date: calendar.DateOnly(s.Date), key: key}
		g, ok := groups[dk]
		if !ok {
			g = &inventoryGroup{
				row:         InventoryRow{EntityID: key, Date: dk.date},
				alerts:      make(map[string]struct{}),
				actions:     make(map[string]struct{}),
				statuses:    make(map[string]struct{}),
				storageType: make(map[string]struct{}),
			}
			groups[dk] = g
		}

		g.row.AmzInventory += s.AmzInventory
		g.row.AmzAvailable += s.AmzAvailable
		if r.KeyMode == KeySKU {
			continue
		}
		g.row.HealthyInventoryLevel += s.HealthyInventoryLevel
		g.row.RecommendedRemovalQuantity += s.RecommendedRemovalQuantity
		g.row.EstimatedExcessQuantity += s.EstimatedExcessQuantity
		g.row.FBAMinimumInventoryLevel += s.FBAMinimumInventoryLevel
		addDistinct(g.alerts, s.Alert)
		addDistinct(g.actions, s.RecommendedAction)
		addDistinct(g.statuses, s.FBAInventoryLevelHealthStatus)
		addDistinct(g.storageType, s.StorageType)
	}

	// keep the latest date per entity
	latest := make(map[string]*inventoryGroup)
	for _, g := range groups {
		cur, ok := latest[g.row.EntityID]
		if !ok || g.row.Date.After(cur.row.Date) {
			latest[g.row.EntityID] = g
		}
	}

	rows := make([]InventoryRow, 0, len(latest))
	for _, g := range latest {
		row := g.row
		row.Alert = joinDistinct(g.alerts)
		row.RecommendedAction = joinDistinct(g.actions)
		row.FBAInventoryLevelHealthStatus = joinDistinct(g.statuses)
		row.StorageType = joinDistinct(g.storageType)
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EntityID < rows[j].EntityID })
	return rows
}

func sinceDate(snapshots []domain.InventorySnapshot, from time.Time) []domain.InventorySnapshot {
	var out []domain.InventorySnapshot
	for _, s := range snapshots {
		if !calendar.DateOnly(s.Date).Before(from) {
			out = append(out, s)
		}
	}
	return out
}

func addDistinct(set map[string]struct{}, v string) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "n/a") {
		return
	}
	set[v] = struct{}{}
}

func joinDistinct(set map[string]struct{}) string {
	if len(set) == 0 {
		return ""
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return strings.Join(values, ", ")
}
