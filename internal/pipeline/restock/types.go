package restock

import (
	"time"

	"github.com/andresuchdata/restock-go/internal/domain"
)

// KeyMode selects the entity key used by per-entity computations.
type KeyMode string

const (
	KeyASIN KeyMode = "asin"
	KeySKU  KeyMode = "sku"
)

const (
	DefaultLongTermDays              = 180
	DefaultShortTermDays             = 14
	DefaultSpikeRatio                = 5.0
	DefaultStrongVelocityThreshold   = 3.0
	DefaultCoverageDays              = 49
	DefaultInventoryLookbackAttempts = 10
)

// Params configures a forecast run. ReferenceDate is the run's "today" and is
// the only notion of current time used by the engine.
type Params struct {
	ReferenceDate time.Time
	LongTermDays  int
	ShortTermDays int
	IncludeEvents bool

	// SalesMaxDate defaults to the latest sales date minus one day.
	SalesMaxDate time.Time
	// InventoryMaxDate bounds the ISR window and anchors the snapshot
	// resolver. ISR defaults to the latest snapshot date, the resolver to
	// ReferenceDate minus one day.
	InventoryMaxDate time.Time

	// SpikeRatio is the short/long ratio above which the damped blend is used.
	SpikeRatio float64
	// StrongVelocityThreshold is the units/day from which an entity's own best
	// event multiplier is trusted.
	StrongVelocityThreshold float64
	// CoverageDays is the stock cover target beyond the event horizon.
	CoverageDays              int
	InventoryLookbackAttempts int
	KeyMode                   KeyMode

	// Event forces the target event; empty picks the nearest one.
	Event domain.Event
}

// DefaultParams returns the production defaults for a reference date.
func DefaultParams(referenceDate time.Time) Params {
	return Params{
		ReferenceDate:             referenceDate,
		LongTermDays:              DefaultLongTermDays,
		ShortTermDays:             DefaultShortTermDays,
		SpikeRatio:                DefaultSpikeRatio,
		StrongVelocityThreshold:   DefaultStrongVelocityThreshold,
		CoverageDays:              DefaultCoverageDays,
		InventoryLookbackAttempts: DefaultInventoryLookbackAttempts,
		KeyMode:                   KeyASIN,
	}
}

// withDefaults fills unset numeric fields with the production defaults.
func (p Params) withDefaults() Params {
	d := DefaultParams(p.ReferenceDate)
	if p.LongTermDays == 0 {
		p.LongTermDays = d.LongTermDays
	}
	if p.ShortTermDays == 0 {
		p.ShortTermDays = d.ShortTermDays
	}
	if p.SpikeRatio == 0 {
		p.SpikeRatio = d.SpikeRatio
	}
	if p.StrongVelocityThreshold == 0 {
		p.StrongVelocityThreshold = d.StrongVelocityThreshold
	}
	if p.CoverageDays == 0 {
		p.CoverageDays = d.CoverageDays
	}
	if p.InventoryLookbackAttempts == 0 {
		p.InventoryLookbackAttempts = d.InventoryLookbackAttempts
	}
	if p.KeyMode == "" {
		p.KeyMode = d.KeyMode
	}
	return p
}

func (p Params) validate() error {
	if p.ReferenceDate.IsZero() {
		return configError(ErrInvalidParameter, "reference date is required")
	}
	if p.LongTermDays < 0 || p.ShortTermDays < 0 {
		return configError(ErrInvalidParameter, "window lengths must be positive (long=%d, short=%d)", p.LongTermDays, p.ShortTermDays)
	}
	if p.CoverageDays < 0 || p.InventoryLookbackAttempts < 0 {
		return configError(ErrInvalidParameter, "coverage days and lookback attempts must not be negative")
	}
	if p.SpikeRatio < 0 || p.StrongVelocityThreshold < 0 {
		return configError(ErrInvalidParameter, "thresholds must not be negative")
	}
	if p.KeyMode != KeyASIN && p.KeyMode != KeySKU {
		return configError(ErrInvalidParameter, "unknown key mode %q", p.KeyMode)
	}
	return nil
}

// Inputs are the fully materialised tables a run works on.
type Inputs struct {
	Sales          []domain.SalesRecord
	Inventory      []domain.InventorySnapshot
	Warehouse      []domain.WarehouseInventoryRecord
	IncomingOrders []domain.PurchaseOrder
	EventSheet     domain.EventSheet
	Dictionary     []domain.ProductInfo
	Dimensions     []domain.BoxDimension
}

// Result is the output of a forecast run.
type Result struct {
	ReferenceDate     time.Time            `json:"reference_date"`
	Event             domain.Event         `json:"event"`
	EventDate         time.Time            `json:"event_date"`
	DaysToEvent       int                  `json:"days_to_event"`
	EventDurationDays int                  `json:"event_duration_days"`
	Rows              []domain.ForecastRow `json:"rows"`
	Incoming          domain.IncomingWeeks `json:"incoming"`
	Warnings          []DataQualityWarning `json:"warnings,omitempty"`
}
