package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/restock-go/internal/domain"
)

// SalesSource returns daily sales with dates in [from, to].
type SalesSource interface {
	FetchSales(ctx context.Context, from, to time.Time) ([]domain.SalesRecord, error)
}

// InventorySource returns marketplace inventory snapshots with dates in [from, to].
type InventorySource interface {
	FetchInventory(ctx context.Context, from, to time.Time) ([]domain.InventorySnapshot, error)
}

// WarehouseSource returns the latest own-warehouse stock per SKU.
type WarehouseSource interface {
	FetchWarehouse(ctx context.Context) ([]domain.WarehouseInventoryRecord, error)
}

// IncomingSource returns open inbound purchase orders.
type IncomingSource interface {
	FetchIncoming(ctx context.Context) ([]domain.PurchaseOrder, error)
}

// EventSheetSource returns the event performance spreadsheet.
type EventSheetSource interface {
	FetchEventSheet(ctx context.Context) (domain.EventSheet, error)
}

// DictionarySource returns the product dictionary.
type DictionarySource interface {
	FetchDictionary(ctx context.Context) ([]domain.ProductInfo, error)
}

// DimensionSource returns units per box per entity.
type DimensionSource interface {
	FetchDimensions(ctx context.Context) ([]domain.BoxDimension, error)
}

// Sources groups the acquisition back ends of one run. Each table may come
// from a different system.
type Sources struct {
	Sales      SalesSource
	Inventory  InventorySource
	Warehouse  WarehouseSource
	Incoming   IncomingSource
	EventSheet EventSheetSource
	Dictionary DictionarySource
	Dimensions DimensionSource
}

// ErrSourceMissing is returned when a run is started without every source.
var ErrSourceMissing = errors.New("pipeline source not configured")

func (s Sources) validate() error {
	switch {
	case s.Sales == nil:
		return fmt.Errorf("%w: sales", ErrSourceMissing)
	case s.Inventory == nil:
		return fmt.Errorf("%w: inventory", ErrSourceMissing)
	case s.Warehouse == nil:
		return fmt.Errorf("%w: warehouse", ErrSourceMissing)
	case s.Incoming == nil:
		return fmt.Errorf("%w: incoming", ErrSourceMissing)
	case s.EventSheet == nil:
		return fmt.Errorf("%w: event sheet", ErrSourceMissing)
	case s.Dictionary == nil:
		return fmt.Errorf("%w: dictionary", ErrSourceMissing)
	case s.Dimensions == nil:
		return fmt.Errorf("%w: dimensions", ErrSourceMissing)
	}
	return nil
}

// PipelineConfig holds configuration for a pipeline instance
type PipelineConfig struct {
	Name           string
	WorkerCount    int           // Number of concurrent fetch workers
	OutputDir      string        // Directory for result CSVs
	RetryAttempts  int           // Attempts per source fetch
	RetryBackoff   time.Duration // Backoff between attempts, doubled each retry
	SalesExtraDays int           // Sales history fetched beyond the long window
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig(name string) PipelineConfig {
	return PipelineConfig{
		Name:           name,
		WorkerCount:    6,
		OutputDir:      "data/output/" + name,
		RetryAttempts:  3,
		RetryBackoff:   5 * time.Second,
		SalesExtraDays: 90,
	}
}

// PipelineStatus represents the current state of a pipeline run
type PipelineStatus string

const (
	StatusPending    PipelineStatus = "pending"
	StatusProcessing PipelineStatus = "processing"
	StatusCompleted  PipelineStatus = "completed"
	StatusFailed     PipelineStatus = "failed"
)

// Run tracks a single forecast execution.
type Run struct {
	ID            int64          `json:"id" db:"id"`
	PipelineName  string         `json:"pipeline_name" db:"pipeline_name"`
	ReferenceDate time.Time      `json:"reference_date" db:"reference_date"`
	Event         string         `json:"event" db:"event"`
	Status        PipelineStatus `json:"status" db:"status"`
	TotalRows     int            `json:"total_rows" db:"total_rows"`
	WarningCount  int            `json:"warning_count" db:"warning_count"`
	StartedAt     time.Time      `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage  string         `json:"error_message,omitempty" db:"error_message"`
}

// PipelineMetrics holds metrics for monitoring
type PipelineMetrics struct {
	Runs            int64      `json:"runs"`
	RowsProduced    int64      `json:"rows_produced"`
	ErrorCount      int64      `json:"error_count"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}
