package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/domain"
)

// File names looked up inside a Dir.
const (
	SalesFile          = "sales.csv"
	InventoryFile      = "inventory.csv"
	WarehouseFile      = "warehouse.csv"
	IncomingFile       = "incoming.csv"
	DictionaryFile     = "dictionary.csv"
	DimensionsFile     = "dimensions.csv"
	EventSheetXLSXFile = "event_sheet.xlsx"
	EventSheetCSVFile  = "event_sheet.csv"
)

// Dir serves every input table from CSV files (and an XLSX event sheet) in a
// single directory. Sales, inventory and the event sheet are required; the
// other tables are treated as empty when their file is absent.
type Dir struct {
	path string
}

// NewDir returns a file source rooted at path.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

func (d *Dir) FetchSales(ctx context.Context, from, to time.Time) ([]domain.SalesRecord, error) {
	t, err := d.open(ctx, SalesFile, true)
	if err != nil || t == nil {
		return nil, err
	}
	return parseSales(t, from, to)
}

func (d *Dir) FetchInventory(ctx context.Context, from, to time.Time) ([]domain.InventorySnapshot, error) {
	t, err := d.open(ctx, InventoryFile, true)
	if err != nil || t == nil {
		return nil, err
	}
	return parseInventory(t, from, to)
}

func (d *Dir) FetchWarehouse(ctx context.Context) ([]domain.WarehouseInventoryRecord, error) {
	t, err := d.open(ctx, WarehouseFile, false)
	if err != nil || t == nil {
		return nil, err
	}
	return parseWarehouse(t)
}

func (d *Dir) FetchIncoming(ctx context.Context) ([]domain.PurchaseOrder, error) {
	t, err := d.open(ctx, IncomingFile, false)
	if err != nil || t == nil {
		return nil, err
	}
	return parseIncoming(t)
}

func (d *Dir) FetchDictionary(ctx context.Context) ([]domain.ProductInfo, error) {
	t, err := d.open(ctx, DictionaryFile, false)
	if err != nil || t == nil {
		return nil, err
	}
	return parseDictionary(t)
}

func (d *Dir) FetchDimensions(ctx context.Context) ([]domain.BoxDimension, error) {
	t, err := d.open(ctx, DimensionsFile, false)
	if err != nil || t == nil {
		return nil, err
	}
	return parseDimensions(t)
}

// FetchEventSheet prefers the XLSX workbook and falls back to a CSV export.
func (d *Dir) FetchEventSheet(ctx context.Context) (domain.EventSheet, error) {
	if err := ctx.Err(); err != nil {
		return domain.EventSheet{}, err
	}

	if f, err := os.Open(filepath.Join(d.path, EventSheetXLSXFile)); err == nil {
		defer f.Close()
		return ReadEventSheetXLSX(f)
	} else if !errors.Is(err, os.ErrNotExist) {
		return domain.EventSheet{}, err
	}

	f, err := os.Open(filepath.Join(d.path, EventSheetCSVFile))
	if err != nil {
		return domain.EventSheet{}, fmt.Errorf("event sheet: %w", err)
	}
	defer f.Close()
	return ReadEventSheetCSV(f)
}

// open reads name as CSV. Missing optional files yield a nil table.
func (d *Dir) open(ctx context.Context, name string, required bool) (*table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(d.path, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		log.Warn().Str("file", path).Msg("source: optional input missing, using empty table")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return readCSV(name, f)
}
