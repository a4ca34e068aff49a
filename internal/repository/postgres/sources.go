package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/restock-go/internal/domain"
)

// SourceRepository reads the forecast inputs kept in Postgres by the upstream
// marketplace and warehouse loaders.
type SourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

func (r *SourceRepository) FetchSales(ctx context.Context, from, to time.Time) ([]domain.SalesRecord, error) {
	query := `
		SELECT date, asin, COALESCE(sku, '') AS sku,
		       COALESCE(unit_sales, 0) AS unit_sales,
		       COALESCE(dollar_sales, 0) AS dollar_sales
		FROM sales
		WHERE date BETWEEN $1 AND $2
		ORDER BY date, asin
	`

	var rows []domain.SalesRecord
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("error getting sales: %w", err)
	}
	return rows, nil
}

func (r *SourceRepository) FetchInventory(ctx context.Context, from, to time.Time) ([]domain.InventorySnapshot, error) {
	query := `
		SELECT date, asin, sku,
		       COALESCE(amz_inventory, 0) AS amz_inventory,
		       COALESCE(amz_available, 0) AS amz_available,
		       COALESCE(alert, '') AS alert,
		       COALESCE(recommended_action, '') AS recommended_action,
		       COALESCE(healthy_inventory_level, 0) AS healthy_inventory_level,
		       COALESCE(recommended_removal_quantity, 0) AS recommended_removal_quantity,
		       COALESCE(estimated_excess_quantity, 0) AS estimated_excess_quantity,
		       COALESCE(fba_minimum_inventory_level, 0) AS fba_minimum_inventory_level,
		       COALESCE(fba_inventory_level_health_status, '') AS fba_inventory_level_health_status,
		       COALESCE(storage_type, '') AS storage_type
		FROM inventory_snapshots
		WHERE date BETWEEN $1 AND $2
		ORDER BY date, asin, sku
	`

	var rows []domain.InventorySnapshot
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("error getting inventory snapshots: %w", err)
	}
	return rows, nil
}

// FetchWarehouse returns the most recent stock row of every SKU.
func (r *SourceRepository) FetchWarehouse(ctx context.Context) ([]domain.WarehouseInventoryRecord, error) {
	query := `
		SELECT DISTINCT ON (sku) sku,
		       COALESCE(wh_inventory, 0) AS wh_inventory,
		       COALESCE(incoming_containers, 0) AS incoming_containers
		FROM warehouse_inventory
		ORDER BY sku, updated_at DESC
	`

	var rows []domain.WarehouseInventoryRecord
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("error getting warehouse inventory: %w", err)
	}
	return rows, nil
}

type incomingLine struct {
	ETA        time.Time `db:"eta"`
	SKU        string    `db:"sku"`
	QtyOrdered float64   `db:"qty_ordered"`
}

// FetchIncoming returns open purchase order lines grouped by ETA.
func (r *SourceRepository) FetchIncoming(ctx context.Context) ([]domain.PurchaseOrder, error) {
	query := `
		SELECT eta, sku, COALESCE(qty_ordered, 0) AS qty_ordered
		FROM incoming_orders
		WHERE eta IS NOT NULL
		ORDER BY eta, sku
	`

	var lines []incomingLine
	if err := r.db.SelectContext(ctx, &lines, query); err != nil {
		return nil, fmt.Errorf("error getting incoming orders: %w", err)
	}
	return groupByETA(lines), nil
}

func (r *SourceRepository) FetchDictionary(ctx context.Context) ([]domain.ProductInfo, error) {
	query := `
		SELECT sku, COALESCE(asin, '') AS asin,
		       COALESCE(collection, '') AS collection,
		       COALESCE(size, '') AS size,
		       COALESCE(color, '') AS color,
		       COALESCE(life_stage, '') AS life_stage,
		       COALESCE(restockable, FALSE) AS restockable
		FROM product_dictionary
		ORDER BY sku
	`

	var rows []domain.ProductInfo
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("error getting product dictionary: %w", err)
	}
	return rows, nil
}

func (r *SourceRepository) FetchDimensions(ctx context.Context) ([]domain.BoxDimension, error) {
	query := `
		SELECT asin AS entity_id, COALESCE(units_per_box, 0) AS units_per_box
		FROM box_dimensions
		ORDER BY asin
	`

	var rows []domain.BoxDimension
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("error getting box dimensions: %w", err)
	}
	return rows, nil
}

func groupByETA(lines []incomingLine) []domain.PurchaseOrder {
	byDate := make(map[time.Time]*domain.PurchaseOrder)
	for _, l := range lines {
		eta := time.Date(l.ETA.Year(), l.ETA.Month(), l.ETA.Day(), 0, 0, 0, 0, time.UTC)
		po, ok := byDate[eta]
		if !ok {
			po = &domain.PurchaseOrder{ETA: eta}
			byDate[eta] = po
		}
		po.Items = append(po.Items, domain.PurchaseOrderItem{SKU: l.SKU, QtyOrdered: l.QtyOrdered})
	}

	orders := make([]domain.PurchaseOrder, 0, len(byDate))
	for _, po := range byDate {
		orders = append(orders, *po)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ETA.Before(orders[j].ETA) })
	return orders
}
