package source

import (
	"sort"
	"time"

	"github.com/andresuchdata/restock-go/internal/domain"
)

func parseSales(t *table, from, to time.Time) ([]domain.SalesRecord, error) {
	idxDate, err := t.require("date", "purchase_date")
	if err != nil {
		return nil, err
	}
	idxASIN, err := t.require("asin", "entity_id")
	if err != nil {
		return nil, err
	}
	idxUnits, err := t.require("unit_sales", "units", "units_ordered")
	if err != nil {
		return nil, err
	}
	idxSKU := t.colIndex("sku")
	idxDollars := t.colIndex("dollar_sales", "sales", "ordered_product_sales")

	out := make([]domain.SalesRecord, 0, len(t.records))
	for i, record := range t.records {
		date, err := parseDate(get(record, idxDate))
		if err != nil {
			return nil, t.rowError(i, err)
		}
		if !inWindow(date, from, to) {
			continue
		}
		units, err := parseFloat(record, idxUnits)
		if err != nil {
			return nil, t.rowError(i, err)
		}
		dollars, err := parseFloat(record, idxDollars)
		if err != nil {
			return nil, t.rowError(i, err)
		}
		out = append(out, domain.SalesRecord{
			Date:        date,
			EntityID:    get(record, idxASIN),
			SKU:         get(record, idxSKU),
			UnitSales:   units,
			DollarSales: dollars,
		})
	}
	return out, nil
}

func parseInventory(t *table, from, to time.Time) ([]domain.InventorySnapshot, error) {
	idxDate, err := t.require("date", "snapshot_date")
	if err != nil {
		return nil, err
	}
	idxASIN, err := t.require("asin")
	if err != nil {
		return nil, err
	}
	idxInventory, err := t.require("amz_inventory", "inventory", "total_quantity")
	if err != nil {
		return nil, err
	}
	idxSKU := t.colIndex("sku")
	idxAvailable := t.colIndex("amz_available", "available")
	idxAlert := t.colIndex("alert")
	idxAction := t.colIndex("recommended_action")
	idxHealthy := t.colIndex("healthy_inventory_level")
	idxRemoval := t.colIndex("recommended_removal_quantity")
	idxExcess := t.colIndex("estimated_excess_quantity")
	idxMinimum := t.colIndex("fba_minimum_inventory_level")
	idxStatus := t.colIndex("fba_inventory_level_health_status")
	idxStorage := t.colIndex("storage_type")

	out := make([]domain.InventorySnapshot, 0, len(t.records))
	for i, record := range t.records {
		date, err := parseDate(get(record, idxDate))
		if err != nil {
			return nil, t.rowError(i, err)
		}
		if !inWindow(date, from, to) {
			continue
		}

		var nums [6]float64
		for j, idx := range []int{idxInventory, idxAvailable, idxHealthy, idxRemoval, idxExcess, idxMinimum} {
			if nums[j], err = parseFloat(record, idx); err != nil {
				return nil, t.rowError(i, err)
			}
		}

		out = append(out, domain.InventorySnapshot{
			Date:                          date,
			ASIN:                          get(record, idxASIN),
			SKU:                           get(record, idxSKU),
			AmzInventory:                  nums[0],
			AmzAvailable:                  nums[1],
			Alert:                         get(record, idxAlert),
			RecommendedAction:             get(record, idxAction),
			HealthyInventoryLevel:         nums[2],
			RecommendedRemovalQuantity:    nums[3],
			EstimatedExcessQuantity:       nums[4],
			FBAMinimumInventoryLevel:      nums[5],
			FBAInventoryLevelHealthStatus: get(record, idxStatus),
			StorageType:                   get(record, idxStorage),
		})
	}
	return out, nil
}

func parseWarehouse(t *table) ([]domain.WarehouseInventoryRecord, error) {
	idxSKU, err := t.require("sku")
	if err != nil {
		return nil, err
	}
	idxInventory, err := t.require("wh_inventory", "warehouse_inventory", "on_hand")
	if err != nil {
		return nil, err
	}
	idxContainers := t.colIndex("incoming_containers", "containers")

	out := make([]domain.WarehouseInventoryRecord, 0, len(t.records))
	for i, record := range t.records {
		inv, err := parseFloat(record, idxInventory)
		if err != nil {
			return nil, t.rowError(i, err)
		}
		containers, err := parseFloat(record, idxContainers)
		if err != nil {
			return nil, t.rowError(i, err)
		}
		out = append(out, domain.WarehouseInventoryRecord{
			SKU:                get(record, idxSKU),
			WHInventory:        inv,
			IncomingContainers: containers,
		})
	}
	return out, nil
}

// parseIncoming groups purchase order lines by ETA, earliest first.
func parseIncoming(t *table) ([]domain.PurchaseOrder, error) {
	idxETA, err := t.require("eta", "expected_date")
	if err != nil {
		return nil, err
	}
	idxSKU, err := t.require("sku")
	if err != nil {
		return nil, err
	}
	idxQty, err := t.require("qty_ordered", "quantity", "qty")
	if err != nil {
		return nil, err
	}

	byETA := make(map[time.Time]*domain.PurchaseOrder)
	for i, record := range t.records {
		eta, err := parseDate(get(record, idxETA))
		if err != nil {
			return nil, t.rowError(i, err)
		}
		qty, err := parseFloat(record, idxQty)
		if err != nil {
			return nil, t.rowError(i, err)
		}
		po, ok := byETA[eta]
		if !ok {
			po = &domain.PurchaseOrder{ETA: eta}
			byETA[eta] = po
		}
		po.Items = append(po.Items, domain.PurchaseOrderItem{SKU: get(record, idxSKU), QtyOrdered: qty})
	}

	out := make([]domain.PurchaseOrder, 0, len(byETA))
	for _, po := range byETA {
		out = append(out, *po)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ETA.Before(out[j].ETA) })
	return out, nil
}

func parseDictionary(t *table) ([]domain.ProductInfo, error) {
	idxSKU, err := t.require("sku")
	if err != nil {
		return nil, err
	}
	idxASIN, err := t.require("asin")
	if err != nil {
		return nil, err
	}
	idxCollection := t.colIndex("collection")
	idxSize := t.colIndex("size")
	idxColor := t.colIndex("color", "colour")
	idxLifeStage := t.colIndex("life_stage", "lifecycle")
	idxRestockable := t.colIndex("restockable")

	out := make([]domain.ProductInfo, 0, len(t.records))
	for _, record := range t.records {
		out = append(out, domain.ProductInfo{
			SKU:         get(record, idxSKU),
			ASIN:        get(record, idxASIN),
			Collection:  get(record, idxCollection),
			Size:        get(record, idxSize),
			Color:       get(record, idxColor),
			LifeStage:   get(record, idxLifeStage),
			Restockable: parseBool(get(record, idxRestockable)),
		})
	}
	return out, nil
}

func parseDimensions(t *table) ([]domain.BoxDimension, error) {
	idxEntity, err := t.require("asin", "entity_id", "sku")
	if err != nil {
		return nil, err
	}
	idxUnits, err := t.require("units_per_box", "upb", "case_pack")
	if err != nil {
		return nil, err
	}

	out := make([]domain.BoxDimension, 0, len(t.records))
	for i, record := range t.records {
		units, err := parseFloat(record, idxUnits)
		if err != nil {
			return nil, t.rowError(i, err)
		}
		out = append(out, domain.BoxDimension{EntityID: get(record, idxEntity), UnitsPerBox: units})
	}
	return out, nil
}

func inWindow(date, from, to time.Time) bool {
	if !from.IsZero() && date.Before(from) {
		return false
	}
	if !to.IsZero() && date.After(to) {
		return false
	}
	return true
}
