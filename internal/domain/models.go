// internal/domain/models.go
package domain

import "time"

// SalesRecord is one day of marketplace sales for an entity.
// Rows coming from multi-channel sources may repeat (date, entity) and are
// summed before use.
type SalesRecord struct {
	Date        time.Time `json:"date" db:"date"`
	EntityID    string    `json:"asin" db:"asin"`
	SKU         string    `json:"sku,omitempty" db:"sku"`
	UnitSales   float64   `json:"unit_sales" db:"unit_sales"`
	DollarSales float64   `json:"dollar_sales" db:"dollar_sales"`
}

// InventorySnapshot is a marketplace inventory reading for a SKU on a date.
// Health fields are only populated by the inventory planning report.
type InventorySnapshot struct {
	Date         time.Time `json:"date" db:"date"`
	ASIN         string    `json:"asin" db:"asin"`
	SKU          string    `json:"sku" db:"sku"`
	AmzInventory float64   `json:"amz_inventory" db:"amz_inventory"`
	AmzAvailable float64   `json:"amz_available" db:"amz_available"`

	Alert                         string  `json:"alert,omitempty" db:"alert"`
	RecommendedAction             string  `json:"recommended_action,omitempty" db:"recommended_action"`
	HealthyInventoryLevel         float64 `json:"healthy_inventory_level" db:"healthy_inventory_level"`
	RecommendedRemovalQuantity    float64 `json:"recommended_removal_quantity" db:"recommended_removal_quantity"`
	EstimatedExcessQuantity       float64 `json:"estimated_excess_quantity" db:"estimated_excess_quantity"`
	FBAMinimumInventoryLevel      float64 `json:"fba_minimum_inventory_level" db:"fba_minimum_inventory_level"`
	FBAInventoryLevelHealthStatus string  `json:"fba_inventory_level_health_status,omitempty" db:"fba_inventory_level_health_status"`
	StorageType                   string  `json:"storage_type,omitempty" db:"storage_type"`
}

// WarehouseInventoryRecord is the latest own-warehouse stock for a SKU.
type WarehouseInventoryRecord struct {
	SKU                string  `json:"sku" db:"sku"`
	WHInventory        float64 `json:"wh_inventory" db:"wh_inventory"`
	IncomingContainers float64 `json:"incoming_containers" db:"incoming_containers"`
}

// PurchaseOrderItem is a single line of an inbound purchase order.
type PurchaseOrderItem struct {
	SKU        string  `json:"sku" db:"sku"`
	QtyOrdered float64 `json:"qty_ordered" db:"qty_ordered"`
}

// PurchaseOrder groups the lines expected to arrive on the same ETA.
type PurchaseOrder struct {
	ETA   time.Time           `json:"eta" db:"eta"`
	Items []PurchaseOrderItem `json:"items"`
}

// ProductInfo is a row of the product dictionary.
type ProductInfo struct {
	SKU         string `json:"sku" db:"sku"`
	ASIN        string `json:"asin" db:"asin"`
	Collection  string `json:"collection" db:"collection"`
	Size        string `json:"size" db:"size"`
	Color       string `json:"color" db:"color"`
	LifeStage   string `json:"life_stage" db:"life_stage"`
	Restockable bool   `json:"restockable" db:"restockable"`
}

// BoxDimension carries the carton size for an entity.
type BoxDimension struct {
	EntityID    string  `json:"entity_id" db:"entity_id"`
	UnitsPerBox float64 `json:"units_per_box" db:"units_per_box"`
}

// EventSheet is the raw event performance spreadsheet: one header row and
// string cells, exactly as exported.
type EventSheet struct {
	Header []string
	Rows   [][]string
}

// EventPerformanceRecord is the historical event performance for one entity
// and one event.
type EventPerformanceRecord struct {
	EntityID               string  `json:"asin"`
	AverageEventUnitsTotal float64 `json:"average_event_units_total"`
	BestEventMultiplier    float64 `json:"best_event_performance_multiplier"`
}

// ForecastRow is the final replenishment row per entity.
type ForecastRow struct {
	EntityID    string `json:"asin" db:"asin"`
	SKU         string `json:"sku" db:"sku"`
	Collection  string `json:"collection" db:"collection"`
	Size        string `json:"size" db:"size"`
	Color       string `json:"color" db:"color"`
	LifeStage   string `json:"life_stage" db:"life_stage"`
	Restockable bool   `json:"restockable" db:"restockable"`

	ISR             float64 `json:"isr" db:"isr"`
	ISRShort        float64 `json:"isr_short" db:"isr_short"`
	AvgSalesShort   float64 `json:"avg_sales_short" db:"avg_sales_short"`
	AvgSalesLong    float64 `json:"avg_sales_long" db:"avg_sales_long"`
	AvgDollarsShort float64 `json:"avg_dollars_short" db:"avg_dollars_short"`
	AvgDollarsLong  float64 `json:"avg_dollars_long" db:"avg_dollars_long"`
	AvgUnits        float64 `json:"avg_units" db:"avg_units"`
	AvgDollars      float64 `json:"avg_dollars" db:"avg_dollars"`

	Event                Event   `json:"event" db:"event"`
	DaysToEvent          int     `json:"days_to_event" db:"days_to_event"`
	EventForecastedUnits float64 `json:"event_forecasted_units" db:"event_forecasted_units"`
	TotalUnitsNeeded     float64 `json:"total_units_needed" db:"total_units_needed"`

	CurrentInventory   float64 `json:"current_inventory" db:"current_inventory"`
	AmzAvailable       float64 `json:"amz_available" db:"amz_available"`
	WHInventory        float64 `json:"wh_inventory" db:"wh_inventory"`
	IncomingContainers float64 `json:"incoming_containers" db:"incoming_containers"`
	Alert              string  `json:"alert,omitempty" db:"alert"`
	RecommendedAction  string  `json:"recommended_action,omitempty" db:"recommended_action"`

	ToShipUnits  int     `json:"to_ship_units" db:"to_ship_units"`
	ToShipBoxes  int     `json:"to_ship_boxes" db:"to_ship_boxes"`
	DOSAvailable float64 `json:"dos_available" db:"dos_available"`
	DOSInbound   float64 `json:"dos_inbound" db:"dos_inbound"`
	DOSShipped   float64 `json:"dos_shipped" db:"dos_shipped"`
}

// YearWeek is an ISO calendar week.
type YearWeek struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// IncomingWeekRow holds the inbound quantity per week column for one SKU.
// Quantities is aligned with IncomingWeeks.Weeks.
type IncomingWeekRow struct {
	SKU        string    `json:"sku"`
	Quantities []float64 `json:"quantities"`
}

// IncomingWeeks is the SKU by ISO-week pivot of inbound purchase orders.
type IncomingWeeks struct {
	Weeks []YearWeek        `json:"weeks"`
	Rows  []IncomingWeekRow `json:"rows"`
}
