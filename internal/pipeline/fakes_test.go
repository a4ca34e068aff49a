package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/restock-go/internal/domain"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// memSource serves every table from memory. failures[name] errors are
// returned, one per call, before the data is served.
type memSource struct {
	in restock.Inputs

	mu       sync.Mutex
	calls    map[string]int
	failures map[string][]error
	windows  map[string][2]time.Time
}

func newMemSource(in restock.Inputs) *memSource {
	return &memSource{
		in:       in,
		calls:    map[string]int{},
		failures: map[string][]error{},
		windows:  map[string][2]time.Time{},
	}
}

func (m *memSource) sources() Sources {
	return Sources{
		Sales: m, Inventory: m, Warehouse: m, Incoming: m,
		EventSheet: m, Dictionary: m, Dimensions: m,
	}
}

func (m *memSource) hit(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
	if errs := m.failures[name]; len(errs) > 0 {
		m.failures[name] = errs[1:]
		return errs[0]
	}
	return nil
}

func (m *memSource) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *memSource) FetchSales(_ context.Context, from, to time.Time) ([]domain.SalesRecord, error) {
	m.mu.Lock()
	m.windows["sales"] = [2]time.Time{from, to}
	m.mu.Unlock()
	if err := m.hit("sales"); err != nil {
		return nil, err
	}
	return m.in.Sales, nil
}

func (m *memSource) FetchInventory(_ context.Context, from, to time.Time) ([]domain.InventorySnapshot, error) {
	m.mu.Lock()
	m.windows["inventory"] = [2]time.Time{from, to}
	m.mu.Unlock()
	if err := m.hit("inventory"); err != nil {
		return nil, err
	}
	return m.in.Inventory, nil
}

func (m *memSource) FetchWarehouse(context.Context) ([]domain.WarehouseInventoryRecord, error) {
	if err := m.hit("warehouse"); err != nil {
		return nil, err
	}
	return m.in.Warehouse, nil
}

func (m *memSource) FetchIncoming(context.Context) ([]domain.PurchaseOrder, error) {
	if err := m.hit("incoming"); err != nil {
		return nil, err
	}
	return m.in.IncomingOrders, nil
}

func (m *memSource) FetchEventSheet(context.Context) (domain.EventSheet, error) {
	if err := m.hit("event sheet"); err != nil {
		return domain.EventSheet{}, err
	}
	return m.in.EventSheet, nil
}

func (m *memSource) FetchDictionary(context.Context) ([]domain.ProductInfo, error) {
	if err := m.hit("dictionary"); err != nil {
		return nil, err
	}
	return m.in.Dictionary, nil
}

func (m *memSource) FetchDimensions(context.Context) ([]domain.BoxDimension, error) {
	if err := m.hit("dimensions"); err != nil {
		return nil, err
	}
	return m.in.Dimensions, nil
}

// fixtureInputs is a single entity selling 2 units/day with a Prime Day
// history row.
func fixtureInputs() restock.Inputs {
	var in restock.Inputs
	for d := 20; d <= 30; d++ {
		date := day(2024, time.June, d)
		in.Sales = append(in.Sales, domain.SalesRecord{Date: date, EntityID: "A1", SKU: "SKU-A", UnitSales: 2, DollarSales: 20})
		in.Inventory = append(in.Inventory, domain.InventorySnapshot{Date: date, ASIN: "A1", SKU: "SKU-A", AmzInventory: 30, AmzAvailable: 25})
	}
	header := []string{domain.EventEntityColumn}
	row := []string{"A1"}
	for _, def := range domain.EventDefinitions() {
		header = append(header, def.AverageColumn, def.BestColumn)
		if def.Event == domain.EventPD {
			row = append(row, "40", "3")
		} else {
			row = append(row, "", "")
		}
	}
	in.EventSheet = domain.EventSheet{Header: header, Rows: [][]string{row}}
	in.Dictionary = []domain.ProductInfo{{SKU: "SKU-A", ASIN: "A1", Collection: "Core"}}
	in.Warehouse = []domain.WarehouseInventoryRecord{{SKU: "SKU-A", WHInventory: 100}}
	in.Dimensions = []domain.BoxDimension{{EntityID: "A1", UnitsPerBox: 12}}
	in.IncomingOrders = []domain.PurchaseOrder{
		{ETA: day(2024, time.July, 15), Items: []domain.PurchaseOrderItem{{SKU: "SKU-A", QtyOrdered: 120}}},
	}
	return in
}

func fixtureParams() restock.Params {
	p := restock.DefaultParams(day(2024, time.July, 1))
	p.LongTermDays = 10
	p.ShortTermDays = 2
	return p
}

func testConfig(t interface{ TempDir() string }) PipelineConfig {
	cfg := DefaultPipelineConfig("restock-test")
	cfg.OutputDir = t.TempDir()
	cfg.RetryBackoff = time.Millisecond
	cfg.SalesExtraDays = 5
	return cfg
}

func noSleep(context.Context, time.Duration) error { return nil }
