package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/andresuchdata/restock-go/internal/domain"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

// ForecastColumns is the fixed column order of the forecast CSV.
var ForecastColumns = []string{
	"asin", "sku", "collection", "size", "color", "life_stage", "restockable",
	"isr", "isr_short", "avg_sales_short", "avg_sales_long",
	"avg_dollars_short", "avg_dollars_long", "avg_units", "avg_dollars",
	"event", "days_to_event", "event_forecasted_units", "total_units_needed",
	"current_inventory", "amz_available", "wh_inventory", "incoming_containers",
	"alert", "recommended_action",
	"to_ship_units", "to_ship_boxes", "dos_available", "dos_inbound", "dos_shipped",
}

// ResultWriter writes run results as CSV files. Identical results always
// produce byte-identical files.
type ResultWriter struct {
	dir string
}

// NewResultWriter creates a writer targeting dir.
func NewResultWriter(dir string) *ResultWriter {
	return &ResultWriter{dir: dir}
}

// Write stores the forecast and the incoming weeks pivot and returns the
// file paths in that order.
func (w *ResultWriter) Write(res *restock.Result) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	date := res.ReferenceDate.Format("2006-01-02")
	forecastPath := filepath.Join(w.dir, fmt.Sprintf("restock_forecast_%s_%s.csv", date, res.Event))
	incomingPath := filepath.Join(w.dir, fmt.Sprintf("incoming_weeks_%s.csv", date))

	if err := writeCSV(forecastPath, ForecastColumns, forecastRecords(res.Rows)); err != nil {
		return nil, err
	}
	if err := writeCSV(incomingPath, IncomingHeader(res.Incoming), incomingRecords(res.Incoming)); err != nil {
		return nil, err
	}
	return []string{forecastPath, incomingPath}, nil
}

// WriteProjection stores the units and the dollars outlook and returns the
// file paths in that order.
func (w *ResultWriter) WriteProjection(proj *restock.Projection) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	date := proj.Start.Format("2006-01-02")
	unitsPath := filepath.Join(w.dir, fmt.Sprintf("sales_projection_units_%s.csv", date))
	dollarsPath := filepath.Join(w.dir, fmt.Sprintf("sales_projection_dollars_%s.csv", date))

	header := ProjectionHeader(proj)
	units := projectionRecords(proj, func(r restock.ProjectionRow) []float64 { return r.Units })
	dollars := projectionRecords(proj, func(r restock.ProjectionRow) []float64 { return r.Dollars })
	if err := writeCSV(unitsPath, header, units); err != nil {
		return nil, err
	}
	if err := writeCSV(dollarsPath, header, dollars); err != nil {
		return nil, err
	}
	return []string{unitsPath, dollarsPath}, nil
}

// ProjectionHeader returns the entity columns followed by one column per
// projected date.
func ProjectionHeader(proj *restock.Projection) []string {
	header := make([]string, 0, len(proj.Dates)+3)
	header = append(header, "entity_id", "avg_units", "avg_price")
	for _, d := range proj.Dates {
		header = append(header, d.Format("2006-01-02"))
	}
	return header
}

func projectionRecords(proj *restock.Projection, values func(restock.ProjectionRow) []float64) [][]string {
	out := make([][]string, 0, len(proj.Rows))
	for _, r := range proj.Rows {
		series := values(r)
		record := make([]string, 0, len(series)+3)
		record = append(record, r.EntityID, formatFloat(r.AvgUnits), formatFloat(r.AvgPrice))
		for _, v := range series {
			record = append(record, formatFloat(v))
		}
		out = append(out, record)
	}
	return out
}

// IncomingHeader returns "sku" followed by one "<year>-<week>" column per week.
func IncomingHeader(inc domain.IncomingWeeks) []string {
	header := make([]string, 0, len(inc.Weeks)+1)
	header = append(header, "sku")
	for _, yw := range inc.Weeks {
		header = append(header, fmt.Sprintf("%d-%d", yw.Year, yw.Week))
	}
	return header
}

func forecastRecords(rows []domain.ForecastRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.EntityID, r.SKU, r.Collection, r.Size, r.Color, r.LifeStage, strconv.FormatBool(r.Restockable),
			formatFloat(r.ISR), formatFloat(r.ISRShort), formatFloat(r.AvgSalesShort), formatFloat(r.AvgSalesLong),
			formatFloat(r.AvgDollarsShort), formatFloat(r.AvgDollarsLong), formatFloat(r.AvgUnits), formatFloat(r.AvgDollars),
			string(r.Event), strconv.Itoa(r.DaysToEvent), formatFloat(r.EventForecastedUnits), formatFloat(r.TotalUnitsNeeded),
			formatFloat(r.CurrentInventory), formatFloat(r.AmzAvailable), formatFloat(r.WHInventory), formatFloat(r.IncomingContainers),
			r.Alert, r.RecommendedAction,
			strconv.Itoa(r.ToShipUnits), strconv.Itoa(r.ToShipBoxes),
			formatFloat(r.DOSAvailable), formatFloat(r.DOSInbound), formatFloat(r.DOSShipped),
		})
	}
	return out
}

func incomingRecords(inc domain.IncomingWeeks) [][]string {
	out := make([][]string, 0, len(inc.Rows))
	for _, r := range inc.Rows {
		record := make([]string, 0, len(r.Quantities)+1)
		record = append(record, r.SKU)
		for _, q := range r.Quantities {
			record = append(record, formatFloat(q))
		}
		out = append(out, record)
	}
	return out
}

func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Sync()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
