package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/domain"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

// forecastColumns is the COPY column order; forecastValues must match it.
var forecastColumns = []string{
	"reference_date", "asin", "sku", "collection", "size", "color", "life_stage", "restockable",
	"isr", "isr_short", "avg_sales_short", "avg_sales_long",
	"avg_dollars_short", "avg_dollars_long", "avg_units", "avg_dollars",
	"event", "days_to_event", "event_forecasted_units", "total_units_needed",
	"current_inventory", "amz_available", "wh_inventory", "incoming_containers",
	"alert", "recommended_action",
	"to_ship_units", "to_ship_boxes", "dos_available", "dos_inbound", "dos_shipped",
}

type ForecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// ReplaceForecast swaps the stored rows of (reference date, event) for the
// result's rows in one transaction.
func (r *ForecastRepository) ReplaceForecast(ctx context.Context, res *restock.Result) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM restock_forecast WHERE reference_date = $1 AND event = $2`,
			res.ReferenceDate, string(res.Event),
		); err != nil {
			return fmt.Errorf("failed to clear forecast: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("restock_forecast", forecastColumns...))
		if err != nil {
			return fmt.Errorf("failed to prepare copy: %w", err)
		}
		defer stmt.Close()

		for _, row := range res.Rows {
			if _, err := stmt.ExecContext(ctx, forecastValues(res.ReferenceDate, row)...); err != nil {
				return fmt.Errorf("failed to copy forecast row %s: %w", row.EntityID, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to flush copy: %w", err)
		}

		log.Info().
			Time("reference_date", res.ReferenceDate).
			Str("event", string(res.Event)).
			Int("rows", len(res.Rows)).
			Msg("forecast table replaced")
		return nil
	})
}

func forecastValues(ref time.Time, r domain.ForecastRow) []interface{} {
	return []interface{}{
		ref, r.EntityID, r.SKU, r.Collection, r.Size, r.Color, r.LifeStage, r.Restockable,
		r.ISR, r.ISRShort, r.AvgSalesShort, r.AvgSalesLong,
		r.AvgDollarsShort, r.AvgDollarsLong, r.AvgUnits, r.AvgDollars,
		string(r.Event), r.DaysToEvent, r.EventForecastedUnits, r.TotalUnitsNeeded,
		r.CurrentInventory, r.AmzAvailable, r.WHInventory, r.IncomingContainers,
		r.Alert, r.RecommendedAction,
		r.ToShipUnits, r.ToShipBoxes, r.DOSAvailable, r.DOSInbound, r.DOSShipped,
	}
}
