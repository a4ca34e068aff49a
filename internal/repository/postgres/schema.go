package postgres

import (
	"context"
	"fmt"
)

// schema holds the tables written by forecast runs. Source tables are owned
// by the upstream loaders and are only read.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS restock_runs (
		id             BIGSERIAL PRIMARY KEY,
		pipeline_name  TEXT NOT NULL,
		reference_date DATE NOT NULL,
		event          TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		total_rows     INTEGER NOT NULL DEFAULT 0,
		warning_count  INTEGER NOT NULL DEFAULT 0,
		started_at     TIMESTAMPTZ NOT NULL,
		completed_at   TIMESTAMPTZ,
		error_message  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_restock_runs_pipeline_started
		ON restock_runs (pipeline_name, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS restock_forecast (
		reference_date         DATE NOT NULL,
		asin                   TEXT NOT NULL,
		sku                    TEXT NOT NULL DEFAULT '',
		collection             TEXT NOT NULL DEFAULT '',
		size                   TEXT NOT NULL DEFAULT '',
		color                  TEXT NOT NULL DEFAULT '',
		life_stage             TEXT NOT NULL DEFAULT '',
		restockable            BOOLEAN NOT NULL DEFAULT FALSE,
		isr                    DOUBLE PRECISION NOT NULL,
		isr_short              DOUBLE PRECISION NOT NULL,
		avg_sales_short        DOUBLE PRECISION NOT NULL,
		avg_sales_long         DOUBLE PRECISION NOT NULL,
		avg_dollars_short      DOUBLE PRECISION NOT NULL,
		avg_dollars_long       DOUBLE PRECISION NOT NULL,
		avg_units              DOUBLE PRECISION NOT NULL,
		avg_dollars            DOUBLE PRECISION NOT NULL,
		event                  TEXT NOT NULL,
		days_to_event          INTEGER NOT NULL,
		event_forecasted_units DOUBLE PRECISION NOT NULL,
		total_units_needed     DOUBLE PRECISION NOT NULL,
		current_inventory      DOUBLE PRECISION NOT NULL,
		amz_available          DOUBLE PRECISION NOT NULL,
		wh_inventory           DOUBLE PRECISION NOT NULL,
		incoming_containers    DOUBLE PRECISION NOT NULL,
		alert                  TEXT NOT NULL DEFAULT '',
		recommended_action     TEXT NOT NULL DEFAULT '',
		to_ship_units          INTEGER NOT NULL,
		to_ship_boxes          INTEGER NOT NULL,
		dos_available          DOUBLE PRECISION NOT NULL,
		dos_inbound            DOUBLE PRECISION NOT NULL,
		dos_shipped            DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (reference_date, event, asin, sku)
	)`,
}

// EnsureSchema creates the run tracking and forecast tables when missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
