package pipeline

import (
	"context"
	"database/sql"
	"time"
)

// Repository handles database operations for run tracking
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new pipeline repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun creates a new restock run record
func (r *Repository) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO restock_runs (
			pipeline_name, reference_date, event, status,
			total_rows, warning_count, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return r.db.QueryRowContext(
		ctx, query,
		run.PipelineName, run.ReferenceDate, run.Event, run.Status,
		run.TotalRows, run.WarningCount, run.StartedAt,
	).Scan(&run.ID)
}

// UpdateRun updates an existing run
func (r *Repository) UpdateRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE restock_runs
		SET event = $1, status = $2, total_rows = $3, warning_count = $4,
		    completed_at = $5, error_message = $6
		WHERE id = $7
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Event, run.Status, run.TotalRows, run.WarningCount,
		run.CompletedAt, run.ErrorMessage, run.ID,
	)
	return err
}

// GetRun retrieves a run by ID
func (r *Repository) GetRun(ctx context.Context, id int64) (*Run, error) {
	query := `
		SELECT id, pipeline_name, reference_date, event, status, total_rows,
		       warning_count, started_at, completed_at, COALESCE(error_message, '')
		FROM restock_runs
		WHERE id = $1
	`

	run := &Run{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.PipelineName, &run.ReferenceDate, &run.Event, &run.Status,
		&run.TotalRows, &run.WarningCount, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return run, nil
}

// ListRuns returns the most recent runs of a pipeline, newest first.
func (r *Repository) ListRuns(ctx context.Context, pipelineName string, limit int) ([]*Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, pipeline_name, reference_date, event, status, total_rows,
		       warning_count, started_at, completed_at, COALESCE(error_message, '')
		FROM restock_runs
		WHERE pipeline_name = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, pipelineName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(
			&run.ID, &run.PipelineName, &run.ReferenceDate, &run.Event, &run.Status,
			&run.TotalRows, &run.WarningCount, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetPipelineStats retrieves statistics for a pipeline
func (r *Repository) GetPipelineStats(ctx context.Context, pipelineName string, since time.Time) (*PipelineMetrics, error) {
	query := `
		SELECT
			COUNT(*) AS runs,
			COALESCE(SUM(total_rows), 0) AS rows_produced,
			COUNT(CASE WHEN status = $2 THEN 1 END) AS error_count,
			MAX(completed_at) AS last_completed_at
		FROM restock_runs
		WHERE pipeline_name = $1
		  AND started_at >= $3
		  AND status IN ($4, $2)
	`

	metrics := &PipelineMetrics{}
	var last sql.NullTime
	err := r.db.QueryRowContext(
		ctx, query,
		pipelineName, StatusFailed, since, StatusCompleted,
	).Scan(
		&metrics.Runs,
		&metrics.RowsProduced,
		&metrics.ErrorCount,
		&last,
	)
	if err == sql.ErrNoRows {
		return &PipelineMetrics{}, nil
	}
	if err != nil {
		return nil, err
	}
	if last.Valid {
		metrics.LastCompletedAt = &last.Time
	}

	return metrics, nil
}

var _ RunStore = (*Repository)(nil)
