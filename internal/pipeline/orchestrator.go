package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

// RunStore records forecast runs.
type RunStore interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
}

// FlushFunc receives each written result file, e.g. to upload it.
type FlushFunc func(ctx context.Context, path string) error

// ResultSink receives the computed result, e.g. to replace a database table.
type ResultSink func(ctx context.Context, res *restock.Result) error

// Outcome is what a run produced.
type Outcome struct {
	Run    *Run
	Result *restock.Result
	Files  []string
}

// Orchestrator coordinates one forecast run: load, compute, write, publish.
type Orchestrator struct {
	loader *Loader
	calc   *restock.Calculator
	writer *ResultWriter
	runs   RunStore
	cfg    PipelineConfig
	flush  []FlushFunc
	sinks  []ResultSink
	now    func() time.Time
}

// NewOrchestrator creates a new Orchestrator. runs may be nil when run
// tracking is not wanted.
func NewOrchestrator(loader *Loader, calc *restock.Calculator, writer *ResultWriter, runs RunStore, cfg PipelineConfig) *Orchestrator {
	return &Orchestrator{
		loader: loader,
		calc:   calc,
		writer: writer,
		runs:   runs,
		cfg:    cfg,
		now:    time.Now,
	}
}

// OnFile registers a callback for every written result file. Files are
// published concurrently.
func (o *Orchestrator) OnFile(fn FlushFunc) {
	o.flush = append(o.flush, fn)
}

// AddSink registers a consumer of the computed result.
func (o *Orchestrator) AddSink(fn ResultSink) {
	o.sinks = append(o.sinks, fn)
}

// Run executes a full forecast for the given parameters.
func (o *Orchestrator) Run(ctx context.Context, p restock.Params) (*Outcome, error) {
	run := &Run{
		PipelineName:  o.cfg.Name,
		ReferenceDate: p.ReferenceDate,
		Event:         string(p.Event),
		Status:        StatusPending,
		StartedAt:     o.now(),
	}
	if err := o.createRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}

	outcome, err := o.execute(ctx, run, p)
	if err != nil {
		o.finish(ctx, run, err)
		return nil, err
	}

	o.finish(ctx, run, nil)
	log.Info().
		Str("event", run.Event).
		Int("rows", run.TotalRows).
		Int("warnings", run.WarningCount).
		Strs("files", outcome.Files).
		Msgf("[%s] run completed", o.cfg.Name)
	return outcome, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, p restock.Params) (*Outcome, error) {
	run.Status = StatusProcessing
	if err := o.updateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update pipeline run: %w", err)
	}

	inputs, err := o.loader.Load(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load inputs: %w", err)
	}

	res, err := o.calc.Run(inputs, p)
	if err != nil {
		return nil, fmt.Errorf("failed to compute forecast: %w", err)
	}
	run.Event = string(res.Event)
	run.TotalRows = len(res.Rows)
	run.WarningCount = len(res.Warnings)

	files, err := o.writer.Write(res)
	if err != nil {
		return nil, fmt.Errorf("failed to write results: %w", err)
	}

	if err := o.publish(ctx, files); err != nil {
		return nil, err
	}
	for _, sink := range o.sinks {
		if err := sink(ctx, res); err != nil {
			return nil, fmt.Errorf("failed to store result: %w", err)
		}
	}

	return &Outcome{Run: run, Result: res, Files: files}, nil
}

// ProjectionOutcome is what a projection produced.
type ProjectionOutcome struct {
	Projection *restock.Projection
	Files      []string
}

// Project loads the sales history, rolls every entity's velocity forward and
// writes the units and dollars outlook. Projections are not tracked as runs.
func (o *Orchestrator) Project(ctx context.Context, p restock.Params, opts restock.ProjectionOptions) (*ProjectionOutcome, error) {
	if opts.LongTermDays <= 0 {
		opts.LongTermDays = restock.DefaultProjectionLongTermDays
	}
	if opts.HistoryFrom.IsZero() {
		opts.HistoryFrom = p.ReferenceDate.AddDate(0, 0, -restock.DefaultProjectionHistoryDays)
	}
	// event days are dropped from the trailing means, so the lead-in has slack
	lead := 2 * (restock.SeasonalityWindow + restock.SeasonalitySmoothing)
	salesFrom := opts.HistoryFrom.AddDate(0, 0, -lead)

	lp := p
	lp.LongTermDays = opts.LongTermDays
	inputs, err := o.loader.LoadHistory(ctx, lp, salesFrom)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales history: %w", err)
	}

	proj, err := o.calc.Project(inputs, p, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to project sales: %w", err)
	}

	files, err := o.writer.WriteProjection(proj)
	if err != nil {
		return nil, fmt.Errorf("failed to write projection: %w", err)
	}
	if err := o.publish(ctx, files); err != nil {
		return nil, err
	}

	log.Info().
		Int("entities", len(proj.Rows)).
		Int("days", proj.Days).
		Strs("files", files).
		Msgf("[%s] projection completed", o.cfg.Name)
	return &ProjectionOutcome{Projection: proj, Files: files}, nil
}

// publish hands every file to the registered callbacks, one goroutine per
// file. The first failure cancels the others.
func (o *Orchestrator) publish(ctx context.Context, files []string) error {
	if len(o.flush) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			for _, fn := range o.flush {
				if err := fn(gctx, path); err != nil {
					return fmt.Errorf("failed to publish %s: %w", path, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// finish records the final status. A failure to record is logged only, so the
// run's own error is never masked.
func (o *Orchestrator) finish(ctx context.Context, run *Run, runErr error) {
	now := o.now()
	run.CompletedAt = &now
	run.Status = StatusCompleted
	if runErr != nil {
		run.Status = StatusFailed
		run.ErrorMessage = runErr.Error()
	}

	// record the outcome even when the caller's context is already done
	if err := o.updateRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error().Err(err).Int64("run_id", run.ID).Msgf("[%s] failed to record run status", o.cfg.Name)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error().Err(runErr).Int64("run_id", run.ID).Msgf("[%s] run failed", o.cfg.Name)
	}
}

func (o *Orchestrator) createRun(ctx context.Context, run *Run) error {
	if o.runs == nil {
		return nil
	}
	return o.runs.CreateRun(ctx, run)
}

func (o *Orchestrator) updateRun(ctx context.Context, run *Run) error {
	if o.runs == nil {
		return nil
	}
	return o.runs.UpdateRun(ctx, run)
}
