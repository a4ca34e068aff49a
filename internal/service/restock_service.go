package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/cache"
	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/domain"
	"github.com/andresuchdata/restock-go/internal/pipeline"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

// Forecaster runs a full forecast.
type Forecaster interface {
	Run(ctx context.Context, p restock.Params) (*pipeline.Outcome, error)
}

// RunReader reads recorded runs.
type RunReader interface {
	ListRuns(ctx context.Context, pipelineName string, limit int) ([]*pipeline.Run, error)
	GetRun(ctx context.Context, id int64) (*pipeline.Run, error)
	GetPipelineStats(ctx context.Context, pipelineName string, since time.Time) (*pipeline.PipelineMetrics, error)
}

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// UpcomingEvent is the next occurrence of a calendar event.
type UpcomingEvent struct {
	Event              domain.Event `json:"event"`
	Date               time.Time    `json:"date"`
	DaysUntil          int          `json:"days_until"`
	DurationDays       int          `json:"duration_days"`
	PlanningCutoffDays int          `json:"planning_cutoff_days"`
}

type RestockService struct {
	forecaster   Forecaster
	cache        cache.ForecastCache
	cal          *calendar.Calendar
	runs         RunReader
	pipelineName string

	// runs of the engine are serialised; they share the output directory
	mu sync.Mutex
}

func NewRestockService(forecaster Forecaster, cal *calendar.Calendar, cacheImpl cache.ForecastCache, runs RunReader, pipelineName string) *RestockService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	if cal == nil {
		cal = calendar.Default()
	}
	return &RestockService{
		forecaster:   forecaster,
		cache:        cacheImpl,
		cal:          cal,
		runs:         runs,
		pipelineName: pipelineName,
	}
}

// Forecast returns the cached result for p or computes it.
func (s *RestockService) Forecast(ctx context.Context, p restock.Params) (*restock.Result, error) {
	if res, ok, err := s.cache.GetForecast(ctx, p); err == nil && ok {
		return res, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("restock: cache get forecast failed")
	}

	return s.Refresh(ctx, p)
}

// Refresh always recomputes the forecast and replaces the cached copy.
func (s *RestockService) Refresh(ctx context.Context, p restock.Params) (*restock.Result, error) {
	s.mu.Lock()
	outcome, err := s.forecaster.Run(ctx, p)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetForecast(ctx, p, outcome.Result); err != nil {
		log.Warn().Err(err).Msg("restock: cache set forecast failed")
	}
	return outcome.Result, nil
}

// IncomingWeeks returns the weekly inbound pivot of the forecast for p.
func (s *RestockService) IncomingWeeks(ctx context.Context, p restock.Params) (domain.IncomingWeeks, error) {
	res, err := s.Forecast(ctx, p)
	if err != nil {
		return domain.IncomingWeeks{}, err
	}
	return res.Incoming, nil
}

// NearestEvent returns the closest upcoming event as of today.
func (s *RestockService) NearestEvent(today time.Time) (UpcomingEvent, bool) {
	next, ok := s.cal.NearestEvent(today)
	if !ok {
		return UpcomingEvent{}, false
	}
	return toUpcoming(next), true
}

// Events returns the next occurrence of every event, soonest first.
func (s *RestockService) Events(today time.Time) []UpcomingEvent {
	defs := s.cal.Events()
	out := make([]UpcomingEvent, 0, len(defs))
	for _, def := range defs {
		out = append(out, toUpcoming(s.cal.Next(def, today)))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysUntil < out[j].DaysUntil })
	return out
}

// Runs lists the latest recorded runs. Without run tracking it is empty.
func (s *RestockService) Runs(ctx context.Context, limit int) ([]*pipeline.Run, error) {
	if s.runs == nil {
		return []*pipeline.Run{}, nil
	}
	runs, err := s.runs.ListRuns(ctx, s.pipelineName, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = make([]*pipeline.Run, 0)
	}
	return runs, nil
}

// Run returns one recorded run.
func (s *RestockService) Run(ctx context.Context, id int64) (*pipeline.Run, error) {
	if s.runs == nil {
		return nil, ErrRunNotFound
	}
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// RunStats summarises the runs started since the given time.
func (s *RestockService) RunStats(ctx context.Context, since time.Time) (*pipeline.PipelineMetrics, error) {
	if s.runs == nil {
		return &pipeline.PipelineMetrics{}, nil
	}
	return s.runs.GetPipelineStats(ctx, s.pipelineName, since)
}

// InvalidateCache drops every cached forecast.
func (s *RestockService) InvalidateCache(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

func toUpcoming(n calendar.Nearest) UpcomingEvent {
	return UpcomingEvent{
		Event:              n.Event,
		Date:               n.Date,
		DaysUntil:          n.DaysUntil,
		DurationDays:       n.DurationDays,
		PlanningCutoffDays: n.Definition.PlanningCutoffDays,
	}
}
