package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/domain"
	"github.com/andresuchdata/restock-go/internal/pipeline"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
	"github.com/andresuchdata/restock-go/internal/service"
)

// RestockService is what the handler needs from service.RestockService.
type RestockService interface {
	Forecast(ctx context.Context, p restock.Params) (*restock.Result, error)
	Refresh(ctx context.Context, p restock.Params) (*restock.Result, error)
	IncomingWeeks(ctx context.Context, p restock.Params) (domain.IncomingWeeks, error)
	NearestEvent(today time.Time) (service.UpcomingEvent, bool)
	Events(today time.Time) []service.UpcomingEvent
	Runs(ctx context.Context, limit int) ([]*pipeline.Run, error)
	Run(ctx context.Context, id int64) (*pipeline.Run, error)
	RunStats(ctx context.Context, since time.Time) (*pipeline.PipelineMetrics, error)
}

type RestockHandler struct {
	service RestockService
	base    restock.Params
	today   func() time.Time
}

// NewRestockHandler serves forecasts computed with base unless a request
// overrides a parameter. A zero base reference date means the current day.
func NewRestockHandler(svc RestockService, base restock.Params) *RestockHandler {
	return &RestockHandler{
		service: svc,
		base:    base,
		today:   func() time.Time { return calendar.DateOnly(time.Now().UTC()) },
	}
}

// errBadRequest marks query parameters that cannot be parsed.
var errBadRequest = errors.New("bad request")

func (h *RestockHandler) parseParams(c *gin.Context) (restock.Params, error) {
	p := h.base
	if p.ReferenceDate.IsZero() {
		p.ReferenceDate = h.today()
	}

	if raw := strings.TrimSpace(c.Query("reference_date")); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return p, fmt.Errorf("%w: reference_date must be YYYY-MM-DD", errBadRequest)
		}
		p.ReferenceDate = date
	}
	if raw := strings.TrimSpace(c.Query("event")); raw != "" {
		p.Event = domain.Event(strings.ToUpper(raw))
	}
	if raw := strings.TrimSpace(c.Query("key_mode")); raw != "" {
		p.KeyMode = restock.KeyMode(strings.ToLower(raw))
	}
	if raw := strings.TrimSpace(c.Query("include_events")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return p, fmt.Errorf("%w: include_events must be a boolean", errBadRequest)
		}
		p.IncludeEvents = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"long_term_days", &p.LongTermDays},
		{"short_term_days", &p.ShortTermDays},
		{"coverage_days", &p.CoverageDays},
	}
	for _, q := range ints {
		raw := strings.TrimSpace(c.Query(q.name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return p, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, q.name)
		}
		*q.dst = v
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"spike_ratio", &p.SpikeRatio},
		{"strong_velocity_threshold", &p.StrongVelocityThreshold},
	}
	for _, q := range floats {
		raw := strings.TrimSpace(c.Query(q.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || math.IsInf(v, 0) {
			return p, fmt.Errorf("%w: %s must be a positive number", errBadRequest, q.name)
		}
		*q.dst = v
	}

	return p, nil
}

func (h *RestockHandler) GetForecast(c *gin.Context) {
	p, err := h.parseParams(c)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.service.Forecast(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}

	if c.Query("restockable_only") == "true" {
		filtered := *res
		filtered.Rows = make([]domain.ForecastRow, 0, len(res.Rows))
		for _, row := range res.Rows {
			if row.Restockable {
				filtered.Rows = append(filtered.Rows, row)
			}
		}
		res = &filtered
	}

	c.JSON(http.StatusOK, res)
}

func (h *RestockHandler) RefreshForecast(c *gin.Context) {
	p, err := h.parseParams(c)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference_date": res.ReferenceDate,
		"event":          res.Event,
		"rows":           len(res.Rows),
		"warnings":       res.Warnings,
	})
}

func (h *RestockHandler) GetIncomingWeeks(c *gin.Context) {
	p, err := h.parseParams(c)
	if err != nil {
		writeError(c, err)
		return
	}

	inc, err := h.service.IncomingWeeks(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	if inc.Weeks == nil {
		inc.Weeks = make([]domain.YearWeek, 0)
	}
	if inc.Rows == nil {
		inc.Rows = make([]domain.IncomingWeekRow, 0)
	}

	c.JSON(http.StatusOK, inc)
}

func (h *RestockHandler) GetEvents(c *gin.Context) {
	p, err := h.parseParams(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": h.service.Events(p.ReferenceDate)})
}

func (h *RestockHandler) GetNearestEvent(c *gin.Context) {
	p, err := h.parseParams(c)
	if err != nil {
		writeError(c, err)
		return
	}

	next, ok := h.service.NearestEvent(p.ReferenceDate)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no events configured"})
		return
	}
	c.JSON(http.StatusOK, next)
}

func (h *RestockHandler) GetRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	runs, err := h.service.Runs(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *RestockHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, fmt.Errorf("%w: run id must be a number", errBadRequest))
		return
	}

	run, err := h.service.Run(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRunStats summarises the runs of the last `days` days (default 7).
func (h *RestockHandler) GetRunStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := h.service.RunStats(c.Request.Context(), since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"since": since, "stats": stats})
}

// writeError maps configuration problems to 400, unknown runs to 404 and
// everything else to 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), restock.IsConfigurationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled):
		status = 499
	}

	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("restock request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
