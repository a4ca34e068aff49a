package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-go/internal/domain"
	"github.com/andresuchdata/restock-go/internal/pipeline"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
	"github.com/andresuchdata/restock-go/internal/service"
)

type fakeRestockService struct {
	lastParams restock.Params
	err        error
	refreshed  int
}

func (f *fakeRestockService) Forecast(_ context.Context, p restock.Params) (*restock.Result, error) {
	f.lastParams = p
	if f.err != nil {
		return nil, f.err
	}
	return &restock.Result{
		ReferenceDate: p.ReferenceDate,
		Event:         domain.EventPD,
		Rows: []domain.ForecastRow{
			{EntityID: "A1", Restockable: true, ToShipUnits: 114},
			{EntityID: "B2", Restockable: false, ToShipUnits: 1},
		},
	}, nil
}

func (f *fakeRestockService) Refresh(ctx context.Context, p restock.Params) (*restock.Result, error) {
	f.refreshed++
	return f.Forecast(ctx, p)
}

func (f *fakeRestockService) IncomingWeeks(_ context.Context, p restock.Params) (domain.IncomingWeeks, error) {
	f.lastParams = p
	return domain.IncomingWeeks{}, f.err
}

func (f *fakeRestockService) NearestEvent(today time.Time) (service.UpcomingEvent, bool) {
	return service.UpcomingEvent{Event: domain.EventPD, Date: today.AddDate(0, 0, 9), DaysUntil: 9}, true
}

func (f *fakeRestockService) Events(today time.Time) []service.UpcomingEvent {
	next, _ := f.NearestEvent(today)
	return []service.UpcomingEvent{next}
}

func (f *fakeRestockService) Runs(context.Context, int) ([]*pipeline.Run, error) {
	return []*pipeline.Run{{ID: 3, Status: pipeline.StatusCompleted}}, nil
}

func (f *fakeRestockService) Run(_ context.Context, id int64) (*pipeline.Run, error) {
	if id != 3 {
		return nil, service.ErrRunNotFound
	}
	return &pipeline.Run{ID: 3, Status: pipeline.StatusCompleted}, nil
}

func (f *fakeRestockService) RunStats(context.Context, time.Time) (*pipeline.PipelineMetrics, error) {
	return &pipeline.PipelineMetrics{Runs: 4, RowsProduced: 400, ErrorCount: 1}, nil
}

func newTestRouter(svc *fakeRestockService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	base := restock.DefaultParams(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	return NewRouter(&Services{RestockService: svc, BaseParams: base}, nil)
}

func do(t *testing.T, router *gin.Engine, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func TestHealth(t *testing.T) {
	w, body := do(t, newTestRouter(&fakeRestockService{}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetForecast(t *testing.T) {
	svc := &fakeRestockService{}
	w, body := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/restock/forecast?event=bfcm&key_mode=SKU&long_term_days=90&include_events=true")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.EventBFCM, svc.lastParams.Event)
	assert.Equal(t, restock.KeySKU, svc.lastParams.KeyMode)
	assert.Equal(t, 90, svc.lastParams.LongTermDays)
	assert.True(t, svc.lastParams.IncludeEvents)
	assert.Len(t, body["rows"], 2)
}

func TestGetForecast_VelocityOverrides(t *testing.T) {
	svc := &fakeRestockService{}
	w, _ := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/restock/forecast?spike_ratio=7.5&strong_velocity_threshold=2")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7.5, svc.lastParams.SpikeRatio)
	assert.Equal(t, 2.0, svc.lastParams.StrongVelocityThreshold)
}

func TestGetForecast_RestockableOnly(t *testing.T) {
	_, body := do(t, newTestRouter(&fakeRestockService{}), http.MethodGet, "/api/v1/restock/forecast?restockable_only=true")
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "A1", rows[0].(map[string]interface{})["asin"])
}

func TestGetForecast_BadQuery(t *testing.T) {
	router := newTestRouter(&fakeRestockService{})

	for _, target := range []string{
		"/api/v1/restock/forecast?reference_date=07/01/2024",
		"/api/v1/restock/forecast?long_term_days=-3",
		"/api/v1/restock/forecast?include_events=maybe",
		"/api/v1/restock/forecast?spike_ratio=0",
		"/api/v1/restock/forecast?strong_velocity_threshold=fast",
	} {
		w, body := do(t, router, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestGetForecast_ErrorMapping(t *testing.T) {
	_, cfgErr := restock.NewCalculator(nil).Run(restock.Inputs{}, restock.Params{})
	require.Error(t, cfgErr)
	require.True(t, restock.IsConfigurationError(cfgErr))

	w, _ := do(t, newTestRouter(&fakeRestockService{err: cfgErr}), http.MethodGet, "/api/v1/restock/forecast")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := do(t, newTestRouter(&fakeRestockService{err: errors.New("db down")}), http.MethodGet, "/api/v1/restock/forecast")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body["error"])
}

func TestRefreshForecast(t *testing.T) {
	svc := &fakeRestockService{}
	w, body := do(t, newTestRouter(svc), http.MethodPost, "/api/v1/restock/forecast/refresh?reference_date=2024-08-01")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.refreshed)
	assert.Equal(t, float64(2), body["rows"])
	assert.Equal(t, time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC), svc.lastParams.ReferenceDate)
}

func TestGetIncomingWeeks_EmptyArrays(t *testing.T) {
	w, body := do(t, newTestRouter(&fakeRestockService{}), http.MethodGet, "/api/v1/restock/incoming")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, body["weeks"])
	assert.Equal(t, []interface{}{}, body["rows"])
}

func TestEventsEndpoints(t *testing.T) {
	router := newTestRouter(&fakeRestockService{})

	w, body := do(t, router, http.MethodGet, "/api/v1/restock/events/nearest")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PD", body["event"])
	assert.Equal(t, float64(9), body["days_until"])

	w, body = do(t, router, http.MethodGet, "/api/v1/restock/events")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["events"], 1)
}

func TestGetRuns(t *testing.T) {
	w, body := do(t, newTestRouter(&fakeRestockService{}), http.MethodGet, "/api/v1/restock/runs?limit=5")
	assert.Equal(t, http.StatusOK, w.Code)
	runs := body["runs"].([]interface{})
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].(map[string]interface{})["status"])
}

func TestGetRun(t *testing.T) {
	router := newTestRouter(&fakeRestockService{})

	w, body := do(t, router, http.MethodGet, "/api/v1/restock/runs/3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["id"])

	w, _ = do(t, router, http.MethodGet, "/api/v1/restock/runs/42")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, router, http.MethodGet, "/api/v1/restock/runs/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRunStats(t *testing.T) {
	w, body := do(t, newTestRouter(&fakeRestockService{}), http.MethodGet, "/api/v1/restock/runs/stats?days=30")
	assert.Equal(t, http.StatusOK, w.Code)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(4), stats["runs"])
	assert.Equal(t, float64(1), stats["error_count"])
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}

func TestCorsConfig(t *testing.T) {
	cfg := corsConfig(nil)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.AllowOrigins)
	assert.Contains(t, cfg.ExposeHeaders, "X-Request-ID")

	cfg = corsConfig([]string{"https://ops.example"})
	assert.Equal(t, []string{"https://ops.example"}, cfg.AllowOrigins)

	cfg = corsConfig([]string{"*"})
	assert.Nil(t, cfg.AllowOrigins)
	require.NotNil(t, cfg.AllowOriginFunc)
	assert.True(t, cfg.AllowOriginFunc("https://anything.example"))
}
