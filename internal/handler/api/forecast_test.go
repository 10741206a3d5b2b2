package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/handler/session"
	"FinCast/internal/service/predictor"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/usecase"
	xlogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	horizons []int
	err      error
}

func (s *stubBackend) Forecast(_ context.Context, _ string, horizons []int) (*models.ForecastResponse, error) {
	s.horizons = horizons
	if s.err != nil {
		return nil, s.err
	}
	res := &models.ForecastResponse{Timeframe: "1h", Results: map[string]models.ForecastPrediction{}}
	for _, h := range horizons {
		res.Results[strconv.Itoa(h)+"h"] = models.ForecastPrediction{PredStack: float64(h)}
	}
	return res, nil
}

func (s *stubBackend) History(_ context.Context, symbol string, days int) (*models.HistoryResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.HistoryResponse{Symbol: symbol, Days: days, Timeframe: "1h"}, nil
}

func (s *stubBackend) ModelMetrics(context.Context) (map[string]models.ModelMetrics, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]models.ModelMetrics{"lgbm": {}}, nil
}

func (s *stubBackend) EvalSeries(_ context.Context, limit int) (*models.EvalSeriesResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.EvalSeriesResponse{Data: make([]models.EvalPoint, min(limit, 3))}, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, b *stubBackend, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	store := usecase.NewSessionStore(usecase.NewDashboardFactory(usecase.DashboardDeps{
		Backend:  b,
		Symbol:   "ETH/USDT",
		Presets:  []int{1, 10, 24, 48, 72},
		Location: time.UTC,
	}), 10, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	e := echo.New()
	NewForecastHandler(xlogger.NewNop(), store, b, limiter, "ETH/USDT").RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestValidateHorizonEndpoint(t *testing.T) {
	e := newTestServer(t, &stubBackend{}, nil)

	rec := do(e, http.MethodGet, "/api/horizon/validate?value=200", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got usecase.HorizonCheck
	decode(t, rec, &got)
	assert.False(t, got.Valid)
	assert.False(t, got.SubmitEnabled)
	assert.Equal(t, "Enter a number between 1 and 168.", got.Error)

	rec = do(e, http.MethodGet, "/api/horizon/validate?value="+url.QueryEscape("1a2")+"&paste=true", nil)
	decode(t, rec, &got)
	assert.True(t, got.Valid)
	assert.Equal(t, 12, got.Horizon)
}

func TestForecastEndpointRunsSessionPipeline(t *testing.T) {
	b := &stubBackend{}
	e := newTestServer(t, b, nil)

	rec := do(e, http.MethodPost, "/api/forecast", url.Values{"preset": {"10"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, b.horizons)

	var sid *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			sid = c
		}
	}
	require.NotNil(t, sid)

	var view struct {
		Outcome models.Outcome `json:"outcome"`
		ChartID string         `json:"chart_id"`
		Entries []struct {
			Label string `json:"label"`
		} `json:"entries"`
	}
	decode(t, rec, &view)
	assert.Equal(t, models.OutcomeSuccess, view.Outcome)
	assert.Len(t, view.Entries, 10)
	assert.Equal(t, "1h", view.Entries[0].Label)
	assert.NotEmpty(t, view.ChartID)

	rec = do(e, http.MethodPost, "/api/forecast", url.Values{"custom": {"3"}, "preset": {"10"}}, sid)
	assert.Empty(t, rec.Result().Cookies(), "existing session is reused")
	assert.Equal(t, []int{1, 2, 3}, b.horizons)
}

func TestForecastEndpointRejectsOutOfRangePreset(t *testing.T) {
	e := newTestServer(t, &stubBackend{}, nil)
	rec := do(e, http.MethodPost, "/api/forecast", url.Values{"preset": {"500"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastEndpointIsRateLimited(t *testing.T) {
	e := newTestServer(t, &stubBackend{}, ratelimit.New(1, 0))

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/forecast", url.Values{"preset": {"1"}}).Code)
	rec := do(e, http.MethodPost, "/api/forecast", url.Values{"preset": {"1"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_RATE_LIMITED")
}

func TestPassthroughEndpoints(t *testing.T) {
	e := newTestServer(t, &stubBackend{}, nil)

	rec := do(e, http.MethodGet, "/api/history?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist models.HistoryResponse
	decode(t, rec, &hist)
	assert.Equal(t, 7, hist.Days)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/history?days=3", nil).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/model-metrics", nil).Code)

	rec = do(e, http.MethodGet, "/api/eval-series", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var eval models.EvalSeriesResponse
	decode(t, rec, &eval)
	assert.Len(t, eval.Data, 3)
}

func TestPassthroughMapsBackendErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&predictor.NetworkError{Kind: predictor.KindHTTPStatus, StatusCode: 500}, http.StatusBadGateway},
		{&predictor.NetworkError{Kind: predictor.KindUnreachable}, http.StatusBadGateway},
		{&predictor.NetworkError{Kind: predictor.KindTimeout, Endpoint: "metrics"}, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		e := newTestServer(t, &stubBackend{err: tt.err}, nil)
		assert.Equal(t, tt.code, do(e, http.MethodGet, "/api/model-metrics", nil).Code, tt.err.Error())
	}
}

func TestPassthroughErrorCarriesKindAndStatus(t *testing.T) {
	e := newTestServer(t, &stubBackend{err: &predictor.NetworkError{
		Kind: predictor.KindHTTPStatus, StatusCode: 503, Body: "warming up",
	}}, nil)

	rec := do(e, http.MethodGet, "/api/model-metrics", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var errs []struct {
		Code   string                 `json:"code"`
		Params map[string]interface{} `json:"params"`
	}
	decode(t, rec, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UPSTREAM", errs[0].Code)
	assert.Equal(t, "http_status", errs[0].Params["kind"])
	assert.Equal(t, float64(503), errs[0].Params["upstream_status"])
}
