package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/handler/session"
	"FinCast/internal/usecase"
	xlogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct{}

func (stubBackend) Forecast(_ context.Context, symbol string, horizons []int) (*models.ForecastResponse, error) {
	res := &models.ForecastResponse{Symbol: symbol, Timeframe: "1h", Results: map[string]models.ForecastPrediction{}}
	for _, h := range horizons {
		res.Results[strconv.Itoa(h)+"h"] = models.ForecastPrediction{PredStack: 3000 + float64(h)}
	}
	return res, nil
}

func (stubBackend) History(_ context.Context, symbol string, days int) (*models.HistoryResponse, error) {
	return &models.HistoryResponse{Symbol: symbol, Days: days, Timeframe: "1h", Data: []models.CandleWire{
		{Timestamp: "2025-01-05T02:00:00", Open: 3000, High: 3010, Low: 2990, Close: 3005, Volume: 2},
		{Timestamp: "2025-01-05T03:00:00", Open: 3005, High: 3020, Low: 3000, Close: 3015, Volume: 3},
	}}, nil
}

func (stubBackend) ModelMetrics(context.Context) (map[string]models.ModelMetrics, error) {
	rmse := 12.5
	return map[string]models.ModelMetrics{"lgbm": {RMSE: &rmse}}, nil
}

func (stubBackend) EvalSeries(_ context.Context, limit int) (*models.EvalSeriesResponse, error) {
	return &models.EvalSeriesResponse{Data: []models.EvalPoint{
		{Timestamp: "2025-01-05T02:00:00", YTrue: 1, YStack: 1.1, YLGBM: 0.9, YTCN: 1.2},
		{Timestamp: "2025-01-05T03:00:00", YTrue: 2, YStack: 2.1, YLGBM: 1.9, YTCN: 2.2},
	}}, nil
}

type testServer struct {
	e     *echo.Echo
	store *usecase.SessionStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	presets := []int{1, 10, 24, 48, 72}
	store := usecase.NewSessionStore(usecase.NewDashboardFactory(usecase.DashboardDeps{
		Backend:   stubBackend{},
		Symbol:    "ETH/USDT",
		Presets:   presets,
		EvalLimit: 50,
		Location:  time.UTC,
	}), 10, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	h, err := NewDashboardHandler(xlogger.NewNop(), store, Config{
		Symbol:        "ETH/USDT",
		Presets:       presets,
		DefaultPreset: 24,
		Location:      time.UTC,
	})
	require.NoError(t, err)

	e := echo.New()
	h.RegisterRoutes(e)
	return &testServer{e: e, store: store}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (s *testServer) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return s.do(req, cookies...)
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRootRedirectsToHome(t *testing.T) {
	s := newTestServer(t)
	rec := s.get("/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/home", rec.Header().Get(echo.HeaderLocation))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHomeRendersHistory(t *testing.T) {
	s := newTestServer(t)
	rec := s.get("/dashboard/home?days=7")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Showing ETH/USDT for the last 7 days (interval 1h).")
	assert.Contains(t, body, "3005.00")
	assert.Contains(t, body, `src="/dashboard/chart/history?v=`)
	assert.NotNil(t, cookie(rec, session.CookieName))
	assert.Equal(t, 1, s.store.Len())
}

func TestHomeRejectsUnknownRange(t *testing.T) {
	s := newTestServer(t)
	rec := s.get("/dashboard/home?days=5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load history")
	assert.NotContains(t, rec.Body.String(), "<iframe")
}

func TestMetricsPage(t *testing.T) {
	s := newTestServer(t)
	rec := s.get("/dashboard/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lgbm")
	assert.Contains(t, rec.Body.String(), "12.5000")
	assert.Contains(t, rec.Body.String(), `src="/dashboard/chart/eval?v=`)
}

func TestForecastRunThenChartAndPNG(t *testing.T) {
	s := newTestServer(t)
	first := s.get("/dashboard/forecast")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), `value="24" selected`)
	sid := cookie(first, session.CookieName)
	require.NotNil(t, sid)

	rec := s.post("/dashboard/forecast", url.Values{"preset": {"10"}}, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Forecast complete. Timeframe: 1h.")
	assert.Contains(t, body, "Forecast chart loaded.")
	assert.Contains(t, body, "3010.0000")
	assert.Contains(t, body, `value="10" selected`)

	chart := s.get("/dashboard/chart/forecast", sid)
	require.Equal(t, http.StatusOK, chart.Code)
	assert.Contains(t, chart.Body.String(), "echarts")
	assert.Equal(t, "no-store", chart.Header().Get(echo.HeaderCacheControl))

	png := s.get("/dashboard/chart/forecast.png", sid)
	require.Equal(t, http.StatusOK, png.Code)
	assert.Equal(t, "image/png", png.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(png.Body.String(), "\x89PNG"))

	// the last run survives a plain page load
	again := s.get("/dashboard/forecast", sid)
	assert.Contains(t, again.Body.String(), "Forecast complete. Timeframe: 1h.")
}

func TestForecastSinglePointHasNoChart(t *testing.T) {
	s := newTestServer(t)
	rec := s.post("/dashboard/forecast", url.Values{"custom": {"1"}, "preset": {"24"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Chart not shown for a single-point horizon.")
	assert.NotContains(t, rec.Body.String(), "<iframe")

	sid := cookie(rec, session.CookieName)
	require.NotNil(t, sid)
	assert.Equal(t, http.StatusNotFound, s.get("/dashboard/chart/forecast", sid).Code)
	assert.Equal(t, http.StatusNotFound, s.get("/dashboard/chart/forecast.png", sid).Code)
}

func TestForecastInvalidCustom(t *testing.T) {
	s := newTestServer(t)
	rec := s.post("/dashboard/forecast", url.Values{"custom": {"500"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a number between 1 and 168.")
	assert.Contains(t, rec.Body.String(), `id="submit" disabled`)
}

func TestChartWithoutSession(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.get("/dashboard/chart/forecast").Code)
}

func TestChartUnknownSlot(t *testing.T) {
	s := newTestServer(t)
	sid := cookie(s.get("/dashboard/home"), session.CookieName)
	require.NotNil(t, sid)
	assert.Equal(t, http.StatusNotFound, s.get("/dashboard/chart/nope", sid).Code)
}

func TestToggleTheme(t *testing.T) {
	s := newTestServer(t)
	home := s.get("/dashboard/home")
	sid := cookie(home, session.CookieName)
	require.NotNil(t, sid)
	assert.Contains(t, home.Body.String(), `data-theme="light"`)

	rec := s.post("/dashboard/theme", url.Values{"back": {"/dashboard/metrics"}}, sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/metrics", rec.Header().Get(echo.HeaderLocation))
	theme := cookie(rec, session.ThemeCookie)
	require.NotNil(t, theme)
	assert.Equal(t, "dark", theme.Value)

	d, ok := s.store.Get(sid.Value)
	require.True(t, ok)
	assert.Equal(t, "dark", string(d.Theme()))

	chart := s.get("/dashboard/chart/history", sid)
	require.Equal(t, http.StatusOK, chart.Code)
	assert.Contains(t, chart.Body.String(), "chalk")
}

func TestToggleThemeIgnoresForeignBack(t *testing.T) {
	s := newTestServer(t)
	for _, back := range []string{
		"//example.com/x",
		"/\\evil.example/x",
		"/\\/evil.example",
		"https://evil.example/",
		"/dashboard\r\nLocation: //evil.example",
		"dashboard/home",
		"",
	} {
		rec := s.post("/dashboard/theme", url.Values{"back": {back}})
		assert.Equal(t, http.StatusSeeOther, rec.Code, back)
		assert.Equal(t, "/dashboard/home", rec.Header().Get(echo.HeaderLocation), back)
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		back string
		want string
	}{
		{"/dashboard/metrics", "/dashboard/metrics"},
		{"/dashboard/home?days=30", "/dashboard/home?days=30"},
		{"/\\evil.example", "/dashboard/home"},
		{"///evil.example", "/dashboard/home"},
		{"http:evil.example", "/dashboard/home"},
		{"/a\tb", "/dashboard/home"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, localPath(tt.back), tt.back)
	}
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t)
	rec := s.get("/static/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/ws/clock")
	// stale validation replies are dropped
	assert.Contains(t, rec.Body.String(), "if (id !== latestCheck) { return; }")
}
