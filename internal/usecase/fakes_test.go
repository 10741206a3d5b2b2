package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinCast/internal/domain/models"
)

type fakeBackend struct {
	mu       sync.Mutex
	horizons [][]int
	forecast func(ctx context.Context, horizons []int) (*models.ForecastResponse, error)
	history  func(days int) (*models.HistoryResponse, error)
	metrics  func() (map[string]models.ModelMetrics, error)
	eval     func(limit int) (*models.EvalSeriesResponse, error)
}

func (f *fakeBackend) Forecast(ctx context.Context, _ string, horizons []int) (*models.ForecastResponse, error) {
	f.mu.Lock()
	f.horizons = append(f.horizons, horizons)
	f.mu.Unlock()
	if f.forecast == nil {
		return answer(len(horizons)), nil
	}
	return f.forecast(ctx, horizons)
}

func (f *fakeBackend) History(_ context.Context, _ string, days int) (*models.HistoryResponse, error) {
	return f.history(days)
}

func (f *fakeBackend) ModelMetrics(context.Context) (map[string]models.ModelMetrics, error) {
	return f.metrics()
}

func (f *fakeBackend) EvalSeries(_ context.Context, limit int) (*models.EvalSeriesResponse, error) {
	return f.eval(limit)
}

func (f *fakeBackend) calls() [][]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]int(nil), f.horizons...)
}

// answer returns a forecast with entries 1h..nh.
func answer(n int) *models.ForecastResponse {
	base := time.Date(2025, 1, 5, 2, 0, 0, 0, time.UTC)
	res := &models.ForecastResponse{Symbol: "ETH/USDT", Timeframe: "1h", Results: map[string]models.ForecastPrediction{}}
	for h := 1; h <= n; h++ {
		res.Results[fmt.Sprintf("%dh", h)] = models.ForecastPrediction{
			PredStack:       3000 + float64(h),
			TargetTimeLocal: base.Add(time.Duration(h) * time.Hour).Format(time.RFC3339),
		}
	}
	return res
}

type recordingEvents struct {
	mu     sync.Mutex
	events []*models.RunEvent
}

func (r *recordingEvents) Process(_ context.Context, e *models.RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) outcomes() []models.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Outcome, len(r.events))
	for i, e := range r.events {
		out[i] = e.Outcome
	}
	return out
}

type countingMetrics struct {
	mu        sync.Mutex
	runs      map[string]int
	created   int
	destroyed int
}

func newCountingMetrics() *countingMetrics { return &countingMetrics{runs: map[string]int{}} }

func (m *countingMetrics) RecordRun(outcome string) {
	m.mu.Lock()
	m.runs[outcome]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordBackendRequest(string, string, float64) {}

func (m *countingMetrics) ChartCreated(string) {
	m.mu.Lock()
	m.created++
	m.mu.Unlock()
}

func (m *countingMetrics) ChartDestroyed(string) {
	m.mu.Lock()
	m.destroyed++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordCacheLookup(string, bool) {}

func (m *countingMetrics) RecordError(string) {}
