package repository

import (
	"context"

	"FinCast/internal/domain/models"
)

// PredictionBackend is the external forecasting service.
type PredictionBackend interface {
	Forecast(ctx context.Context, symbol string, horizons []int) (*models.ForecastResponse, error)
	History(ctx context.Context, symbol string, days int) (*models.HistoryResponse, error)
	ModelMetrics(ctx context.Context) (map[string]models.ModelMetrics, error)
	EvalSeries(ctx context.Context, limit int) (*models.EvalSeriesResponse, error)
}

// EventPublisher ships settled run events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, e *models.RunEvent) error
	PublishBatch(ctx context.Context, events []*models.RunEvent) error
	Close() error
}

type Metrics interface {
	RecordRun(outcome string)
	RecordBackendRequest(endpoint, result string, seconds float64)
	ChartCreated(slot string)
	ChartDestroyed(slot string)
	RecordCacheLookup(endpoint string, hit bool)
	RecordError(kind string)
}
