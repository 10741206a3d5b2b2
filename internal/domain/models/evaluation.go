package models

// ModelMetrics holds the error metrics of one model. Missing metrics are nil.
type ModelMetrics struct {
	RMSE *float64 `json:"RMSE,omitempty"`
	MSE  *float64 `json:"MSE,omitempty"`
	MAE  *float64 `json:"MAE,omitempty"`
	MAPE *float64 `json:"MAPE,omitempty"`
}

// EvalSeriesResponse is the body of GET /eval-series.
type EvalSeriesResponse struct {
	Data []EvalPoint `json:"data"`
}

// EvalPoint is actual vs predicted at one timestamp.
type EvalPoint struct {
	Timestamp string   `json:"timestamp"`
	YTrue     float64  `json:"y_true"`
	YStack    float64  `json:"y_stack"`
	YLGBM     float64  `json:"y_lgbm"`
	YTCN      float64  `json:"y_tcn"`
	YMean     *float64 `json:"y_mean,omitempty"`
	YWMean    *float64 `json:"y_wmean,omitempty"`
}
