package render

import (
	"FinCast/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summarize returns min, max and mean of values, or nil when there are none.
func Summarize(values []float64) *models.ForecastSummary {
	if len(values) == 0 {
		return nil
	}
	return &models.ForecastSummary{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Mean:  stat.Mean(values, nil),
	}
}
