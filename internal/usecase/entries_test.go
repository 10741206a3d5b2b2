package usecase

import (
	"testing"
	"time"

	"FinCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(rs models.ForecastResultSet) []string {
	out := make([]string, len(rs.Entries))
	for i, e := range rs.Entries {
		out[i] = e.Label
	}
	return out
}

func TestHorizonFromLabel(t *testing.T) {
	assert.Equal(t, 3, HorizonFromLabel("3h"))
	assert.Equal(t, 10, HorizonFromLabel("h=10"))
	assert.Equal(t, -1, HorizonFromLabel("next"))
}

func TestBuildResultSetSortsNumerically(t *testing.T) {
	rs := BuildResultSet(&models.ForecastResponse{
		Timeframe: "1h",
		Results: map[string]models.ForecastPrediction{
			"h=2":  {PredStack: 2},
			"h=1":  {PredStack: 1},
			"h=10": {PredStack: 10},
		},
	})
	assert.Equal(t, []string{"h=1", "h=2", "h=10"}, labels(rs))
	assert.Equal(t, []float64{1, 2, 10}, rs.Values())
	assert.Equal(t, "1h", rs.Timeframe)
}

func TestBuildResultSetPutsUnnumberedLast(t *testing.T) {
	rs := BuildResultSet(&models.ForecastResponse{
		Results: map[string]models.ForecastPrediction{
			"zeta": {}, "24h": {}, "alpha": {}, "3h": {},
		},
	})
	assert.Equal(t, []string{"3h", "24h", "alpha", "zeta"}, labels(rs))
}

func TestBuildResultSetResolvesTargets(t *testing.T) {
	rs := BuildResultSet(&models.ForecastResponse{
		Results: map[string]models.ForecastPrediction{
			"1h": {TargetTimeLocal: "2025-01-05T02:07:00"},
			"2h": {TargetTimeUTC: "2025-01-05T03:07:00Z"},
			"3h": {TargetTimeLocal: "tomorrow"},
		},
	})
	require.Len(t, rs.Entries, 3)
	assert.True(t, rs.Entries[0].TargetTime.Equal(time.Date(2025, 1, 5, 2, 7, 0, 0, time.UTC)))
	assert.True(t, rs.Entries[1].TargetTime.Equal(time.Date(2025, 1, 5, 3, 7, 0, 0, time.UTC)))
	assert.True(t, rs.Entries[2].TargetTime.IsZero())
	assert.Equal(t, "tomorrow", rs.Entries[2].TargetRaw)
}

func TestBuildResultSetEmpty(t *testing.T) {
	assert.Empty(t, BuildResultSet(nil).Entries)
	assert.Empty(t, BuildResultSet(&models.ForecastResponse{}).Entries)
}
