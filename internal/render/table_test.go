package render

import (
	"testing"
	"time"

	"FinCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("UTC+7", 7*3600)

func ptr(v float64) *float64 { return &v }

func TestForecastTable(t *testing.T) {
	entries := []models.ForecastEntry{
		{Label: "1h", Horizon: 1, TargetTime: time.Date(2025, 1, 5, 2, 7, 0, 0, time.UTC), Value: 3000.123456},
		{Label: "2h", Horizon: 2, TargetRaw: "later", Value: 3001},
	}
	tbl := ForecastTable(entries, wib)

	require.Len(t, tbl.Rows, 2)
	assert.Empty(t, tbl.Placeholder)
	assert.Equal(t, []string{"1h", "5/1/2025, 09.07.00", "3000.1235"}, tbl.Rows[0].Cells)
	assert.Equal(t, []string{"2h", "later", "3001.0000"}, tbl.Rows[1].Cells)
}

func TestEmptyTablesHavePlaceholder(t *testing.T) {
	assert.Equal(t, NoDataText, ForecastTable(nil, wib).Placeholder)
	assert.Equal(t, NoDataText, HistoryTable(nil, wib).Placeholder)
	assert.Equal(t, NoDataText, MetricsTable(nil).Placeholder)
}

func TestHistoryTable(t *testing.T) {
	candles := []models.Candle{{
		Time:   time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Open:   3000.456,
		High:   3010,
		Low:    2990.1,
		Close:  3005.5,
		Volume: 12.345678,
	}}
	tbl := HistoryTable(candles, wib)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{
		"5/1/2025, 07.00.00", "3000.46", "3010.00", "2990.10", "3005.50", "12.3457", "37104.94",
	}, tbl.Rows[0].Cells)
}

func TestMetricsTableSortsAndDashes(t *testing.T) {
	tbl := MetricsTable(map[string]models.ModelMetrics{
		"tcn":      {RMSE: ptr(12.3456789)},
		"lgbm":     {RMSE: ptr(10), MAPE: ptr(0.012345)},
		"stacking": {},
	})
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, []string{"lgbm", "10.0000", "0.0123"}, tbl.Rows[0].Cells)
	assert.Equal(t, []string{"stacking", "-", "-"}, tbl.Rows[1].Cells)
	assert.Equal(t, []string{"tcn", "12.3457", "-"}, tbl.Rows[2].Cells)
}

func TestSummarize(t *testing.T) {
	assert.Nil(t, Summarize(nil))

	s := Summarize([]float64{3, 1, 2})
	require.NotNil(t, s)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
	assert.InDelta(t, 2.0, s.Mean, 1e-9)
}

func TestStatusReporter(t *testing.T) {
	r := NewStatusReporter()
	assert.Equal(t, models.StatusState{Kind: models.StatusNeutral}, r.Get(models.SlotChart))

	r.Set(models.SlotOverall, "failed", models.StatusError)
	r.Set(models.SlotOverall, "ok", models.StatusSuccess)
	assert.Equal(t, models.StatusState{Text: "ok", Kind: models.StatusSuccess}, r.Get(models.SlotOverall))

	r.Set(models.SlotChart, "odd", models.StatusKind("loud"))
	assert.Equal(t, models.StatusNeutral, r.Get(models.SlotChart).Kind)

	r.Clear(models.SlotOverall)
	assert.Equal(t, "", r.Get(models.SlotOverall).Text)
}
