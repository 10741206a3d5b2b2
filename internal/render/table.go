package render

import (
	"sort"
	"strconv"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/util"
)

// NoDataText is shown as the single placeholder row of an empty table.
const NoDataText = "No data"

// Row is one table row. Note is secondary text rendered under the first cell.
type Row struct {
	Cells []string `json:"cells"`
	Note  string   `json:"note,omitempty"`
}

// Table is a fully formatted table. Placeholder is set iff Rows is empty.
type Table struct {
	Headers     []string `json:"headers"`
	Rows        []Row    `json:"rows"`
	Placeholder string   `json:"placeholder,omitempty"`
}

func newTable(headers []string, rows []Row) Table {
	t := Table{Headers: headers, Rows: rows}
	if len(rows) == 0 {
		t.Placeholder = NoDataText
	}
	return t
}

// ForecastTable renders one row per entry in entry order.
func ForecastTable(entries []models.ForecastEntry, loc *time.Location) Table {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{
			Cells: []string{e.Label, FormatInstant(e.TargetTime, e.TargetRaw, loc), FormatFloat(e.Value, 4)},
		})
	}
	return newTable([]string{"Horizon", "Target time", "Prediction"}, rows)
}

// HistoryTable renders candles in the order received.
func HistoryTable(candles []models.Candle, loc *time.Location) Table {
	rows := make([]Row, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, Row{Cells: []string{
			FormatInstant(c.Time, c.Raw, loc),
			FormatFloat(c.Open, 2),
			FormatFloat(c.High, 2),
			FormatFloat(c.Low, 2),
			FormatFloat(c.Close, 2),
			FormatFloat(c.Volume, 4),
			FormatFloat(c.QuoteVolume(), 2),
		}})
	}
	return newTable([]string{"Time", "Open", "High", "Low", "Close", "Volume", "Quote volume"}, rows)
}

// MetricsTable renders one row per model, sorted by model name.
func MetricsTable(ms map[string]models.ModelMetrics) Table {
	names := make([]string, 0, len(ms))
	for name := range ms {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]Row, 0, len(names))
	for _, name := range names {
		m := ms[name]
		rows = append(rows, Row{Cells: []string{name, formatOptional(m.RMSE), formatOptional(m.MAPE)}})
	}
	return newTable([]string{"Model", "RMSE", "MAPE"}, rows)
}

// FormatFloat formats v with prec decimals.
func FormatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatFloat(*v, 4)
}

// FormatInstant shows t in loc, or raw when t could not be parsed.
func FormatInstant(t time.Time, raw string, loc *time.Location) string {
	if t.IsZero() {
		return raw
	}
	return util.FormatDisplay(t, loc)
}
