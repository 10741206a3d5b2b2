package models

import "time"

// Horizon bounds accepted from a custom input.
const (
	MinHorizon = 1
	MaxHorizon = 168
)

// SelectionMode tells which control produced a HorizonSelection.
type SelectionMode string

const (
	SelectionNone   SelectionMode = ""
	SelectionCustom SelectionMode = "custom"
	SelectionPreset SelectionMode = "preset"
)

// HorizonSelection is either one explicit custom horizon or the implied range
// 1..N of a preset. Exactly one mode is active.
type HorizonSelection struct {
	Mode SelectionMode `json:"mode"`
	Max  int           `json:"max"`
}

// Empty reports whether nothing was selected.
func (s HorizonSelection) Empty() bool { return s.Mode == SelectionNone || s.Max <= 0 }

// Horizons expands the selection to 1..Max, which is what the backend expects.
func (s HorizonSelection) Horizons() []int {
	if s.Empty() {
		return nil
	}
	hs := make([]int, s.Max)
	for i := range hs {
		hs[i] = i + 1
	}
	return hs
}

// ForecastResponse is the body of GET /forecast.
type ForecastResponse struct {
	Symbol           string                        `json:"symbol"`
	Timeframe        string                        `json:"timeframe"`
	GeneratedAtUTC   string                        `json:"generated_at_utc,omitempty"`
	GeneratedAtLocal string                        `json:"generated_at_local,omitempty"`
	Results          map[string]ForecastPrediction `json:"results"`
}

// ForecastPrediction is one value of the results mapping, keyed by label ("3h").
type ForecastPrediction struct {
	StepsUsed       *int    `json:"steps_used,omitempty"`
	PredStack       float64 `json:"pred_stack"`
	TargetTimeUTC   string  `json:"target_time_utc,omitempty"`
	TargetTimeLocal string  `json:"target_time_local"`
}

// ForecastEntry is one horizon of a result set. Entries are never mutated,
// only reordered.
type ForecastEntry struct {
	Label      string    `json:"label"`
	Horizon    int       `json:"horizon"` // -1 when the label has no digits
	TargetTime time.Time `json:"target_time"`
	TargetRaw  string    `json:"target_raw,omitempty"`
	Value      float64   `json:"value"`
	StepsUsed  *int      `json:"steps_used,omitempty"`
}

// ForecastResultSet is the ordered entries of one request.
type ForecastResultSet struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Entries   []ForecastEntry `json:"entries"`
}

// Values returns the predicted values in entry order.
func (rs ForecastResultSet) Values() []float64 {
	vs := make([]float64, len(rs.Entries))
	for i, e := range rs.Entries {
		vs[i] = e.Value
	}
	return vs
}

// ForecastSummary describes the predicted values of a result set.
type ForecastSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// ChartPoint is one x label / y value pair of a line series.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartSeries is a named line.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}
