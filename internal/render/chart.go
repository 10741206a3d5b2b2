package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// MaxAxisLabels caps how many x-axis labels are drawn.
const MaxAxisLabels = 10

var (
	ErrNoChart     = errors.New("render: slot holds no chart")
	ErrEmptySeries = errors.New("render: chart needs at least one series with values")
	ErrSeriesShape = errors.New("render: series length does not match labels")
)

// Theme is the page color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps anything but "dark" to the light theme.
func ParseTheme(s string) Theme {
	if s == string(ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

func (t Theme) echarts() string {
	if t == ThemeDark {
		return types.ThemeChalk
	}
	return types.ThemeWesteros
}

// LineSpec describes a line chart: one x label per point and one or more series.
type LineSpec struct {
	Title  string               `json:"title"`
	Labels []string             `json:"labels"`
	Series []models.ChartSeries `json:"series"`
}

func (s LineSpec) validate() error {
	if len(s.Series) == 0 || len(s.Labels) == 0 {
		return ErrEmptySeries
	}
	for _, ser := range s.Series {
		if len(ser.Values) != len(s.Labels) {
			return fmt.Errorf("%w: %q has %d values for %d labels", ErrSeriesShape, ser.Name, len(ser.Values), len(s.Labels))
		}
	}
	return nil
}

type chartInstance struct {
	id   string
	spec LineSpec
	line *charts.Line
}

// ChartSlot owns at most one live chart. Render always destroys the previous
// instance before creating the next, so repeated renders never stack charts.
type ChartSlot struct {
	name    string
	metrics repository.Metrics

	mu        sync.Mutex
	theme     Theme
	live      *chartInstance
	seq       uint64
	created   uint64
	destroyed uint64
}

func NewChartSlot(name string, theme Theme, m repository.Metrics) *ChartSlot {
	return &ChartSlot{name: name, theme: theme, metrics: m}
}

func (s *ChartSlot) Name() string { return s.name }

// Render replaces the live chart with one built from spec. On error the slot
// is left empty.
func (s *ChartSlot) Render(spec LineSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyLocked()
	if err := spec.validate(); err != nil {
		return err
	}

	s.seq++
	id := fmt.Sprintf("%s-%d", s.name, s.seq)
	s.live = &chartInstance{id: id, spec: spec, line: buildLine(id, spec, s.theme)}
	s.created++
	if s.metrics != nil {
		s.metrics.ChartCreated(s.name)
	}
	return nil
}

// Destroy releases the live chart, if any. Safe to call repeatedly.
func (s *ChartSlot) Destroy() {
	s.mu.Lock()
	s.destroyLocked()
	s.mu.Unlock()
}

func (s *ChartSlot) destroyLocked() {
	if s.live == nil {
		return
	}
	s.live = nil
	s.destroyed++
	if s.metrics != nil {
		s.metrics.ChartDestroyed(s.name)
	}
}

// Live reports whether a chart is currently held.
func (s *ChartSlot) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live != nil
}

// LiveCount is the number of instances created and not yet destroyed.
func (s *ChartSlot) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.created - s.destroyed)
}

// ID returns the identifier of the live chart, or "" when empty.
func (s *ChartSlot) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return ""
	}
	return s.live.id
}

// Spec returns a copy of the live chart's spec.
func (s *ChartSlot) Spec() (LineSpec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return LineSpec{}, false
	}
	return s.live.spec, true
}

// SetTheme switches the theme and rebuilds the live chart in place.
func (s *ChartSlot) SetTheme(t Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == t {
		return
	}
	s.theme = t
	if s.live != nil {
		s.live.line = buildLine(s.live.id, s.live.spec, t)
	}
}

// WriteHTML renders the live chart as a standalone HTML document.
func (s *ChartSlot) WriteHTML(w io.Writer) error {
	var buf bytes.Buffer
	s.mu.Lock()
	if s.live == nil {
		s.mu.Unlock()
		return ErrNoChart
	}
	// Render mutates the chart's options, so it runs under the slot lock.
	err := s.live.line.Render(&buf)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

func buildLine(id string, spec LineSpec, theme Theme) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			ChartID:   id,
			PageTitle: spec.Title,
			Theme:     theme.echarts(),
			Width:     "100%",
			Height:    "360px",
		}),
		charts.WithTitleOpts(opts.Title{Title: spec.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(spec.Series) > 1)}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Interval: strconv.Itoa(labelInterval(len(spec.Labels)))},
		}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	line.SetXAxis(spec.Labels)
	for _, ser := range spec.Series {
		data := make([]opts.LineData, len(ser.Values))
		for i, v := range ser.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(ser.Name, data)
	}
	return line
}

// labelInterval is the number of labels skipped between drawn ones so that at
// most MaxAxisLabels are drawn for n points.
func labelInterval(n int) int {
	if n <= MaxAxisLabels {
		return 0
	}
	step := (n + MaxAxisLabels - 1) / MaxAxisLabels
	return step - 1
}
