package render

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var seriesColors = []drawing.Color{
	{R: 51, G: 102, B: 204, A: 255},
	{R: 220, G: 57, B: 18, A: 255},
	{R: 16, G: 150, B: 24, A: 255},
	{R: 153, G: 0, B: 153, A: 255},
	{R: 255, G: 153, B: 0, A: 255},
}

// WritePNG draws spec as a static PNG image.
func WritePNG(w io.Writer, spec LineSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}

	n := len(spec.Labels)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	step := labelInterval(n) + 1
	ticks := make([]chart.Tick, 0, MaxAxisLabels)
	for i := 0; i < n; i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: spec.Labels[i]})
	}

	series := make([]chart.Series, 0, len(spec.Series))
	lo, hi := spec.Series[0].Values[0], spec.Series[0].Values[0]
	for i, ser := range spec.Series {
		color := seriesColors[i%len(seriesColors)]
		series = append(series, chart.ContinuousSeries{
			Name: ser.Name,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
			XValues: xs,
			YValues: ser.Values,
		})
		for _, v := range ser.Values {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	// go-chart refuses a zero-height range.
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.05

	graph := chart.Chart{
		Title: spec.Title,
		TitleStyle: chart.Style{
			FontSize: 14,
		},
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Width:  900,
		Height: 400,
		XAxis: chart.XAxis{
			Ticks: ticks,
			Style: chart.Style{FontSize: 8},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return FormatFloat(f, 2)
				}
				return ""
			},
		},
		Series: series,
	}
	if len(spec.Series) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}
