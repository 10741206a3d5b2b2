package render

import (
	"bytes"
	"testing"

	"FinCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chartCounter struct {
	created, destroyed int
}

func (c *chartCounter) RecordRun(string) {}
func (c *chartCounter) RecordBackendRequest(string, string, float64) {}
func (c *chartCounter) ChartCreated(string) { c.created++ }
func (c *chartCounter) ChartDestroyed(string) { c.destroyed++ }
func (c *chartCounter) RecordCacheLookup(string, bool) {}
func (c *chartCounter) RecordError(string) {}

func spec(n int) LineSpec {
	labels := make([]string, n)
	values := make([]float64, n)
	for i := range labels {
		labels[i] = string(rune('a' + i%26))
		values[i] = 3000 + float64(i)
	}
	return LineSpec{
		Title:  "ETH/USDT forecast",
		Labels: labels,
		Series: []models.ChartSeries{{Name: "Prediction", Values: values}},
	}
}

func TestLabelInterval(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 0}, {2, 0}, {10, 0}, {11, 1}, {20, 1}, {21, 2}, {72, 7}, {168, 16}, {200, 19},
	}
	for _, tt := range tests {
		got := labelInterval(tt.n)
		assert.Equal(t, tt.want, got, "n=%d", tt.n)
		if tt.n > 0 {
			shown := (tt.n + got) / (got + 1)
			assert.LessOrEqual(t, shown, MaxAxisLabels, "n=%d", tt.n)
		}
	}
}

func TestRenderKeepsSingleLiveChart(t *testing.T) {
	m := &chartCounter{}
	slot := NewChartSlot("forecast", ThemeLight, m)

	require.NoError(t, slot.Render(spec(3)))
	first := slot.ID()
	require.NoError(t, slot.Render(spec(5)))

	assert.Equal(t, 1, slot.LiveCount())
	assert.NotEqual(t, first, slot.ID())
	assert.Equal(t, 2, m.created)
	assert.Equal(t, 1, m.destroyed)

	got, ok := slot.Spec()
	require.True(t, ok)
	assert.Len(t, got.Labels, 5)
}

func TestRenderInvalidSpecEmptiesSlot(t *testing.T) {
	slot := NewChartSlot("forecast", ThemeLight, nil)
	require.NoError(t, slot.Render(spec(3)))

	bad := spec(3)
	bad.Series[0].Values = bad.Series[0].Values[:2]
	assert.ErrorIs(t, slot.Render(bad), ErrSeriesShape)
	assert.False(t, slot.Live())
	assert.Equal(t, 0, slot.LiveCount())

	assert.ErrorIs(t, slot.Render(LineSpec{}), ErrEmptySeries)
}

func TestDestroyIsIdempotent(t *testing.T) {
	m := &chartCounter{}
	slot := NewChartSlot("history", ThemeLight, m)
	slot.Destroy()
	require.NoError(t, slot.Render(spec(2)))
	slot.Destroy()
	slot.Destroy()

	assert.False(t, slot.Live())
	assert.Equal(t, 1, m.destroyed)
	assert.ErrorIs(t, slot.WriteHTML(&bytes.Buffer{}), ErrNoChart)
}

func TestWriteHTMLUsesChartID(t *testing.T) {
	slot := NewChartSlot("forecast", ThemeDark, nil)
	require.NoError(t, slot.Render(spec(4)))

	var buf bytes.Buffer
	require.NoError(t, slot.WriteHTML(&buf))
	assert.Contains(t, buf.String(), slot.ID())
	assert.Contains(t, buf.String(), "chalk")

	slot.SetTheme(ThemeLight)
	buf.Reset()
	require.NoError(t, slot.WriteHTML(&buf))
	assert.Contains(t, buf.String(), "westeros")
	assert.Equal(t, 1, slot.LiveCount())
}

func TestTheme(t *testing.T) {
	assert.Equal(t, ThemeDark, ParseTheme("dark"))
	assert.Equal(t, ThemeLight, ParseTheme(""))
	assert.Equal(t, ThemeLight, ParseTheme("neon"))
	assert.Equal(t, ThemeDark, ThemeLight.Toggle())
	assert.Equal(t, ThemeLight, ThemeDark.Toggle())
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, spec(24)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	flat := spec(3)
	flat.Series[0].Values = []float64{5, 5, 5}
	buf.Reset()
	assert.NoError(t, WritePNG(&buf, flat))

	assert.Error(t, WritePNG(&buf, LineSpec{}))
}
