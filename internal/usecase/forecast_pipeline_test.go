package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/render"
	"FinCast/internal/service/predictor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("UTC+7", 7*3600)

func newPipeline(b *fakeBackend, opts ...PipelineOption) *ForecastPipeline {
	return NewForecastPipeline(
		b,
		render.NewChartSlot(SlotForecast, render.ThemeLight, nil),
		render.NewStatusReporter(),
		PipelineConfig{Symbol: "ETH/USDT", Presets: []int{1, 10, 24, 48, 72}, Location: wib},
		opts...,
	)
}

func TestRunPresetSendsContiguousRange(t *testing.T) {
	b := &fakeBackend{}
	p := newPipeline(b)
	p.cfg.Presets = []int{3, 24}

	view := p.Run(context.Background(), RunInput{Preset: 3})
	require.Equal(t, models.OutcomeSuccess, view.Outcome)
	assert.Equal(t, [][]int{{1, 2, 3}}, b.calls())
	assert.Equal(t, models.SelectionPreset, view.Selection.Mode)
}

func TestRunCustomOverridesPreset(t *testing.T) {
	b := &fakeBackend{}
	p := newPipeline(b)

	view := p.Run(context.Background(), RunInput{Custom: "5", Preset: 24})
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, b.calls())
	assert.Equal(t, models.SelectionCustom, view.Selection.Mode)
	assert.Len(t, view.Entries, 5)
}

func TestRunSuccess(t *testing.T) {
	b := &fakeBackend{}
	p := newPipeline(b)

	view := p.Run(context.Background(), RunInput{Preset: 24})

	assert.Equal(t, models.StateSettled, view.State)
	assert.Equal(t, models.OutcomeSuccess, view.Outcome)
	require.Len(t, view.Table.Rows, 24)
	assert.Equal(t, "1h", view.Table.Rows[0].Cells[0])
	assert.Equal(t, "24h", view.Table.Rows[23].Cells[0])
	assert.Equal(t, "5/1/2025, 10.00.00", view.Table.Rows[0].Cells[1])
	assert.Equal(t, "3001.0000", view.Table.Rows[0].Cells[2])
	assert.Equal(t, models.StatusState{Text: "Forecast complete. Timeframe: 1h.", Kind: models.StatusSuccess}, view.Overall)
	assert.Equal(t, models.StatusState{Text: "Forecast chart loaded.", Kind: models.StatusSuccess}, view.Chart)
	assert.True(t, view.ChartShown())
	assert.True(t, p.Chart().Live())
	require.NotNil(t, view.Summary)
	assert.Equal(t, 3001.0, view.Summary.Min)
	assert.Equal(t, 3024.0, view.Summary.Max)
	assert.NotEmpty(t, view.GeneratedAt)

	overall, chart := p.Status()
	assert.Equal(t, view.Overall, overall)
	assert.Equal(t, view.Chart, chart)
	assert.Equal(t, models.StateSettled, p.State())
}

func TestRunEmptySelectionMakesNoCall(t *testing.T) {
	b := &fakeBackend{}
	p := newPipeline(b)

	view := p.Run(context.Background(), RunInput{})

	assert.Empty(t, b.calls())
	assert.Equal(t, models.OutcomeError, view.Outcome)
	assert.ErrorIs(t, view.Err, ErrEmptySelection)
	assert.Equal(t, models.StatusState{Text: "select at least one horizon", Kind: models.StatusError}, view.Overall)
	assert.Equal(t, render.NoDataText, view.Table.Placeholder)
	assert.False(t, p.Chart().Live())
}

func TestRunInvalidCustomMakesNoCall(t *testing.T) {
	b := &fakeBackend{}
	p := newPipeline(b)

	view := p.Run(context.Background(), RunInput{Custom: "12a", Preset: 24})
	assert.Empty(t, b.calls())
	assert.Equal(t, models.OutcomeError, view.Outcome)
	assert.Equal(t, string(NotNumeric), view.ErrorKind)
}

func TestRunSingleEntrySuppressesChart(t *testing.T) {
	b := &fakeBackend{}
	p := newPipeline(b)

	view := p.Run(context.Background(), RunInput{Preset: 1})

	assert.Equal(t, models.OutcomePartial, view.Outcome)
	assert.Len(t, view.Table.Rows, 1)
	assert.False(t, view.ChartShown())
	assert.False(t, p.Chart().Live())
	assert.Equal(t, models.StatusSuccess, view.Overall.Kind)
	assert.Equal(t, models.StatusState{Text: "Chart not shown for a single-point horizon.", Kind: models.StatusNeutral}, view.Chart)
}

func TestRunEmptyBackendResultIsSuccess(t *testing.T) {
	b := &fakeBackend{forecast: func(context.Context, []int) (*models.ForecastResponse, error) {
		return &models.ForecastResponse{Timeframe: "1h"}, nil
	}}
	p := newPipeline(b)

	view := p.Run(context.Background(), RunInput{Preset: 24})

	assert.Equal(t, models.OutcomeSuccess, view.Outcome)
	assert.Empty(t, view.Table.Rows)
	assert.Equal(t, render.NoDataText, view.Table.Placeholder)
	assert.Nil(t, view.Summary)
	assert.Equal(t, models.StatusNeutral, view.Chart.Kind)
	assert.False(t, p.Chart().Live())
}

func TestRunBackendErrorShowsStatusAndBody(t *testing.T) {
	b := &fakeBackend{forecast: func(context.Context, []int) (*models.ForecastResponse, error) {
		return nil, &predictor.NetworkError{Kind: predictor.KindHTTPStatus, StatusCode: 503, Body: "model warming up"}
	}}
	p := newPipeline(b)

	view := p.Run(context.Background(), RunInput{Preset: 10})

	assert.Equal(t, models.OutcomeError, view.Outcome)
	assert.Equal(t, string(predictor.KindHTTPStatus), view.ErrorKind)
	assert.Equal(t, models.StatusError, view.Overall.Kind)
	assert.True(t, strings.HasPrefix(view.Overall.Text, "Forecast request failed: "))
	assert.Contains(t, view.Overall.Text, "HTTP 503")
	assert.Contains(t, view.Overall.Text, "model warming up")
	assert.Equal(t, models.StatusState{Text: "Failed to load forecast chart.", Kind: models.StatusError}, view.Chart)
	assert.False(t, p.Chart().Live())

	_, chart := p.Status()
	assert.Equal(t, view.Chart, chart)
}

func TestValidationFailureLeavesChartStatusNeutral(t *testing.T) {
	b := &fakeBackend{forecast: func(context.Context, []int) (*models.ForecastResponse, error) {
		return nil, &predictor.NetworkError{Kind: predictor.KindUnreachable}
	}}
	p := newPipeline(b)

	failed := p.Run(context.Background(), RunInput{Preset: 10})
	require.Equal(t, models.StatusError, failed.Chart.Kind)

	view := p.Run(context.Background(), RunInput{Custom: "0"})
	assert.Equal(t, models.OutcomeError, view.Outcome)
	assert.Equal(t, models.StatusState{Kind: models.StatusNeutral}, view.Chart)
	_, chart := p.Status()
	assert.Equal(t, models.StatusState{Kind: models.StatusNeutral}, chart)
}

func TestSequentialRunsKeepOneChart(t *testing.T) {
	m := newCountingMetrics()
	b := &fakeBackend{}
	p := NewForecastPipeline(
		b,
		render.NewChartSlot(SlotForecast, render.ThemeLight, m),
		render.NewStatusReporter(),
		PipelineConfig{Symbol: "ETH/USDT", Presets: []int{10, 24}, Location: wib},
		WithPipelineMetrics(m),
	)

	first := p.Run(context.Background(), RunInput{Preset: 24})
	second := p.Run(context.Background(), RunInput{Preset: 10})

	assert.NotEqual(t, first.ChartID, second.ChartID)
	assert.Equal(t, second.ChartID, p.Chart().ID())
	assert.Equal(t, 1, p.Chart().LiveCount())
	assert.Equal(t, 2, m.created)
	assert.Equal(t, 1, m.destroyed)
	assert.Equal(t, 2, m.runs[string(models.OutcomeSuccess)])
}

func TestFailedRunTearsDownPreviousChart(t *testing.T) {
	fail := false
	b := &fakeBackend{forecast: func(_ context.Context, hs []int) (*models.ForecastResponse, error) {
		if fail {
			return nil, &predictor.NetworkError{Kind: predictor.KindUnreachable}
		}
		return answer(len(hs)), nil
	}}
	p := newPipeline(b)

	require.True(t, p.Run(context.Background(), RunInput{Preset: 10}).ChartShown())
	fail = true
	p.Run(context.Background(), RunInput{Preset: 10})
	assert.False(t, p.Chart().Live())
}

func TestNewerRunSupersedesInFlightRun(t *testing.T) {
	started := make(chan struct{})
	b := &fakeBackend{forecast: func(ctx context.Context, hs []int) (*models.ForecastResponse, error) {
		if len(hs) == 48 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return answer(len(hs)), nil
	}}
	events := &recordingEvents{}
	p := newPipeline(b, WithRunEvents(events))

	slow := make(chan RunView, 1)
	go func() { slow <- p.Run(context.Background(), RunInput{Preset: 48}) }()
	<-started

	fresh := p.Run(context.Background(), RunInput{Preset: 10})
	stale := <-slow

	assert.Equal(t, models.OutcomeSuperseded, stale.Outcome)
	assert.ErrorIs(t, stale.Err, ErrSuperseded)
	assert.False(t, stale.ChartShown())

	assert.Equal(t, models.OutcomeSuccess, fresh.Outcome)
	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, fresh.Seq, last.Seq)
	assert.Equal(t, fresh.ChartID, p.Chart().ID())
	assert.Equal(t, 1, p.Chart().LiveCount())

	overall, _ := p.Status()
	assert.Equal(t, fresh.Overall, overall)
	assert.ElementsMatch(t, []models.Outcome{models.OutcomeSuccess, models.OutcomeSuperseded}, events.outcomes())
}

func TestCancelledRequestSettlesAsError(t *testing.T) {
	b := &fakeBackend{forecast: func(ctx context.Context, _ []int) (*models.ForecastResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	p := newPipeline(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	view := p.Run(ctx, RunInput{Preset: 10})

	assert.Equal(t, models.OutcomeError, view.Outcome)
	assert.Equal(t, "cancelled", view.ErrorKind)
	assert.Equal(t, "Forecast request was cancelled.", view.Overall.Text)
	assert.Equal(t, models.StatusNeutral, view.Chart.Kind)
}

func TestRunEmitsEvent(t *testing.T) {
	events := &recordingEvents{}
	p := newPipeline(&fakeBackend{}, WithRunEvents(events))

	p.Run(context.Background(), RunInput{Custom: "3", SessionID: "s-1"})

	require.Len(t, events.events, 1)
	e := events.events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "s-1", e.SessionID)
	assert.Equal(t, "ETH/USDT", e.Symbol)
	assert.Equal(t, models.SelectionCustom, e.Mode)
	assert.Equal(t, 3, e.MaxHorizon)
	assert.Equal(t, 3, e.Entries)
	assert.Equal(t, models.OutcomeSuccess, e.Outcome)
}
