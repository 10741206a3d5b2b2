package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/render"
	"FinCast/internal/service/predictor"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/util"

	"github.com/google/uuid"
)

// ErrSuperseded marks a run that lost to a newer one before it settled.
var ErrSuperseded = errors.New("forecast run superseded by a newer request")

// Status texts shown by the forecast page.
const (
	msgChartLoaded  = "Forecast chart loaded."
	msgChartFailed  = "Failed to load forecast chart."
	msgSinglePoint  = "Chart not shown for a single-point horizon."
	msgNoChartData  = "No forecast points to chart."
	msgRunCancelled = "Forecast request was cancelled."
)

// RunEventProcessor accepts settled run events for delivery.
type RunEventProcessor interface {
	Process(ctx context.Context, e *models.RunEvent) error
}

// RunInput is everything a run needs; the pipeline never reads form state.
type RunInput struct {
	Custom    string
	Preset    int
	SessionID string
}

// RunView is the outcome of one run, ready for a page or JSON response.
type RunView struct {
	Seq         uint64                  `json:"seq"`
	State       models.RunState         `json:"state"`
	Outcome     models.Outcome          `json:"outcome"`
	Selection   models.HorizonSelection `json:"selection"`
	Symbol      string                  `json:"symbol"`
	Timeframe   string                  `json:"timeframe,omitempty"`
	Entries     []models.ForecastEntry  `json:"entries"`
	Table       render.Table            `json:"table"`
	Summary     *models.ForecastSummary `json:"summary,omitempty"`
	ChartID     string                  `json:"chart_id,omitempty"`
	Overall     models.StatusState      `json:"overall_status"`
	Chart       models.StatusState      `json:"chart_status"`
	GeneratedAt string                  `json:"generated_at,omitempty"`
	ErrorKind   string                  `json:"error_kind,omitempty"`
	Err         error                   `json:"-"`
}

// ChartShown reports whether the run left a chart in the slot.
func (v RunView) ChartShown() bool { return v.ChartID != "" }

// PipelineConfig holds the fixed parameters of a forecast pipeline.
type PipelineConfig struct {
	Symbol   string
	Presets  []int
	Location *time.Location
}

// ForecastPipeline runs horizon selection, the backend call and both renders.
// Runs are serialized by cancel-predecessor: starting a run cancels the one in
// flight, and a superseded run never touches the chart, statuses or last view.
type ForecastPipeline struct {
	backend domrepo.PredictionBackend
	chart   *render.ChartSlot
	status  *render.StatusReporter
	events  RunEventProcessor
	metrics domrepo.Metrics
	log     *applogger.Logger
	cfg     PipelineConfig
	now     func() time.Time

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	state   models.RunState
	last    RunView
	hasLast bool
}

// PipelineOption configures ForecastPipeline.
type PipelineOption func(*ForecastPipeline)

func WithRunEvents(p RunEventProcessor) PipelineOption {
	return func(fp *ForecastPipeline) { fp.events = p }
}

func WithPipelineMetrics(m domrepo.Metrics) PipelineOption {
	return func(fp *ForecastPipeline) {
		if m != nil {
			fp.metrics = m
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(fp *ForecastPipeline) {
		if l != nil {
			fp.log = l
		}
	}
}

func NewForecastPipeline(backend domrepo.PredictionBackend, chart *render.ChartSlot, status *render.StatusReporter, cfg PipelineConfig, opts ...PipelineOption) *ForecastPipeline {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	p := &ForecastPipeline{
		backend: backend,
		chart:   chart,
		status:  status,
		metrics: metrics.Nop{},
		log:     applogger.NewNop(),
		cfg:     cfg,
		now:     time.Now,
		state:   models.StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chart returns the slot this pipeline renders into.
func (p *ForecastPipeline) Chart() *render.ChartSlot { return p.chart }

// State returns the state of the most recent run.
func (p *ForecastPipeline) State() models.RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Last returns the view of the last run that settled without being superseded.
func (p *ForecastPipeline) Last() (RunView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

// Status returns the current status lines.
func (p *ForecastPipeline) Status() (overall, chart models.StatusState) {
	return p.status.Get(models.SlotOverall), p.status.Get(models.SlotChart)
}

// Run executes one forecast request end to end.
func (p *ForecastPipeline) Run(ctx context.Context, in RunInput) RunView {
	start := p.now()
	seq, runCtx := p.begin(ctx)
	defer p.finish(seq)

	view := RunView{Seq: seq, Symbol: p.cfg.Symbol, State: models.StateValidating}

	sel, err := ResolveSelection(in.Custom, in.Preset, p.cfg.Presets)
	if err != nil {
		view = p.fail(view, err, err.Error())
		return p.settle(seq, in, start, view)
	}
	view.Selection = sel

	if !p.advance(seq, models.StateRequesting, func() {
		p.status.Set(models.SlotOverall, fmt.Sprintf("Computing forecast for %d hours ahead...", sel.Max), models.StatusNeutral)
	}) {
		return p.settle(seq, in, start, superseded(view))
	}

	resp, err := p.backend.Forecast(runCtx, p.cfg.Symbol, sel.Horizons())
	if err != nil {
		if !p.current(seq) {
			return p.settle(seq, in, start, superseded(view))
		}
		if errors.Is(err, context.Canceled) {
			view = p.fail(view, err, msgRunCancelled)
			return p.settle(seq, in, start, view)
		}
		view = p.fail(view, err, "Forecast request failed: "+err.Error())
		view.Chart = models.StatusState{Text: msgChartFailed, Kind: models.StatusError}
		return p.settle(seq, in, start, view)
	}

	rs := BuildResultSet(resp)
	view.Entries = rs.Entries
	view.Timeframe = rs.Timeframe
	view.Table = render.ForecastTable(rs.Entries, p.cfg.Location)
	view.Summary = render.Summarize(rs.Values())
	view.GeneratedAt = p.generatedAt(resp)

	if !p.advance(seq, models.StateRendering, func() { p.renderChart(&view, rs) }) {
		return p.settle(seq, in, start, superseded(view))
	}
	return p.settle(seq, in, start, view)
}

// begin registers a new run, cancels its predecessor and tears down the
// previous chart along with its status line.
func (p *ForecastPipeline) begin(ctx context.Context) (uint64, context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.seq++
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = models.StateValidating
	p.chart.Destroy()
	p.status.Clear(models.SlotChart)
	return p.seq, runCtx
}

func (p *ForecastPipeline) finish(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq == seq && p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *ForecastPipeline) current(seq uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq == seq
}

// advance moves the run to state and applies fn, both only if seq is still
// the current run. fn runs under the pipeline lock.
func (p *ForecastPipeline) advance(seq uint64, state models.RunState, fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq != seq {
		return false
	}
	p.state = state
	if fn != nil {
		fn()
	}
	return true
}

func (p *ForecastPipeline) renderChart(view *RunView, rs models.ForecastResultSet) {
	view.Outcome = models.OutcomeSuccess
	switch n := len(rs.Entries); {
	case n == 0:
		view.Chart = models.StatusState{Text: msgNoChartData, Kind: models.StatusNeutral}
	case n == 1:
		view.Outcome = models.OutcomePartial
		view.Chart = models.StatusState{Text: msgSinglePoint, Kind: models.StatusNeutral}
	default:
		if err := p.chart.Render(p.chartSpec(rs)); err != nil {
			p.log.Warn("forecast chart render failed", applogger.Error(err))
			p.metrics.RecordError("chart_render")
			view.Outcome = models.OutcomePartial
			view.Chart = models.StatusState{Text: msgChartFailed, Kind: models.StatusError}
			break
		}
		view.ChartID = p.chart.ID()
		view.Chart = models.StatusState{Text: msgChartLoaded, Kind: models.StatusSuccess}
	}

	tf := rs.Timeframe
	if tf == "" {
		tf = "-"
	}
	view.Overall = models.StatusState{Text: fmt.Sprintf("Forecast complete. Timeframe: %s.", tf), Kind: models.StatusSuccess}
}

func (p *ForecastPipeline) chartSpec(rs models.ForecastResultSet) render.LineSpec {
	labels := make([]string, len(rs.Entries))
	for i, e := range rs.Entries {
		labels[i] = render.FormatInstant(e.TargetTime, e.TargetRaw, p.cfg.Location)
		if labels[i] == "" {
			labels[i] = e.Label
		}
	}
	return render.LineSpec{
		Title:  p.cfg.Symbol + " forecast",
		Labels: labels,
		Series: []models.ChartSeries{{Name: "Prediction", Values: rs.Values()}},
	}
}

func (p *ForecastPipeline) generatedAt(resp *models.ForecastResponse) string {
	t := p.now()
	if resp != nil {
		t = util.ParseTimeDefault(resp.GeneratedAtUTC, t)
	}
	return util.FormatDisplay(t, p.cfg.Location)
}

func (p *ForecastPipeline) fail(view RunView, err error, msg string) RunView {
	view.Outcome = models.OutcomeError
	view.Err = err
	view.ErrorKind = errorKind(err)
	view.Table = render.ForecastTable(nil, p.cfg.Location)
	view.Overall = models.StatusState{Text: msg, Kind: models.StatusError}
	view.Chart = models.StatusState{Kind: models.StatusNeutral}
	return view
}

func superseded(view RunView) RunView {
	view.Outcome = models.OutcomeSuperseded
	view.Err = ErrSuperseded
	view.ErrorKind = string(models.OutcomeSuperseded)
	view.ChartID = ""
	return view
}

// settle publishes a terminal view. Superseded views are returned to their
// caller only.
func (p *ForecastPipeline) settle(seq uint64, in RunInput, start time.Time, view RunView) RunView {
	view.State = models.StateSettled

	p.mu.Lock()
	if view.Outcome != models.OutcomeSuperseded && p.seq == seq {
		p.state = models.StateSettled
		p.status.Set(models.SlotOverall, view.Overall.Text, view.Overall.Kind)
		p.status.Set(models.SlotChart, view.Chart.Text, view.Chart.Kind)
		p.last = view
		p.hasLast = true
	} else if view.Outcome != models.OutcomeSuperseded {
		view = superseded(view)
	}
	p.mu.Unlock()

	elapsed := p.now().Sub(start)
	p.metrics.RecordRun(string(view.Outcome))
	fields := []applogger.Field{
		applogger.Uint64("seq", seq),
		applogger.String("outcome", string(view.Outcome)),
		applogger.Int("max_horizon", view.Selection.Max),
		applogger.Int("entries", len(view.Entries)),
		applogger.Duration("duration_ms", elapsed),
	}
	if view.Err != nil && view.Outcome == models.OutcomeError {
		p.log.Warn("forecast run failed", append(fields, applogger.Error(view.Err))...)
	} else {
		p.log.Info("forecast run settled", fields...)
	}

	p.emit(in, view, elapsed)
	return view
}

func (p *ForecastPipeline) emit(in RunInput, view RunView, elapsed time.Duration) {
	if p.events == nil {
		return
	}
	e := &models.RunEvent{
		ID:         uuid.NewString(),
		SessionID:  in.SessionID,
		Symbol:     view.Symbol,
		Mode:       view.Selection.Mode,
		MaxHorizon: view.Selection.Max,
		Outcome:    view.Outcome,
		ErrorKind:  view.ErrorKind,
		Entries:    len(view.Entries),
		DurationMS: elapsed.Milliseconds(),
		SettledAt:  p.now().UTC(),
	}
	// Delivery must not depend on the request that produced the run.
	if err := p.events.Process(context.Background(), e); err != nil {
		p.log.Debug("run event not queued", applogger.Error(err))
	}
}

func errorKind(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return string(ve.Code)
	case errors.Is(err, ErrEmptySelection):
		return "empty_selection"
	case errors.Is(err, ErrUnknownPreset):
		return "unknown_preset"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	if k := predictor.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
