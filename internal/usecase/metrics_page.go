package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/render"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// MetricsView is what the metrics page shows. The table and the evaluation
// chart fail independently.
type MetricsView struct {
	Models      map[string]models.ModelMetrics `json:"models"`
	Table       render.Table                   `json:"table"`
	TableStatus models.StatusState             `json:"table_status"`
	EvalPoints  int                            `json:"eval_points"`
	ChartID     string                         `json:"chart_id,omitempty"`
	ChartStatus models.StatusState             `json:"chart_status"`
}

// MetricsPage loads model metrics and the evaluation series.
type MetricsPage struct {
	backend domrepo.PredictionBackend
	chart   *render.ChartSlot
	limit   int
	loc     *time.Location
	log     *applogger.Logger

	mu  sync.Mutex
	seq uint64
}

func NewMetricsPage(backend domrepo.PredictionBackend, chart *render.ChartSlot, evalLimit int, loc *time.Location, log *applogger.Logger) *MetricsPage {
	if evalLimit <= 0 {
		evalLimit = 200
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = applogger.NewNop()
	}
	return &MetricsPage{backend: backend, chart: chart, limit: evalLimit, loc: loc, log: log}
}

func (m *MetricsPage) Chart() *render.ChartSlot { return m.chart }

// Load fetches metrics and the evaluation series concurrently.
func (m *MetricsPage) Load(ctx context.Context) MetricsView {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	var (
		wg      sync.WaitGroup
		ms      map[string]models.ModelMetrics
		msErr   error
		eval    *models.EvalSeriesResponse
		evalErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ms, msErr = m.backend.ModelMetrics(ctx)
	}()
	go func() {
		defer wg.Done()
		eval, evalErr = m.backend.EvalSeries(ctx, m.limit)
	}()
	wg.Wait()

	view := MetricsView{}
	if msErr != nil {
		m.log.Warn("model metrics load failed", applogger.Error(msErr))
		view.Table = render.MetricsTable(nil)
		view.TableStatus = models.StatusState{Text: "Failed to load metrics: " + msErr.Error(), Kind: models.StatusError}
	} else {
		view.Models = ms
		view.Table = render.MetricsTable(ms)
		view.TableStatus = models.StatusState{Text: fmt.Sprintf("Metrics for %d models.", len(ms)), Kind: models.StatusSuccess}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq {
		return view
	}

	switch {
	case evalErr != nil:
		m.log.Warn("eval series load failed", applogger.Error(evalErr))
		m.chart.Destroy()
		view.ChartStatus = models.StatusState{Text: "Failed to load evaluation series: " + evalErr.Error(), Kind: models.StatusError}
	case len(eval.Data) == 0:
		m.chart.Destroy()
		view.ChartStatus = models.StatusState{Text: "No evaluation data.", Kind: models.StatusNeutral}
	default:
		view.EvalPoints = len(eval.Data)
		if err := m.chart.Render(EvalChartSpec(eval.Data, m.loc)); err != nil {
			m.log.Warn("eval chart render failed", applogger.Error(err))
			view.ChartStatus = models.StatusState{Text: "Failed to load evaluation chart.", Kind: models.StatusError}
			break
		}
		view.ChartID = m.chart.ID()
		view.ChartStatus = models.StatusState{Text: fmt.Sprintf("Loaded %d evaluation points.", len(eval.Data)), Kind: models.StatusSuccess}
	}
	return view
}

// EvalChartSpec plots actual values against the stacking, LGBM and TCN predictions.
func EvalChartSpec(points []models.EvalPoint, loc *time.Location) render.LineSpec {
	n := len(points)
	labels := make([]string, n)
	actual := make([]float64, n)
	stack := make([]float64, n)
	lgbm := make([]float64, n)
	tcn := make([]float64, n)
	for i, p := range points {
		labels[i] = util.FormatTimestamp(p.Timestamp, loc)
		actual[i] = p.YTrue
		stack[i] = p.YStack
		lgbm[i] = p.YLGBM
		tcn[i] = p.YTCN
	}
	return render.LineSpec{
		Title:  "Actual vs predicted",
		Labels: labels,
		Series: []models.ChartSeries{
			{Name: "Actual", Values: actual},
			{Name: "Stacking", Values: stack},
			{Name: "LGBM", Values: lgbm},
			{Name: "TCN", Values: tcn},
		},
	}
}
