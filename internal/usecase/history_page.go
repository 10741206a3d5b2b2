package usecase

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/render"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// HistoryView is what the history page shows for one range.
type HistoryView struct {
	Days      int                `json:"days"`
	Symbol    string             `json:"symbol"`
	Timeframe string             `json:"timeframe,omitempty"`
	Candles   []models.Candle    `json:"candles"`
	Table     render.Table       `json:"table"`
	ChartID   string             `json:"chart_id,omitempty"`
	Status    models.StatusState `json:"status"`
	Err       error              `json:"-"`
}

// HistoryPage loads price history into a table and a close-price chart.
type HistoryPage struct {
	backend domrepo.PredictionBackend
	chart   *render.ChartSlot
	symbol  string
	loc     *time.Location
	log     *applogger.Logger

	mu  sync.Mutex
	seq uint64
}

func NewHistoryPage(backend domrepo.PredictionBackend, chart *render.ChartSlot, symbol string, loc *time.Location, log *applogger.Logger) *HistoryPage {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = applogger.NewNop()
	}
	return &HistoryPage{backend: backend, chart: chart, symbol: symbol, loc: loc, log: log}
}

func (h *HistoryPage) Chart() *render.ChartSlot { return h.chart }

// Load fetches days of history. Only the most recent Load may touch the chart.
func (h *HistoryPage) Load(ctx context.Context, days int) HistoryView {
	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	view := HistoryView{Days: days, Symbol: h.symbol}
	if !slices.Contains(models.AllowedHistoryDays, days) {
		view.Err = fmt.Errorf("days must be one of %v", models.AllowedHistoryDays)
		return h.publish(seq, h.failed(view, view.Err))
	}

	resp, err := h.backend.History(ctx, h.symbol, days)
	if err != nil {
		h.log.Warn("history load failed", applogger.Int("days", days), applogger.Error(err))
		return h.publish(seq, h.failed(view, err))
	}

	if resp.Symbol != "" {
		view.Symbol = resp.Symbol
	}
	view.Timeframe = resp.Timeframe
	view.Candles = ToCandles(resp.Data)
	view.Table = render.HistoryTable(view.Candles, h.loc)

	tf := view.Timeframe
	if tf == "" {
		tf = "-"
	}
	view.Status = models.StatusState{
		Text: fmt.Sprintf("Showing %s for the last %d days (interval %s).", view.Symbol, days, tf),
		Kind: models.StatusSuccess,
	}
	return h.publish(seq, view)
}

func (h *HistoryPage) failed(view HistoryView, err error) HistoryView {
	view.Err = err
	view.Table = render.HistoryTable(nil, h.loc)
	view.Status = models.StatusState{Text: "Failed to load history: " + err.Error(), Kind: models.StatusError}
	return view
}

// publish replaces the chart with view's close series if seq is still current.
func (h *HistoryPage) publish(seq uint64, view HistoryView) HistoryView {
	h.mu.Lock()
	defer h.mu.Unlock()
	if seq != h.seq {
		return view
	}
	if len(view.Candles) == 0 {
		h.chart.Destroy()
		return view
	}

	labels := make([]string, len(view.Candles))
	closes := make([]float64, len(view.Candles))
	for i, c := range view.Candles {
		labels[i] = render.FormatInstant(c.Time, c.Raw, h.loc)
		closes[i] = c.Close
	}
	err := h.chart.Render(render.LineSpec{
		Title:  view.Symbol + " close",
		Labels: labels,
		Series: []models.ChartSeries{{Name: "Close", Values: closes}},
	})
	if err != nil {
		h.log.Warn("history chart render failed", applogger.Error(err))
		return view
	}
	view.ChartID = h.chart.ID()
	return view
}

// ToCandles resolves wire timestamps. Unparseable ones keep their raw text.
func ToCandles(rows []models.CandleWire) []models.Candle {
	out := make([]models.Candle, len(rows))
	for i, r := range rows {
		c := models.Candle{Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
		if t, ok := util.ParseTime(r.Timestamp); ok {
			c.Time = t
		} else {
			c.Raw = r.Timestamp
		}
		out[i] = c
	}
	return out
}
