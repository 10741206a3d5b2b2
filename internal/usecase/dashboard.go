package usecase

import (
	"context"
	"sync"
	"time"

	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/render"
	"FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"

	"github.com/google/uuid"
)

// Chart slot names; they appear in chart URLs and metric labels.
const (
	SlotForecast = "forecast"
	SlotHistory  = "history"
	SlotEval     = "eval"
)

// Dashboard is one browser session: its page controllers and the chart slots
// they own.
type Dashboard struct {
	ID       string
	Forecast *ForecastPipeline
	History  *HistoryPage
	Metrics  *MetricsPage

	mu    sync.Mutex
	theme render.Theme
}

// Theme returns the session's color scheme.
func (d *Dashboard) Theme() render.Theme {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.theme
}

// SetTheme switches the color scheme of every chart of the session.
func (d *Dashboard) SetTheme(t render.Theme) {
	d.mu.Lock()
	d.theme = t
	d.mu.Unlock()
	for _, s := range d.Slots() {
		s.SetTheme(t)
	}
}

// Slot returns the chart slot called name.
func (d *Dashboard) Slot(name string) (*render.ChartSlot, bool) {
	switch name {
	case SlotForecast:
		return d.Forecast.Chart(), true
	case SlotHistory:
		return d.History.Chart(), true
	case SlotEval:
		return d.Metrics.Chart(), true
	}
	return nil, false
}

func (d *Dashboard) Slots() []*render.ChartSlot {
	return []*render.ChartSlot{d.Forecast.Chart(), d.History.Chart(), d.Metrics.Chart()}
}

// Close releases every chart of the session.
func (d *Dashboard) Close() {
	for _, s := range d.Slots() {
		s.Destroy()
	}
}

// DashboardDeps are shared by all sessions.
type DashboardDeps struct {
	Backend   domrepo.PredictionBackend
	Events    RunEventProcessor
	Metrics   domrepo.Metrics
	Log       *applogger.Logger
	Symbol    string
	Presets   []int
	EvalLimit int
	Location  *time.Location
}

// DashboardFactory builds the dashboard of a new session.
type DashboardFactory func(id string, theme render.Theme) *Dashboard

func NewDashboardFactory(deps DashboardDeps) DashboardFactory {
	return func(id string, theme render.Theme) *Dashboard {
		log := deps.Log
		if log == nil {
			log = applogger.NewNop()
		}
		log = log.With(applogger.String("session", id))

		opts := []PipelineOption{WithPipelineMetrics(deps.Metrics), WithPipelineLogger(log)}
		if deps.Events != nil {
			opts = append(opts, WithRunEvents(deps.Events))
		}
		return &Dashboard{
			ID:    id,
			theme: theme,
			Forecast: NewForecastPipeline(
				deps.Backend,
				render.NewChartSlot(SlotForecast, theme, deps.Metrics),
				render.NewStatusReporter(),
				PipelineConfig{Symbol: deps.Symbol, Presets: deps.Presets, Location: deps.Location},
				opts...,
			),
			History: NewHistoryPage(deps.Backend, render.NewChartSlot(SlotHistory, theme, deps.Metrics), deps.Symbol, deps.Location, log),
			Metrics: NewMetricsPage(deps.Backend, render.NewChartSlot(SlotEval, theme, deps.Metrics), deps.EvalLimit, deps.Location, log),
		}
	}
}

// SessionStore keeps dashboards in an LRU with an idle timeout. Evicted
// dashboards have their charts released.
type SessionStore struct {
	store   *cache.MemoryCache
	idle    time.Duration
	factory DashboardFactory
}

func NewSessionStore(factory DashboardFactory, maxSessions int, idleTTL time.Duration) *SessionStore {
	s := &SessionStore{idle: idleTTL, factory: factory}
	s.store = cache.NewMemoryCache(
		cache.WithMemoryMaxSize(maxSessions),
		cache.WithMemoryDefaultTTL(idleTTL),
		cache.WithMemoryCleanup(time.Minute),
		cache.WithMemoryOnEvict(func(_ string, v interface{}) {
			if d, ok := v.(*Dashboard); ok {
				d.Close()
			}
		}),
	)
	return s
}

// Get returns the live dashboard of id and renews its idle timeout.
func (s *SessionStore) Get(id string) (*Dashboard, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := s.store.Load(id)
	if !ok {
		return nil, false
	}
	d, ok := v.(*Dashboard)
	return d, ok
}

// Acquire returns the dashboard of id, creating a fresh session when id is
// unknown or expired. created tells the caller to set the session cookie.
func (s *SessionStore) Acquire(id string, theme render.Theme) (d *Dashboard, created bool) {
	if d, ok := s.Get(id); ok {
		return d, false
	}
	d = s.factory(uuid.NewString(), theme)
	s.store.Store(d.ID, d, s.idle)
	return d, true
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int { return s.store.Len() }

// Close drops every session and stops the janitor.
func (s *SessionStore) Close() error {
	_ = s.store.DeleteByPattern(context.Background(), "*")
	return s.store.Close()
}
