package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinCast/internal/domain/repository"
	mid "FinCast/internal/middleware"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/usecase"
	"FinCast/pkg/cache"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
)

// pruneInterval is how often idle rate limit buckets are dropped.
const pruneInterval = time.Minute

// StreamCloser ends long-lived connections the HTTP server no longer tracks,
// such as upgraded websockets.
type StreamCloser interface {
	Close(ctx context.Context) error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server

	events    *mid.RunEventPipeline
	publisher repository.EventPublisher
	sessions  *usecase.SessionStore
	limiter   *ratelimit.Limiter
	cache     cache.Service
	streams   []StreamCloser
}

// Option attaches an optional component to App.
type Option func(*App)

// WithEvents sets the run event pipeline and the publisher behind it.
func WithEvents(p *mid.RunEventPipeline, pub repository.EventPublisher) Option {
	return func(a *App) {
		a.events = p
		a.publisher = pub
	}
}

func WithSessions(s *usecase.SessionStore) Option {
	return func(a *App) { a.sessions = s }
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(a *App) { a.limiter = l }
}

func WithCache(c cache.Service) Option {
	return func(a *App) { a.cache = c }
}

// WithStreams registers stream handlers to close after the HTTP server stops.
func WithStreams(s ...StreamCloser) Option {
	return func(a *App) { a.streams = append(a.streams, s...) }
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, srv *xhttp.Server, opts ...Option) *App {
	if log == nil {
		log = applogger.NewNop()
	}
	a := &App{cfg: cfg, log: log, httpServer: srv}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done, then shuts
// everything down.
func (a *App) RunContext(ctx context.Context) error {
	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.events != nil {
		a.events.Start(bg)
		a.log.Info("run event pipeline started")
	}
	if a.limiter != nil {
		go a.pruneLoop(bg)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("fincast started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.BaseURL),
		applogger.String("symbol", a.cfg.Backend.Symbol),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
		applogger.Bool("redis", a.cfg.Cache.Redis.Enabled),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.limiter.Prune()
		}
	}
}

// shutdown stops intake first, then drains what is in flight.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if len(a.streams) > 0 {
		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		for _, s := range a.streams {
			if err := s.Close(ctx); err != nil {
				a.log.Warn("stream close error", applogger.Error(err))
			}
		}
		cancel()
	}

	// Closing sessions releases their charts.
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			a.log.Warn("session store close error", applogger.Error(err))
		}
	}

	if a.events != nil {
		a.events.Stop()
	}
	// the error log collector ships through the same producer
	a.log.RemoveCollector()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("event publisher close error", applogger.Error(err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
