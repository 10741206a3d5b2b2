package di

import (
	"fmt"

	"FinCast/internal/domain/repository"
	"FinCast/internal/handler/api"
	"FinCast/internal/handler/web"
	mid "FinCast/internal/middleware"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/service/predictor"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/usecase"
	"FinCast/pkg/cache"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache returns the response cache: memory only, or memory in front of
// Redis when Redis is enabled. Nil when caching is off.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	), nil
}

// ProvideBackend creates the prediction backend client.
func ProvideBackend(cfg *config.Config, c cache.Service, m repository.Metrics, l *applogger.Logger) repository.PredictionBackend {
	opts := []predictor.Option{
		predictor.WithMetrics(m),
		predictor.WithLogger(l.With(applogger.String("component", "predictor"))),
	}
	if c != nil {
		opts = append(opts, predictor.WithCache(c, predictor.CacheTTL{
			History: cfg.Cache.TTL.History,
			Metrics: cfg.Cache.TTL.Metrics,
			Eval:    cfg.Cache.TTL.Eval,
		}))
	}
	return predictor.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, opts...)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
// When a log topic is set, aggregated error logs are shipped through it too.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Kafka.LogTopic,
			Publisher: producer,
		})
	}
	return producer, nil
}

// ProvideEventPublisher publishes run events to Kafka, or drops them into the
// debug log when there is no producer.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NewDiscardPublisher(l)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRunEventPipeline buffers run events between the forecast pipelines
// and the publisher.
func ProvideRunEventPipeline(cfg *config.Config, pub repository.EventPublisher, m repository.Metrics, l *applogger.Logger) *mid.RunEventPipeline {
	return mid.NewRunEventPipeline(pub, m,
		mid.WithBufferSize(cfg.Kafka.BufferSize),
		mid.WithLogger(l.With(applogger.String("component", "run-events"))),
	)
}

// ProvideSessionStore creates the per-browser dashboard store.
func ProvideSessionStore(
	cfg *config.Config,
	backend repository.PredictionBackend,
	events *mid.RunEventPipeline,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SessionStore {
	factory := usecase.NewDashboardFactory(usecase.DashboardDeps{
		Backend:   backend,
		Events:    events,
		Metrics:   m,
		Log:       l,
		Symbol:    cfg.Backend.Symbol,
		Presets:   cfg.Forecast.Presets,
		EvalLimit: cfg.Backend.EvalLimit,
		Location:  cfg.DisplayLocation(),
	})
	return usecase.NewSessionStore(factory, cfg.Session.MaxSessions, cfg.Session.IdleTTL)
}

// ProvideLimiter creates the per-client forecast rate limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideClockHandler creates the header clock stream.
func ProvideClockHandler(cfg *config.Config, l *applogger.Logger) *web.ClockHandler {
	return web.NewClockHandler(l, cfg.DisplayLocation())
}

// ProvideHandlers assembles every route group.
func ProvideHandlers(
	cfg *config.Config,
	l *applogger.Logger,
	sessions *usecase.SessionStore,
	backend repository.PredictionBackend,
	limiter *ratelimit.Limiter,
	clock *web.ClockHandler,
) (xhttp.Handler, error) {
	dash, err := web.NewDashboardHandler(l, sessions, web.Config{
		Symbol:        cfg.Backend.Symbol,
		Presets:       cfg.Forecast.Presets,
		DefaultPreset: cfg.Forecast.DefaultPreset,
		Location:      cfg.DisplayLocation(),
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard handler: %w", err)
	}
	return xhttp.Handlers{
		api.NewForecastHandler(l, sessions, backend, limiter, cfg.Backend.Symbol),
		dash,
		clock,
	}, nil
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	events *mid.RunEventPipeline,
	pub repository.EventPublisher,
	sessions *usecase.SessionStore,
	limiter *ratelimit.Limiter,
	c cache.Service,
	clock *web.ClockHandler,
) *server.App {
	return server.New(cfg, l, srv,
		server.WithEvents(events, pub),
		server.WithSessions(sessions),
		server.WithLimiter(limiter),
		server.WithCache(c),
		server.WithStreams(clock),
	)
}
