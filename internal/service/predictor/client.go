package predictor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/util"
)

// Endpoint names, used as metric labels and cache key prefixes.
const (
	EndpointForecast = "forecast"
	EndpointHistory  = "history"
	EndpointMetrics  = "metrics"
	EndpointEval     = "eval-series"
)

// CacheTTL sets how long each cacheable endpoint is kept. Zero disables caching for it.
type CacheTTL struct {
	History time.Duration
	Metrics time.Duration
	Eval    time.Duration
}

// Client talks to the prediction backend.
type Client struct {
	http    *xhttp.Client
	baseURL string
	timeout time.Duration
	cache   cache.Service
	ttl     CacheTTL
	metrics domrepo.Metrics
	log     *applogger.Logger
}

var _ domrepo.PredictionBackend = (*Client)(nil)

// Option configures Client.
type Option func(*Client)

// WithCache enables response caching for history, metrics and eval-series.
func WithCache(c cache.Service, ttl CacheTTL) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.ttl = ttl
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(cl *Client) {
		if m != nil {
			cl.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// New creates a backend client. Every call is bounded by timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		metrics: metrics.Nop{},
		log:     applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// The context deadline does the bounding; the client timeout is a backstop.
	c.http = xhttp.NewClient(xhttp.WithTimeout(timeout + 5*time.Second))
	return c
}

// Forecast requests predictions for the given horizons. Never cached: the
// backend stamps each forecast with the time of the request.
func (c *Client) Forecast(ctx context.Context, symbol string, horizons []int) (*models.ForecastResponse, error) {
	var out models.ForecastResponse
	err := c.get(ctx, EndpointForecast, "/forecast", map[string][]string{
		"symbol":   {symbol},
		"horizons": {util.JoinInts(horizons)},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the OHLCV candles of the last days days.
func (c *Client) History(ctx context.Context, symbol string, days int) (*models.HistoryResponse, error) {
	key := cache.GenerateKeyWithParams(EndpointHistory, symbol, days)
	return cached(ctx, c, EndpointHistory, key, c.ttl.History, func(ctx context.Context) (*models.HistoryResponse, error) {
		var out models.HistoryResponse
		err := c.get(ctx, EndpointHistory, "/history", map[string][]string{
			"symbol": {symbol},
			"days":   {strconv.Itoa(days)},
		}, &out)
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// ModelMetrics returns evaluation metrics keyed by model name.
func (c *Client) ModelMetrics(ctx context.Context) (map[string]models.ModelMetrics, error) {
	return cached(ctx, c, EndpointMetrics, EndpointMetrics, c.ttl.Metrics, func(ctx context.Context) (map[string]models.ModelMetrics, error) {
		out := map[string]models.ModelMetrics{}
		if err := c.get(ctx, EndpointMetrics, "/metrics", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// EvalSeries returns the last limit points of actual vs predicted values.
func (c *Client) EvalSeries(ctx context.Context, limit int) (*models.EvalSeriesResponse, error) {
	key := cache.GenerateKeyWithParams(EndpointEval, limit)
	return cached(ctx, c, EndpointEval, key, c.ttl.Eval, func(ctx context.Context) (*models.EvalSeriesResponse, error) {
		var out models.EvalSeriesResponse
		err := c.get(ctx, EndpointEval, "/eval-series", map[string][]string{
			"limit": {strconv.Itoa(limit)},
		}, &out)
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
}

func cached[T any](ctx context.Context, c *Client, endpoint, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c.cache == nil || ttl <= 0 {
		return load(ctx)
	}
	v, hit, err := cache.GetOrLoad(ctx, c.cache, key, ttl, load)
	if err != nil {
		return v, err
	}
	c.metrics.RecordCacheLookup(endpoint, hit)
	if hit {
		c.log.Debug("predictor cache hit", applogger.String("key", key))
	}
	return v, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query map[string][]string, dest interface{}) error {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err := classify(endpoint, c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: query,
	}, dest))

	elapsed := time.Since(start)
	c.metrics.RecordBackendRequest(endpoint, resultLabel(err), elapsed.Seconds())
	if err != nil {
		if k := KindOf(err); k != "" {
			c.metrics.RecordError("backend_" + string(k))
			c.log.Warn("predictor request failed",
				applogger.String("endpoint", endpoint),
				applogger.String("kind", string(k)),
				applogger.Duration("duration_ms", elapsed),
				applogger.Error(err),
			)
		}
		return err
	}
	c.log.Debug("predictor request",
		applogger.String("endpoint", endpoint),
		applogger.Duration("duration_ms", elapsed),
	)
	return nil
}
