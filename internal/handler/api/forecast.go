package api

import (
	"context"
	"errors"

	models "FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/handler/session"
	"FinCast/internal/service/predictor"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ForecastHandler serves the JSON API: horizon validation, forecast runs and
// cached passthroughs of the backend's read endpoints.
type ForecastHandler struct {
	logger   *xlogger.Logger
	sessions *usecase.SessionStore
	backend  domrepo.PredictionBackend
	limiter  *ratelimit.Limiter
	symbol   string
}

func NewForecastHandler(logger *xlogger.Logger, sessions *usecase.SessionStore, backend domrepo.PredictionBackend, limiter *ratelimit.Limiter, symbol string) *ForecastHandler {
	return &ForecastHandler{logger: logger, sessions: sessions, backend: backend, limiter: limiter, symbol: symbol}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/horizon/validate", h.ValidateHorizon)
	g.POST("/forecast", h.Forecast, h.rateLimit)
	g.GET("/history", h.History)
	g.GET("/model-metrics", h.ModelMetrics)
	g.GET("/eval-series", h.EvalSeries)
}

func (h *ForecastHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many forecast requests, slow down"))
		}
		return next(c)
	}
}

func (h *ForecastHandler) ValidateHorizon(c echo.Context) error {
	req := &models.ValidateHorizonRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, usecase.CheckHorizonField(req.Value, req.Paste))
}

// Forecast runs the caller's forecast pipeline. A settled error run is still
// a 200: the view carries the status the page would show.
func (h *ForecastHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	d := session.Dashboard(c, h.sessions)
	view := d.Forecast.Run(c.Request().Context(), usecase.RunInput{
		Custom:    req.Custom,
		Preset:    req.Preset,
		SessionID: d.ID,
	})
	return xhttp.SuccessResponse(c, view)
}

func (h *ForecastHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.backend.History(c.Request().Context(), h.symbol, req.Days)
	if err != nil {
		h.logger.Error("history passthrough error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, upstreamError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastHandler) ModelMetrics(c echo.Context) error {
	res, err := h.backend.ModelMetrics(c.Request().Context())
	if err != nil {
		h.logger.Error("metrics passthrough error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, upstreamError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastHandler) EvalSeries(c echo.Context) error {
	req := &models.EvalSeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.backend.EvalSeries(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("eval-series passthrough error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, upstreamError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// upstreamError maps backend failures onto HTTP errors. The failure kind and
// any backend status code travel in the error params.
func upstreamError(err error) *xhttp.AppError {
	kind := predictor.KindOf(err)
	switch kind {
	case predictor.KindTimeout:
		return xhttp.GatewayTimeoutError(err.Error()).WithError(err).WithParam("kind", string(kind))
	case predictor.KindHTTPStatus, predictor.KindUnreachable, predictor.KindInvalidResponse:
		appErr := xhttp.BadGatewayError(err.Error()).WithError(err).WithParam("kind", string(kind))
		var nerr *predictor.NetworkError
		if errors.As(err, &nerr) && nerr.StatusCode > 0 {
			appErr.WithParam("upstream_status", nerr.StatusCode)
		}
		return appErr
	}
	if errors.Is(err, context.Canceled) {
		return xhttp.NewAppError("ERR_CANCELLED", "", "request cancelled", 499).WithError(err)
	}
	return xhttp.InternalError(err.Error()).WithError(err)
}
