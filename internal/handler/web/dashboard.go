package web

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/handler/session"
	"FinCast/internal/render"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"
	"FinCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// Config holds the page settings.
type Config struct {
	Symbol        string
	Presets       []int
	DefaultPreset int
	Location      *time.Location
}

// DashboardHandler serves the HTML pages and the chart documents they embed.
type DashboardHandler struct {
	logger   *xlogger.Logger
	sessions *usecase.SessionStore
	cfg      Config
	pages    *renderer
	now      func() time.Time
}

func NewDashboardHandler(logger *xlogger.Logger, sessions *usecase.SessionStore, cfg Config) (*DashboardHandler, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &DashboardHandler{logger: logger, sessions: sessions, cfg: cfg, pages: r, now: time.Now}, nil
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/dashboard/home")
	})
	e.GET("/health", h.Health)
	e.GET("/static/*", staticHandler())

	g := e.Group("/dashboard")
	g.GET("/home", h.Home)
	g.GET("/metrics", h.Metrics)
	g.GET("/forecast", h.ForecastPage)
	g.POST("/forecast", h.RunForecast)
	g.GET("/chart/forecast.png", h.ForecastPNG)
	g.GET("/chart/:slot", h.Chart)
	g.POST("/theme", h.ToggleTheme)
}

type chartRef struct {
	Slot string
	ID   string
}

type forecastData struct {
	Presets     []int
	Preset      int
	Check       usecase.HorizonCheck
	View        *usecase.RunView
	Overall     models.StatusState
	ChartStatus models.StatusState
}

type pageData struct {
	Title     string
	Active    string
	Path      string
	Theme     render.Theme
	ClockDate string
	ClockTime string
	Chart     *chartRef
	Days      []int
	History   *usecase.HistoryView
	Metrics   *usecase.MetricsView
	Forecast  *forecastData
}

func (h *DashboardHandler) page(c echo.Context, d *usecase.Dashboard, title, active string) pageData {
	now := h.now().In(h.cfg.Location)
	return pageData{
		Title:     title,
		Active:    active,
		Path:      c.Request().URL.RequestURI(),
		Theme:     d.Theme(),
		ClockDate: now.Format(util.ClockDate),
		ClockTime: now.Format(util.ClockTime),
	}
}

func chart(slot, id string) *chartRef {
	if id == "" {
		return nil
	}
	return &chartRef{Slot: slot, ID: id}
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}

// Home is the price history page.
func (h *DashboardHandler) Home(c echo.Context) error {
	d := session.Dashboard(c, h.sessions)
	days := util.ParseIntDefault(c.QueryParam("days"), models.AllowedHistoryDays[0])

	view := d.History.Load(c.Request().Context(), days)
	data := h.page(c, d, h.cfg.Symbol+" price history", "home")
	data.Days = models.AllowedHistoryDays
	data.History = &view
	data.Chart = chart(usecase.SlotHistory, view.ChartID)

	code := http.StatusOK
	if !slices.Contains(models.AllowedHistoryDays, days) {
		code = http.StatusBadRequest
	}
	return h.pages.render(c, code, "home", data)
}

func (h *DashboardHandler) Metrics(c echo.Context) error {
	d := session.Dashboard(c, h.sessions)

	view := d.Metrics.Load(c.Request().Context())
	data := h.page(c, d, "Model evaluation", "metrics")
	data.Metrics = &view
	data.Chart = chart(usecase.SlotEval, view.ChartID)
	return h.pages.render(c, http.StatusOK, "metrics", data)
}

// ForecastPage shows the form and the last settled run of the session.
func (h *DashboardHandler) ForecastPage(c echo.Context) error {
	d := session.Dashboard(c, h.sessions)

	fd := &forecastData{
		Presets: h.cfg.Presets,
		Preset:  h.cfg.DefaultPreset,
		Check:   usecase.CheckHorizonField("", false),
	}
	if last, ok := d.Forecast.Last(); ok {
		fd.View = &last
		if last.Selection.Mode == models.SelectionPreset {
			fd.Preset = last.Selection.Max
		}
	}
	fd.Overall, fd.ChartStatus = d.Forecast.Status()

	data := h.page(c, d, h.cfg.Symbol+" forecast", "forecast")
	data.Forecast = fd
	data.Chart = chart(usecase.SlotForecast, d.Forecast.Chart().ID())
	return h.pages.render(c, http.StatusOK, "forecast", data)
}

// RunForecast runs the pipeline from the submitted form and renders its view.
func (h *DashboardHandler) RunForecast(c echo.Context) error {
	d := session.Dashboard(c, h.sessions)

	custom := c.FormValue("custom")
	preset := util.ParseIntDefault(c.FormValue("preset"), 0)

	view := d.Forecast.Run(c.Request().Context(), usecase.RunInput{
		Custom:    custom,
		Preset:    preset,
		SessionID: d.ID,
	})

	fd := &forecastData{
		Presets:     h.cfg.Presets,
		Preset:      preset,
		Check:       usecase.CheckHorizonField(custom, false),
		View:        &view,
		Overall:     view.Overall,
		ChartStatus: view.Chart,
	}
	if fd.Preset == 0 {
		fd.Preset = h.cfg.DefaultPreset
	}
	data := h.page(c, d, h.cfg.Symbol+" forecast", "forecast")
	data.Path = "/dashboard/forecast"
	data.Forecast = fd
	data.Chart = chart(usecase.SlotForecast, view.ChartID)
	return h.pages.render(c, http.StatusOK, "forecast", data)
}

// Chart serves the live chart of a slot as a standalone document.
func (h *DashboardHandler) Chart(c echo.Context) error {
	d, ok := session.Lookup(c, h.sessions)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no session"))
	}
	slot, ok := d.Slot(c.Param("slot"))
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown chart slot %q", c.Param("slot")))
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	if err := slot.WriteHTML(c.Response()); err != nil {
		if errors.Is(err, render.ErrNoChart) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("slot holds no chart"))
		}
		h.logger.Error("chart render error", xlogger.String("slot", slot.Name()), xlogger.Error(err))
		return err
	}
	return nil
}

// ForecastPNG exports the live forecast chart as an image.
func (h *DashboardHandler) ForecastPNG(c echo.Context) error {
	d, ok := session.Lookup(c, h.sessions)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no session"))
	}
	spec, ok := d.Forecast.Chart().Spec()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no forecast chart"))
	}

	c.Response().Header().Set(echo.HeaderContentType, "image/png")
	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="forecast.png"`)
	c.Response().WriteHeader(http.StatusOK)
	if err := render.WritePNG(c.Response(), spec); err != nil {
		h.logger.Error("png export error", xlogger.Error(err))
		return err
	}
	return nil
}

// ToggleTheme flips the theme cookie and the session's charts, then returns
// to the page the form was posted from.
func (h *DashboardHandler) ToggleTheme(c echo.Context) error {
	d := session.Dashboard(c, h.sessions)
	next := d.Theme().Toggle()
	d.SetTheme(next)
	session.SetTheme(c, next)

	return c.Redirect(http.StatusSeeOther, localPath(c.FormValue("back")))
}

// localPath returns back when it is a path on this site, otherwise the home
// page. Browsers treat a backslash like a slash, so "/\host" is foreign too.
func localPath(back string) string {
	const home = "/dashboard/home"
	if !strings.HasPrefix(back, "/") || strings.ContainsAny(back, "\\\r\n\t") {
		return home
	}
	u, err := url.Parse(back)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil || strings.HasPrefix(u.Path, "//") {
		return home
	}
	return back
}
