package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	xlogger "FinCast/pkg/logger"
	"FinCast/pkg/util"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// ClockTick is one frame of the header clock.
type ClockTick struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// ClockHandler pushes the wall clock to connected browsers every interval.
// Upgraded connections are hijacked from the HTTP server, so the handler
// tracks them itself and Close ends them.
type ClockHandler struct {
	logger   *xlogger.Logger
	loc      *time.Location
	interval time.Duration
	upgrader websocket.Upgrader
	now      func() time.Time

	stop   context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	conns  sync.WaitGroup
}

func NewClockHandler(logger *xlogger.Logger, loc *time.Location) *ClockHandler {
	if loc == nil {
		loc = time.UTC
	}
	stop, cancel := context.WithCancel(context.Background())
	return &ClockHandler{
		logger:   logger,
		loc:      loc,
		interval: time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  256,
			WriteBufferSize: 256,
		},
		now:    time.Now,
		stop:   stop,
		cancel: cancel,
	}
}

func (h *ClockHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/clock", h.Serve)
}

func (h *ClockHandler) tick() ClockTick {
	now := h.now().In(h.loc)
	return ClockTick{Date: now.Format(util.ClockDate), Time: now.Format(util.ClockTime)}
}

// track registers a connection unless the handler is closed.
func (h *ClockHandler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns.Add(1)
	return true
}

// Close sends a close frame to every open clock stream and waits for them to
// end, or for ctx. New upgrades are refused afterwards.
func (h *ClockHandler) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve upgrades the request and writes a tick immediately, then on every
// interval until the browser goes away or the handler is closed.
func (h *ClockHandler) Serve(c echo.Context) error {
	if !h.track() {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	defer h.conns.Done()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Debug("clock upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	stopWatch := context.AfterFunc(h.stop, cancel)
	defer stopWatch()

	// read loop; only control frames and close are expected
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		_ = conn.SetWriteDeadline(time.Now().Add(h.interval * 5))
		if err := conn.WriteJSON(h.tick()); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("clock write failed", xlogger.Error(err))
			}
			return nil
		}
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return nil
		case <-ticker.C:
		}
	}
}
