package gateway

import (
	"context"
	"log/slog"
	"strings"

	"github.com/eleven-am/interview-backend/internal/shared"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type HandlerConfig struct {
	AllowedOrigins []string
	// MessageRate limits inbound frames per second on one connection.
	// Zero disables the limit.
	MessageRate  float64
	MessageBurst int
}

type Handler struct {
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	cfg        HandlerConfig
	logger     *slog.Logger
}

func NewHandler(dispatcher *Dispatcher, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = 1
	}
	return &Handler{
		dispatcher: dispatcher,
		upgrader:   newUpgrader(cfg.AllowedOrigins),
		cfg:        cfg,
		logger:     logger.With("component", "ws_handler"),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/:client_id", h.HandleConnection)
}

// HandleConnection upgrades the request and serves the channel for the
// client identity in the path until either side closes it.
func (h *Handler) HandleConnection(c echo.Context) error {
	clientID := strings.TrimSpace(c.Param("client_id"))
	if clientID == "" {
		return shared.BadRequest("missing_client_id", "client id is required")
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "client_id", clientID, "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	defer cancel()

	ch := newWSChannel(ws, clientID, h.logger)
	if err := h.dispatcher.Connect(ctx, clientID, ch); err != nil {
		h.logger.Warn("connection rejected", "client_id", clientID, "error", err)
		_ = ch.Close()
		return nil
	}
	h.logger.Info("client connected", "client_id", clientID, "remote_addr", c.RealIP())

	go ch.keepalive()

	processed := make(chan struct{})
	go func() {
		defer close(processed)
		h.process(ctx, clientID, ch)
	}()

	ch.readPump()

	h.dispatcher.Disconnect(clientID, ch)
	cancel()
	h.logger.Info("client disconnected", "client_id", clientID)
	<-processed
	return nil
}

// process dispatches frames from ch one at a time until the channel closes.
func (h *Handler) process(ctx context.Context, clientID string, ch *wsChannel) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if h.cfg.MessageRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.cfg.MessageRate), h.cfg.MessageBurst)
	}

	for {
		select {
		case <-ch.Done():
			return
		case message, ok := <-ch.Messages():
			if !ok {
				return
			}
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			h.dispatcher.Dispatch(ctx, clientID, message)
		}
	}
}
