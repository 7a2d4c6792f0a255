package metrics

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eleven-am/interview-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

const (
	defaultHours = 24
	maxHours     = 7 * 24
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetMetrics)
	g.GET("/summary", h.GetSummary)
}

func (h *Handler) GetMetrics(c echo.Context) error {
	hours, err := parseHours(c.QueryParam("hours"), defaultHours)
	if err != nil {
		return err
	}

	metrics, err := h.store.GetMetrics(c.Request().Context(), hours)
	if err != nil {
		h.logger.Error("failed to get metrics", "error", err)
		return shared.InternalError("get_metrics_failed", "failed to get metrics")
	}

	return c.JSON(http.StatusOK, ListResponse{Hours: hours, Metrics: metrics})
}

func (h *Handler) GetSummary(c echo.Context) error {
	hours, err := parseHours(c.QueryParam("hours"), maxHours)
	if err != nil {
		return err
	}

	summary, err := h.store.Summarize(c.Request().Context(), hours)
	if err != nil {
		h.logger.Error("failed to get metrics summary", "error", err)
		return shared.InternalError("get_metrics_failed", "failed to get metrics")
	}

	return c.JSON(http.StatusOK, summary)
}

func parseHours(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 || hours > maxHours {
		return 0, shared.NewAPIError("invalid_hours", "hours must be between 1 and 168").
			WithDetails(map[string]int{"max": maxHours}).
			ToHTTP(http.StatusBadRequest)
	}
	return hours, nil
}
