package report

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eleven-am/interview-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

const defaultListLimit = 20

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
	g.GET("/:client_id", h.List)
	g.GET("/:client_id/:id", h.Get)
}

func (h *Handler) List(c echo.Context) error {
	clientID := c.Param("client_id")

	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			return shared.BadRequest("invalid_limit", "limit must be between 1 and 100")
		}
		limit = n
	}

	reports, err := h.store.ListByClient(c.Request().Context(), clientID, limit)
	if err != nil {
		h.logger.Error("failed to list reports", "error", err, "client_id", clientID)
		return shared.InternalError("list_failed", "failed to list reports")
	}
	if reports == nil {
		reports = []*Report{}
	}

	return c.JSON(http.StatusOK, ListResponse{ClientID: clientID, Reports: reports})
}

func (h *Handler) Get(c echo.Context) error {
	clientID := c.Param("client_id")
	id := c.Param("id")

	r, err := h.store.GetByID(c.Request().Context(), id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && r.ClientID != clientID) {
		return shared.NotFound("report_not_found", "report not found")
	}
	if err != nil {
		h.logger.Error("failed to get report", "error", err, "report_id", id)
		return shared.InternalError("get_failed", "failed to get report")
	}

	return c.JSON(http.StatusOK, r)
}
