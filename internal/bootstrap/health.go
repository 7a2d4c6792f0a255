package bootstrap

import (
	"github.com/eleven-am/interview-backend/internal/gateway"
	"github.com/eleven-am/interview-backend/internal/generation"
	"github.com/eleven-am/interview-backend/internal/health"
	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const version = "1.0.0"

func ProvideHealthHandler(
	db *gorm.DB,
	redis *redis.Client,
	gen *generation.Generator,
	registry *gateway.Registry,
	sessions *interview.Store,
) *health.Handler {
	return health.NewHandler(db, redis, gen, registry, sessions, version)
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(h.CountRequests)
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
