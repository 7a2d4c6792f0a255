package bootstrap

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/eleven-am/interview-backend/internal/gateway"
	"github.com/eleven-am/interview-backend/internal/metrics"
	"github.com/eleven-am/interview-backend/internal/report"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	InterviewHandler *gateway.Handler
	MetricsHandler   *metrics.Handler
	ReportHandler    *report.Handler
	Config           *Config
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "API is running"})
	})

	params.InterviewHandler.RegisterRoutes(e)

	api := e.Group("/v1")
	api.Use(gateway.RateLimiter(gateway.RateLimiterConfig{
		RequestsPerSecond: params.Config.HTTPRate,
		Burst:             params.Config.HTTPBurst,
	}))

	params.MetricsHandler.RegisterRoutes(api.Group("/metrics"))
	params.ReportHandler.RegisterRoutes(api.Group("/reports"))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideMetricsHandler(store *metrics.Store, logger *slog.Logger) *metrics.Handler {
	return metrics.NewHandler(store, logger.With("handler", "metrics"))
}

func ProvideReportHandler(store *report.Store, logger *slog.Logger) *report.Handler {
	return report.NewHandler(store, logger.With("handler", "report"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideMetricsHandler,
		ProvideReportHandler,
	),
	fx.Invoke(RegisterRoutes),
)
