package bootstrap

import (
	"github.com/eleven-am/interview-backend/internal/metrics"
	"github.com/eleven-am/interview-backend/internal/report"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideReportStore(db *gorm.DB) *report.Store {
	return report.NewStore(db)
}

func ProvideMetricsStore(redisClient *redis.Client) *metrics.Store {
	return metrics.NewStore(redisClient)
}

func RunMigrations(reportStore *report.Store) error {
	return reportStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideReportStore,
		ProvideMetricsStore,
	),
	fx.Invoke(RunMigrations),
)
