package main

import (
	"net/http"
	"task_tracker/internal/config"
	"task_tracker/internal/database"
	"task_tracker/internal/handlers"
	"task_tracker/internal/logger"
	"task_tracker/internal/messaging"
	"task_tracker/internal/migrations"
	"task_tracker/internal/redis"
	"task_tracker/internal/repository"
	"task_tracker/internal/scheduler"
	"task_tracker/internal/services"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.Load,
			logger.NewLogger,
			database.NewDB,
			redis.NewClient,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		messaging.Module,
		repository.Module,
		services.Module,
		handlers.Module,
		scheduler.Module,
		fx.Invoke(
			runMigrations,
			func(*messaging.MailWorker) {},
			func(*scheduler.Scheduler) {},
			func(*http.Server) {},
		),
	)
	app.Run()
}

func runMigrations(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	return migrations.RunMigrations(db, cfg, log)
}
