package services

import (
	"task_tracker/internal/auth"
	"task_tracker/internal/config"
	"task_tracker/internal/messaging"
	"task_tracker/internal/redis"
	"task_tracker/internal/repository"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type userServiceParams struct {
	fx.In

	Config      *config.Config
	UserRepo    repository.UserRepository
	ProjectRepo repository.ProjectRepository
	SetupTokens SetupTokenStore
	Mail        MailService
	Logger      *zap.Logger
}

func provideUserService(p userServiceParams) UserService {
	return NewUserService(p.UserRepo, p.ProjectRepo, p.SetupTokens, p.Mail, p.Config.SetupTokenTTL, p.Logger)
}

func provideTokenManager(cfg *config.Config) *auth.TokenManager {
	return auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
}

func provideMailService(publisher MailPublisher, cfg *config.Config) MailService {
	return NewMailService(publisher, cfg.AppBaseURL)
}

func provideRecurrenceService(taskRepo repository.TaskRepository, cfg *config.Config, logger *zap.Logger) RecurrenceService {
	return NewRecurrenceService(taskRepo, cfg.Location(), logger)
}

var Module = fx.Options(
	fx.Provide(
		func(c *redis.Client) SessionStore { return c },
		func(c *redis.Client) SetupTokenStore { return c },
		func(mq *messaging.RabbitMQ) MailPublisher { return mq },
	),
	fx.Provide(provideTokenManager),
	fx.Provide(NewAuthService),
	fx.Provide(provideMailService),
	fx.Provide(provideUserService),
	fx.Provide(NewProjectService),
	fx.Provide(NewTaskService),
	fx.Provide(NewCommentService),
	fx.Provide(provideRecurrenceService),
)
