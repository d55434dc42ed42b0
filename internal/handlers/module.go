package handlers

import (
	"task_tracker/internal/config"
	"task_tracker/internal/middleware"
	"task_tracker/internal/services"

	"go.uber.org/fx"
)

func provideAuthHandler(auth services.AuthService, cfg *config.Config) *AuthHandler {
	return NewAuthHandler(auth, cfg.CookieSecure)
}

var Module = fx.Options(
	fx.Provide(func(a services.AuthService) middleware.Authenticator { return a }),
	fx.Provide(provideAuthHandler),
	fx.Provide(NewUserHandler),
	fx.Provide(NewProjectHandler),
	fx.Provide(NewTaskHandler),
	fx.Provide(NewRouter),
	fx.Provide(NewHTTPServer),
)
