package messaging

import (
	"task_tracker/internal/config"
	"task_tracker/pkg/mailer"

	"go.uber.org/fx"
)

func NewMailer(cfg *config.Config) *mailer.Client {
	return mailer.NewClient(cfg.MailerURL, cfg.MailerUsername, cfg.MailerPassword, cfg.MailerFrom)
}

var Module = fx.Options(
	fx.Provide(NewRabbitMQ),
	fx.Provide(
		NewMailer,
		func(c *mailer.Client) MailSender { return c },
	),
	fx.Provide(NewMailWorker),
)
