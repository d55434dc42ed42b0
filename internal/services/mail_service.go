package services

import (
	"context"
	"fmt"
	"strings"
	"task_tracker/internal/messaging"
	"task_tracker/internal/models"
)

type MailPublisher interface {
	PublishMail(ctx context.Context, msg messaging.MailMessage) error
}

type MailService interface {
	SendPasswordSetup(ctx context.Context, user *models.User, token string) error
}

type mailService struct {
	publisher MailPublisher
	baseURL   string
}

func NewMailService(publisher MailPublisher, baseURL string) MailService {
	return &mailService{publisher: publisher, baseURL: strings.TrimRight(baseURL, "/")}
}

// SendPasswordSetup queues the mail carrying the one-time password link.
func (s *mailService) SendPasswordSetup(ctx context.Context, user *models.User, token string) error {
	link := SetupLink(s.baseURL, token)
	body := fmt.Sprintf("Hello %s,\n\nAn account has been created for you. "+
		"Set your password using the link below:\n\n%s\n\nThe link can be used once.\n",
		user.Name, link)

	return s.publisher.PublishMail(ctx, messaging.MailMessage{
		To:      user.Email,
		Subject: "Set up your password",
		Body:    body,
	})
}

func SetupLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/set-password/" + token
}
