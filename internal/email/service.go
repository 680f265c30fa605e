package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/config"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewService returns an SMTP sender, or one that only logs when email is disabled.
func NewService(cfg config.EmailConfig, log *logger.Logger) Service {
	if !cfg.Enabled {
		return &logService{log: log}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(newMessage(s.from, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func newMessage(from, to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

type logService struct {
	log *logger.Logger
}

func (s *logService) Send(_ context.Context, to, subject, _ string) error {
	s.log.Debug("email disabled, not sending", "to", to, "subject", subject)
	return nil
}
