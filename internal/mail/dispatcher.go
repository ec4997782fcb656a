// AngelaMos | 2026
// dispatcher.go

package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/carterperez-dev/insighta/internal/config"
)

var ErrDelivery = errors.New("mail delivery failed")

// Dispatcher delivers a single rendered HTML message.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPDispatcher struct {
	sender smtpSender
	from   string
}

func NewSMTPDispatcher(cfg config.MailConfig) *SMTPDispatcher {
	return &SMTPDispatcher{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (d *SMTPDispatcher) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := d.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	return nil
}

// LogDispatcher records messages instead of sending them. Used when mail is
// disabled so local setups do not need an SMTP server.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, to, subject, _ string) error {
	d.logger.InfoContext(ctx, "mail disabled, message not sent",
		"to", to,
		"subject", subject,
	)
	return nil
}

func NewDispatcher(cfg config.MailConfig, logger *slog.Logger) Dispatcher {
	if !cfg.Enabled {
		return NewLogDispatcher(logger)
	}
	return NewSMTPDispatcher(cfg)
}
