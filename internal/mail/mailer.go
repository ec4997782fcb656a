// AngelaMos | 2026
// mailer.go

package mail

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/carterperez-dev/insighta/internal/config"
)

// Mailer renders and sends the account emails.
type Mailer struct {
	dispatcher Dispatcher
	renderer   *Renderer
	appName    string
	appURL     string
	resetURL   string
}

func NewMailer(
	dispatcher Dispatcher,
	renderer *Renderer,
	appName string,
	cfg config.MailConfig,
) *Mailer {
	return &Mailer{
		dispatcher: dispatcher,
		renderer:   renderer,
		appName:    appName,
		appURL:     cfg.AppURL,
		resetURL:   cfg.ResetURL,
	}
}

func (m *Mailer) SendWelcome(ctx context.Context, to, username string) error {
	body, err := m.renderer.Render(templateWelcome, welcomeData{
		AppName:  m.appName,
		AppURL:   m.appURL,
		Username: username,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	return m.dispatcher.Send(ctx, to, "Welcome to "+m.appName, body)
}

func (m *Mailer) SendVerificationCode(
	ctx context.Context,
	to, username, code string,
	validFor time.Duration,
) error {
	body, err := m.renderer.Render(templateVerification, verificationData{
		AppName:  m.appName,
		Username: username,
		Code:     code,
		ValidFor: humanDuration(validFor),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	return m.dispatcher.Send(ctx, to, "Your verification code", body)
}

func (m *Mailer) SendPasswordReset(
	ctx context.Context,
	to, username, token string,
	validFor time.Duration,
) error {
	link, err := m.ResetLink(token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	body, err := m.renderer.Render(templateReset, resetData{
		AppName:  m.appName,
		Username: username,
		ResetURL: link,
		ValidFor: humanDuration(validFor),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	return m.dispatcher.Send(ctx, to, "Reset your password", body)
}

// ResetLink appends the reset token to the configured reset page URL.
func (m *Mailer) ResetLink(token string) (string, error) {
	u, err := url.Parse(m.resetURL)
	if err != nil {
		return "", fmt.Errorf("parse reset url: %w", err)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
