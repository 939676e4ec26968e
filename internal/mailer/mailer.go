// Package mailer delivers transactional mail. The reset flow only depends on
// the Mailer interface; deployments without SMTP configured fall back to the
// log mailer so the flow stays exercisable in development.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/rs/zerolog/log"
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, email, resetToken string) error
}

// LogMailer writes the mail to the log instead of sending it.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	log.Info().
		Str("to", email).
		Str("mail", "password_reset").
		Msg("password reset mail (log mailer, token withheld)")
	return nil
}

// SMTPMailer sends over plain SMTP with optional auth.
type SMTPMailer struct {
	host         string
	port         int
	username     string
	password     string
	from         string
	resetBaseURL string
	tokenTTL     time.Duration
}

type SMTPConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	ResetBaseURL string
	TokenTTL     time.Duration
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		host:         cfg.Host,
		port:         cfg.Port,
		username:     cfg.Username,
		password:     cfg.Password,
		from:         cfg.From,
		resetBaseURL: cfg.ResetBaseURL,
		tokenTTL:     cfg.TokenTTL,
	}
}

// expiryText renders the configured token lifetime for the mail body.
func expiryText(ttl time.Duration) string {
	if ttl >= time.Hour && ttl%time.Hour == 0 {
		hours := int(ttl / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(ttl / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	link := resetToken
	if m.resetBaseURL != "" {
		link = m.resetBaseURL + "?token=" + resetToken
	}

	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Password reset\r\n\r\n"+
			"A password reset was requested for your back-office account.\r\n"+
			"Reset link: %s\r\n\r\n"+
			"The link expires in %s. If you did not request this, ignore this mail.\r\n",
		m.from, email, link, expiryText(m.tokenTTL),
	)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{email}, []byte(body))
}
