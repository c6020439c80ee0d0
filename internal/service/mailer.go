package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resendlabs/resend-go"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const (
	ProviderLog    = "log"
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"

	confirmationSubject = "Thanks for your interest in Bridge"
)

var ErrInvalidRecipient = errors.New("invalid email address")

// ConfirmationMail is everything needed to send one confirmation email.
// ConfirmURL is empty when no usable token could be stored.
type ConfirmationMail struct {
	To         string
	FirstName  string
	ConfirmURL string
	ExpiresAt  time.Time

	RecordID  string
	RequestID string
}

// Mailer delivers confirmation emails through a transactional provider
type Mailer interface {
	SendConfirmation(ctx context.Context, m *ConfirmationMail) error
	Provider() string
}

type MailConfig struct {
	Provider     string
	From         string
	FromName     string
	ReplyTo      string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	ResendAPIKey string
}

// NewMailer picks the mail provider. The log provider never sends anything
// and is meant for local development.
func NewMailer(cfg MailConfig) (Mailer, error) {
	switch cfg.Provider {
	case ProviderLog, "":
		return &LogMailer{}, nil
	case ProviderSMTP:
		if cfg.SMTPHost == "" || cfg.SMTPPort <= 0 {
			return nil, errors.New("smtp mailer requires mail.smtp.host and mail.smtp.port")
		}
		if cfg.From == "" {
			return nil, errors.New("smtp mailer requires mail.from")
		}

		return &SMTPMailer{
			dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
			cfg:    cfg,
		}, nil
	case ProviderResend:
		if cfg.ResendAPIKey == "" {
			return nil, errors.New("resend mailer requires mail.resend_api_key")
		}
		if cfg.From == "" {
			return nil, errors.New("resend mailer requires mail.from")
		}

		return &ResendMailer{
			client: resend.NewClient(cfg.ResendAPIKey),
			cfg:    cfg,
		}, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// LogMailer only writes the email to the log
type LogMailer struct{}

func (LogMailer) Provider() string { return ProviderLog }

func (LogMailer) SendConfirmation(_ context.Context, m *ConfirmationMail) error {
	zap.L().Info("Mail provider not configured, skipping confirmation email",
		zap.String("request_id", m.RequestID),
		zap.String("record_id", m.RecordID),
		zap.String("email", m.To),
		zap.Bool("has_confirm_url", m.ConfirmURL != ""))

	return nil
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	cfg    MailConfig
}

func (s *SMTPMailer) Provider() string { return ProviderSMTP }

func (s *SMTPMailer) SendConfirmation(ctx context.Context, c *ConfirmationMail) error {
	if c.To == "" || c.To == s.cfg.From {
		return ErrInvalidRecipient
	}

	html, text, err := renderConfirmation(c)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.From, s.cfg.FromName))
	m.SetHeader("To", c.To)
	if s.cfg.ReplyTo != "" {
		m.SetHeader("Reply-To", s.cfg.ReplyTo)
	}
	m.SetHeader("Subject", confirmationSubject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	// gomail can't be cancelled, at least don't start a send for a dead context
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send confirmation email via SMTP, %w", err)
	}

	return nil
}

type ResendMailer struct {
	client *resend.Client
	cfg    MailConfig
}

func (r *ResendMailer) Provider() string { return ProviderResend }

func (r *ResendMailer) SendConfirmation(ctx context.Context, c *ConfirmationMail) error {
	if c.To == "" || c.To == r.cfg.From {
		return ErrInvalidRecipient
	}

	html, text, err := renderConfirmation(c)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", r.cfg.FromName, r.cfg.From),
		To:      []string{c.To},
		Subject: confirmationSubject,
		Html:    html,
		Text:    text,
		ReplyTo: r.cfg.ReplyTo,
	}

	if _, err := r.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send confirmation email via Resend, %w", err)
	}

	return nil
}
