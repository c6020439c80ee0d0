package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(MailConfig{})
	require.NoError(t, err)
	assert.Equal(t, ProviderLog, m.Provider())

	m, err = NewMailer(MailConfig{Provider: ProviderSMTP, SMTPHost: "smtp.example.com", SMTPPort: 587, From: "hi@bridge.app"})
	require.NoError(t, err)
	assert.Equal(t, ProviderSMTP, m.Provider())

	m, err = NewMailer(MailConfig{Provider: ProviderResend, ResendAPIKey: "re_123", From: "hi@bridge.app"})
	require.NoError(t, err)
	assert.Equal(t, ProviderResend, m.Provider())
}

func TestNewMailer_MissingSettings(t *testing.T) {
	_, err := NewMailer(MailConfig{Provider: ProviderSMTP})
	assert.Error(t, err)

	_, err = NewMailer(MailConfig{Provider: ProviderSMTP, SMTPHost: "smtp.example.com", SMTPPort: 587})
	assert.Error(t, err)

	_, err = NewMailer(MailConfig{Provider: ProviderResend, From: "hi@bridge.app"})
	assert.Error(t, err)

	_, err = NewMailer(MailConfig{Provider: "pigeon"})
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.SendConfirmation(context.Background(), &ConfirmationMail{To: "a@b.com"}))
}

func TestSMTPMailer_RejectsSenderAsRecipient(t *testing.T) {
	m, err := NewMailer(MailConfig{Provider: ProviderSMTP, SMTPHost: "localhost", SMTPPort: 25, From: "hi@bridge.app"})
	require.NoError(t, err)

	err = m.SendConfirmation(context.Background(), &ConfirmationMail{To: "hi@bridge.app"})
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestRenderConfirmation(t *testing.T) {
	html, text, err := renderConfirmation(&ConfirmationMail{
		FirstName:  "John Robert",
		ConfirmURL: "https://bridge.app/api/confirm?token=abc&x=1",
		ExpiresAt:  time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Hi John,")
	assert.Contains(t, html, `href="https://bridge.app/api/confirm?token=abc&amp;x=1"`)
	assert.Contains(t, html, "March 8, 2025")

	assert.Contains(t, text, "Hi John,")
	assert.Contains(t, text, "https://bridge.app/api/confirm?token=abc&x=1")
}

func TestRenderConfirmation_WithoutLink(t *testing.T) {
	html, text, err := renderConfirmation(&ConfirmationMail{})
	require.NoError(t, err)

	assert.Contains(t, html, "Hi there,")
	assert.NotContains(t, html, "Confirm my email")
	assert.False(t, strings.Contains(text, "confirm?token"))
}
