package service

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

type confirmationData struct {
	FirstName  string
	ConfirmURL string
	ExpiresOn  string
}

var confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation_html").Parse(`<!DOCTYPE html>
<html>
<body style="background-color:#f6f9fc;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
  <div style="background-color:#ffffff;margin:0 auto;padding:32px;max-width:560px;">
    <h1 style="color:#1a1a1a;font-size:24px;">Thanks for your interest!</h1>
    <p>Hi {{.FirstName}},</p>
    <p>We're excited you're interested in Bridge, the first community-driven dating experience.</p>
    <p>We're building something different: one curated match at a time, shaped by real community insight.
    No endless swiping. No noise. Just intentional connections.</p>
    {{- if .ConfirmURL}}
    <p>Please confirm your email so we can keep you posted:</p>
    <p><a href="{{.ConfirmURL}}" style="background-color:#2563eb;border-radius:6px;color:#ffffff;padding:12px 24px;text-decoration:none;">Confirm my email</a></p>
    <p style="color:#666666;font-size:12px;">This link expires on {{.ExpiresOn}} and can only be used once.</p>
    {{- end}}
    <p>The Bridge team</p>
  </div>
</body>
</html>
`))

var confirmationText = texttemplate.Must(texttemplate.New("confirmation_text").Parse(`Hi {{.FirstName}},

We're excited you're interested in Bridge, the first community-driven dating experience.
{{if .ConfirmURL}}
Please confirm your email so we can keep you posted:
{{.ConfirmURL}}

This link expires on {{.ExpiresOn}} and can only be used once.
{{end}}
The Bridge team
`))

// greetingName returns the first word of the name, "there" when empty
func greetingName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}

	return "there"
}

func renderConfirmation(m *ConfirmationMail) (string, string, error) {
	data := confirmationData{
		FirstName:  greetingName(m.FirstName),
		ConfirmURL: m.ConfirmURL,
		ExpiresOn:  m.ExpiresAt.UTC().Format("January 2, 2006"),
	}

	var html, text bytes.Buffer
	if err := confirmationHTML.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("failed to render confirmation email, %w", err)
	}

	if err := confirmationText.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("failed to render confirmation email, %w", err)
	}

	return html.String(), text.String(), nil
}
