// Package mailer delivers the site's transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"
	"time"

	"github.com/dom/institutional-site/internal/config"
	"gopkg.in/mail.v2"
)

// ErrNotConfigured is returned when no SMTP credentials are available.
var ErrNotConfigured = errors.New("smtp delivery is not configured")

// PasswordReset is the data for a reset-password email.
type PasswordReset struct {
	To       string
	UserName string
	ResetURL string
	TTL      time.Duration
}

// Attachment is an optional file attached to a contact message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Contact is a visitor message sent through the site's contact form.
type Contact struct {
	Name       string
	Email      string
	Phone      string
	Subject    string
	Message    string
	Attachment *Attachment
}

type Mailer interface {
	SendPasswordReset(ctx context.Context, msg PasswordReset) error
	SendContact(ctx context.Context, msg Contact) error
}

// Sender abstracts the SMTP dial-and-send step.
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

type SMTPMailer struct {
	sender    Sender
	from      string
	recipient string
}

// NewSMTPMailer returns ErrNotConfigured when cfg lacks host or credentials.
func NewSMTPMailer(cfg config.SMTPConfig, timeout time.Duration) (*SMTPMailer, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.Timeout = timeout
	if cfg.Port == 465 {
		dialer.SSL = true
	}
	return NewSMTPMailerWithSender(dialer, cfg.From, cfg.ContactRecipient), nil
}

func NewSMTPMailerWithSender(sender Sender, from, recipient string) *SMTPMailer {
	return &SMTPMailer{sender: sender, from: from, recipient: recipient}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	html, text, err := renderPasswordReset(msg)
	if err != nil {
		return err
	}

	message := mail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", "Password reset")
	message.SetBody("text/plain", text)
	message.AddAlternative("text/html", html)

	return m.send(ctx, message)
}

func (m *SMTPMailer) SendContact(ctx context.Context, msg Contact) error {
	if m.recipient == "" {
		return ErrNotConfigured
	}

	message := mail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", m.recipient)
	message.SetHeader("Reply-To", msg.Email)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/plain", fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\nMessage: %s",
		msg.Name, msg.Email, msg.Phone, msg.Message))
	if msg.Attachment != nil {
		message.AttachReader(msg.Attachment.Filename, bytes.NewReader(msg.Attachment.Content))
	}

	return m.send(ctx, message)
}

// send runs the blocking SMTP exchange and gives up when ctx is done.
func (m *SMTPMailer) send(ctx context.Context, message *mail.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- m.sender.DialAndSend(message)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

var resetHTML = htmltemplate.Must(htmltemplate.New("reset-html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Password reset</h1>
  <p>Hello{{if .UserName}}, {{.UserName}}{{end}},</p>
  <p>We received a request to reset the password of your account.</p>
  <p><a href="{{.ResetURL}}">Reset password</a></p>
  <p>Or paste this link into your browser:</p>
  <p style="word-break: break-all;">{{.ResetURL}}</p>
  <p><strong>This link expires in {{.Expiry}}.</strong></p>
  <p>If you did not request a reset, ignore this email.</p>
</body>
</html>
`))

var resetText = texttemplate.Must(texttemplate.New("reset-text").Parse(`Password reset

Hello{{if .UserName}}, {{.UserName}}{{end}},

We received a request to reset the password of your account.
Open the link below to choose a new password:
{{.ResetURL}}

This link expires in {{.Expiry}}.

If you did not request a reset, ignore this email.
`))

type resetView struct {
	UserName string
	ResetURL string
	Expiry   string
}

func renderPasswordReset(msg PasswordReset) (string, string, error) {
	view := resetView{
		UserName: msg.UserName,
		ResetURL: msg.ResetURL,
		Expiry:   humanDuration(msg.TTL),
	}

	var html, text bytes.Buffer
	if err := execute(resetHTML, &html, view); err != nil {
		return "", "", err
	}
	if err := execute(resetText, &text, view); err != nil {
		return "", "", err
	}
	return html.String(), text.String(), nil
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func execute(tmpl executor, w io.Writer, data any) error {
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "1 hour"
	case d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	default:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
}
