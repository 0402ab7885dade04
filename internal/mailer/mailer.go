// Package mailer renders and sends transactional email.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/hugh/canicloud/pkg/config"
)

//go:embed templates
var templatesFS embed.FS

// loadTemplates parses every page together with the base layout.
func loadTemplates() (*template.Template, error) {
	base, err := fs.ReadFile(templatesFS, "templates/layouts/base.html")
	if err != nil {
		return nil, err
	}

	tmpl := template.New("")
	entries, err := fs.ReadDir(templatesFS, "templates/pages")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		page, err := fs.ReadFile(templatesFS, "templates/pages/"+entry.Name())
		if err != nil {
			return nil, err
		}
		t := tmpl.New(entry.Name())
		if _, err := t.Parse(string(base)); err != nil {
			return nil, err
		}
		if _, err := t.Parse(string(page)); err != nil {
			return nil, err
		}
	}
	return tmpl, nil
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg    config.SMTPConfig
	tmpl   *template.Template
	send   SendFunc
	logger *slog.Logger
}

func New(cfg config.SMTPConfig, logger *slog.Logger) (*Mailer, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("loading email templates: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, tmpl: tmpl, send: smtp.SendMail, logger: logger}, nil
}

// WithSendFunc replaces the SMTP transport.
func (m *Mailer) WithSendFunc(fn SendFunc) *Mailer {
	m.send = fn
	return m
}

// Enabled reports whether an SMTP relay is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

var purposes = map[string]string{
	"signup":   "finish creating your account",
	"password": "reset your password",
	"link":     "link your account",
}

type otpData struct {
	Code      string
	Purpose   string
	ExpiresIn string
}

// SendOTP emails a verification code. Without a relay the send is skipped
// and only logged.
func (m *Mailer) SendOTP(ctx context.Context, to, code, otpType string) error {
	purpose, ok := purposes[otpType]
	if !ok {
		purpose = "continue"
	}

	var body bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&body, "otp.html", otpData{
		Code:      code,
		Purpose:   purpose,
		ExpiresIn: "5 minutes",
	}); err != nil {
		return fmt.Errorf("rendering otp email: %w", err)
	}

	if !m.Enabled() {
		m.logger.Warn("smtp not configured, otp email skipped", "to", to, "type", otpType)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.cfg.From, to, "Your verification code", body.String())
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("sending otp email: %w", err)
	}
	m.logger.Info("otp email sent", "to", to, "type", otpType)
	return nil
}

func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}
