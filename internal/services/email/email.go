package email

import (
	"fmt"
	"net/smtp"

	"github.com/securecontrol/backend/internal/config"
)

// Mailer sends a single email. Implementations report delivery failure so
// callers can gate on it, e.g. account creation only after the credentials
// email went out.
type Mailer interface {
	Send(to, subject, htmlBody, textBody string) error
}

// SMTPMailer sends email over SMTP
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one email with both HTML and plaintext alternatives
func (m *SMTPMailer) Send(to, subject, htmlBody, textBody string) error {
	if m.cfg.Host == "" || m.cfg.Port == "" || m.cfg.Username == "" || m.cfg.Password == "" {
		return fmt.Errorf("email service not configured")
	}

	boundary := "sc-alt-boundary"
	headers := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%q\r\n\r\n",
		m.cfg.FromName, m.cfg.FromEmail, to, subject, boundary)

	body := fmt.Sprintf("--%s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n--%s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n--%s--\r\n",
		boundary, textBody, boundary, htmlBody, boundary)

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := m.cfg.Host + ":" + m.cfg.Port

	if err := smtp.SendMail(addr, auth, m.cfg.FromEmail, []string{to}, []byte(headers+body)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
