package services

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/mail"
	"net/smtp"
	"regexp"
	"strings"
	"time"

	"github.com/Wikid82/logwarden/internal/config"
	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/models"
	"github.com/Wikid82/logwarden/internal/version"
)

// ErrSMTPNotConfigured is returned when no SMTP host or sender is set.
var ErrSMTPNotConfigured = errors.New("SMTP not configured")

// defaultSMTPTimeout bounds the dial and the whole SMTP session.
const defaultSMTPTimeout = 30 * time.Second

var headerControlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// MailService handles sending emails via SMTP.
type MailService struct {
	config  config.SMTPConfig
	timeout time.Duration
}

// NewMailService creates a new mail service instance.
func NewMailService(cfg config.SMTPConfig) *MailService {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	cfg.Encryption = strings.ToLower(cfg.Encryption)
	return &MailService{config: cfg, timeout: defaultSMTPTimeout}
}

// IsConfigured returns true if SMTP is properly configured.
func (s *MailService) IsConfigured() bool {
	return s.config.Host != "" && s.config.FromAddress != ""
}

// TestConnection tests the SMTP connection without sending an email.
func (s *MailService) TestConnection() error {
	if s.config.Host == "" {
		return ErrSMTPNotConfigured
	}
	client, err := s.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	if auth := s.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}
	return client.Quit()
}

// SendEmail sends an HTML email using the configured SMTP settings.
func (s *MailService) SendEmail(to, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrSMTPNotConfigured
	}
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	msg := s.buildEmail(s.config.FromAddress, to, subject, htmlBody)
	client, err := s.connect()
	if err != nil {
		return err
	}
	defer client.Close()
	return s.deliver(client, to, msg)
}

func (s *MailService) auth() smtp.Auth {
	if s.config.Username == "" || s.config.Password == "" {
		return nil
	}
	return smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
}

func (s *MailService) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: s.config.Host,
		MinVersion: tls.VersionTLS12,
	}
}

// buildEmail constructs a properly formatted email message. Header values are
// stripped of control characters so a subject cannot inject headers.
func (s *MailService) buildEmail(from, to, subject, htmlBody string) []byte {
	headers := [][2]string{
		{"From", sanitizeEmailHeader(from)},
		{"To", sanitizeEmailHeader(to)},
		{"Subject", sanitizeEmailHeader(subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var msg bytes.Buffer
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	return msg.Bytes()
}

func sanitizeEmailHeader(v string) string {
	return headerControlChars.ReplaceAllString(v, "")
}

func validateEmailAddress(addr string) error {
	if addr == "" {
		return errors.New("empty email address")
	}
	if strings.ContainsAny(addr, "\r\n") {
		return errors.New("email address contains line breaks")
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("parse email address: %w", err)
	}
	return nil
}

// connect opens an SMTP session for the configured encryption mode. The dial
// and every later read or write share one deadline, so an unresponsive server
// fails the send instead of hanging it.
func (s *MailService) connect() (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	dialer := &net.Dialer{Timeout: s.timeout}

	var conn net.Conn
	var err error
	if s.config.Encryption == "ssl" {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, s.tlsConfig())
		if err != nil {
			return nil, fmt.Errorf("SSL connection failed: %w", err)
		}
	} else {
		conn, err = dialer.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("SMTP connection failed: %w", err)
		}
	}
	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set SMTP deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if s.config.Encryption == "starttls" {
		if err := client.StartTLS(s.tlsConfig()); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}
	return client, nil
}

func (s *MailService) deliver(client *smtp.Client, to string, msg []byte) error {
	if auth := s.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}
	if err := client.Mail(s.config.FromAddress); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

var alertEmailTemplate = template.Must(template.New("alert").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="margin-top: 0;">{{.AppName}} alert</h2>
    <table style="border-collapse: collapse;">
        <tr><td style="padding: 4px 12px 4px 0;"><strong>Severity</strong></td><td>{{.Alert.Severity}}</td></tr>
        <tr><td style="padding: 4px 12px 4px 0;"><strong>Message</strong></td><td>{{.Alert.Message}}</td></tr>
        <tr><td style="padding: 4px 12px 4px 0;"><strong>Rules</strong></td><td>{{.Rules}}</td></tr>
        <tr><td style="padding: 4px 12px 4px 0;"><strong>Source</strong></td><td>{{.Alert.SourceID}}</td></tr>
        <tr><td style="padding: 4px 12px 4px 0;"><strong>Record</strong></td><td>{{.Alert.LogRecordID}}</td></tr>
        <tr><td style="padding: 4px 12px 4px 0;"><strong>Raised</strong></td><td>{{.Alert.CreatedAt.UTC.Format "2006-01-02 15:04:05 MST"}}</td></tr>
    </table>
</body>
</html>
`))

// AlertSubject is the email subject used for alert.
func AlertSubject(alert *models.Alert) string {
	return fmt.Sprintf("%s ALERT: %s", version.Name, alert.Severity)
}

func renderAlertEmail(alert *models.Alert) (string, error) {
	var body bytes.Buffer
	err := alertEmailTemplate.Execute(&body, map[string]any{
		"AppName": version.Name,
		"Subject": AlertSubject(alert),
		"Alert":   alert,
		"Rules":   strings.Join(alert.RuleNames, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}

// SendAlertEmail emails the details of alert to recipient.
func (s *MailService) SendAlertEmail(recipient string, alert *models.Alert) error {
	body, err := renderAlertEmail(alert)
	if err != nil {
		return err
	}
	logger.Component("notify").WithField("alert_id", alert.ID).Info("Sending alert email")
	return s.SendEmail(recipient, AlertSubject(alert), body)
}
