// Package notify delivers new-document alerts. Delivery is strictly
// best-effort: a failed or skipped send never affects run status, the
// documents stay persisted either way.
package notify

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/regwatch/regwatch/internal/logger"
)

// Notifier sends an alert to the configured recipients. Implementations
// report whether the message was actually handed off.
type Notifier interface {
	Notify(subject, body string) (bool, error)
}

// SMTPConfig holds mail delivery settings.
type SMTPConfig struct {
	Host       string   `mapstructure:"host"       yaml:"host"`
	Port       int      `mapstructure:"port"       yaml:"port"`
	Username   string   `mapstructure:"username"   yaml:"username"`
	Password   string   `mapstructure:"password"   yaml:"password"`
	From       string   `mapstructure:"from"       yaml:"from"`
	UseTLS     bool     `mapstructure:"use_tls"    yaml:"use_tls"`
	Recipients []string `mapstructure:"recipients" yaml:"recipients"`
}

const smtpDialTimeout = 30 * time.Second

// SMTPNotifier delivers alerts over SMTP with STARTTLS.
type SMTPNotifier struct {
	config SMTPConfig
	logger logger.Interface
}

// NewSMTPNotifier creates an SMTP notifier.
func NewSMTPNotifier(config SMTPConfig, log logger.Interface) *SMTPNotifier {
	if config.Port == 0 {
		config.Port = 587
	}
	if config.From == "" {
		config.From = config.Username
	}
	return &SMTPNotifier{
		config: config,
		logger: log.WithComponent("notify"),
	}
}

// Notify sends the message to all configured recipients in a single
// SMTP transaction. Zero recipients or incomplete credentials are a
// silent skip, not an error.
func (n *SMTPNotifier) Notify(subject, body string) (bool, error) {
	if len(n.config.Recipients) == 0 {
		n.logger.Info("alert skipped, no recipients configured")
		return false, nil
	}
	if n.config.Host == "" || n.config.Username == "" || n.config.Password == "" {
		n.logger.Warn("alert skipped, smtp credentials not fully configured")
		return false, nil
	}

	msg := buildMessage(n.config.From, n.config.Recipients, subject, body)
	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)

	if err := n.send(addr, msg); err != nil {
		return false, fmt.Errorf("failed to send alert email: %w", err)
	}

	n.logger.Info("alert email sent", "recipients", len(n.config.Recipients))
	return true, nil
}

func (n *SMTPNotifier) send(addr string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", addr, smtpDialTimeout)
	if err != nil {
		return fmt.Errorf("failed to dial smtp server: %w", err)
	}

	client, err := smtp.NewClient(conn, n.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	defer client.Close()

	if n.config.UseTLS {
		if err := client.StartTLS(nil); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	auth := smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}

	if err := client.Mail(n.config.From); err != nil {
		return fmt.Errorf("mail from rejected: %w", err)
	}
	for _, rcpt := range n.config.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("recipient %s rejected: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data command failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	return client.Quit()
}

func buildMessage(from string, recipients []string, subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + strings.Join(recipients, ", ") + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}

// ParseRecipients splits a comma-separated recipient list, dropping
// empty entries.
func ParseRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
