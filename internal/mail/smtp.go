package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
)

// SMTPTransport sends through a relay. With UseTLS the connection is implicit
// TLS, otherwise gomail upgrades with STARTTLS when the server offers it.
type SMTPTransport struct {
	host string
	dial func() (gomail.SendCloser, error)
}

func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.UseTLS
	d.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
	return &SMTPTransport{host: cfg.Host, dial: d.Dial}
}

func (t *SMTPTransport) Name() string { return config.ProviderSMTP }

// Send gives up when ctx is done. gomail has no deadlines of its own, so the
// exchange runs in a goroutine that finishes once the relay answers or drops
// the connection.
func (t *SMTPTransport) Send(ctx context.Context, env Envelope) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled before sending email: %w", err)
	}

	msg, messageID := t.buildMessage(env)

	done := make(chan error, 1)
	go func() {
		done <- t.deliver(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", err
		}
		return messageID, nil
	case <-ctx.Done():
		return "", fmt.Errorf("smtp %s: %w", t.host, ctx.Err())
	}
}

func (t *SMTPTransport) deliver(msg *gomail.Message) error {
	conn, err := t.dial()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := gomail.Send(conn, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (t *SMTPTransport) buildMessage(env Envelope) (*gomail.Message, string) {
	messageID := t.generateMessageID(env.To)

	m := gomail.NewMessage()
	m.SetAddressHeader("From", env.From, env.FromName)
	m.SetHeader("To", env.To)
	m.SetHeader("Subject", env.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/html", env.HTML)
	return m, messageID
}

func (t *SMTPTransport) generateMessageID(to string) string {
	return fmt.Sprintf("<%d.%s@%s>", time.Now().UnixNano(), sanitizeLocalPart(to), t.host)
}

func sanitizeLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, local)
	if len(local) > 10 {
		local = local[:10]
	}
	if local == "" {
		return "user"
	}
	return local
}
