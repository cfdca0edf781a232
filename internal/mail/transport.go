// Package mail delivers rendered reminders through the configured provider.
package mail

import (
	"context"
	"fmt"
	"net/mail"

	commonaws "github.com/Avisafety/avisafe-sub001/internal/common/aws"
	"github.com/Avisafety/avisafe-sub001/internal/common/config"
)

// Envelope is one outbound message.
type Envelope struct {
	From     string
	FromName string
	To       string
	Subject  string
	HTML     string
	// IdempotencyKey is forwarded to providers that deduplicate on their side.
	IdempotencyKey string
}

// Transport sends one message and returns the provider's message id.
type Transport interface {
	Name() string
	Send(ctx context.Context, env Envelope) (string, error)
}

// NewTransport builds the transport selected by cfg.Provider. The mail
// config must already be validated.
func NewTransport(ctx context.Context, cfg config.MailConfig, awsRegion string) (Transport, error) {
	switch cfg.Provider {
	case config.ProviderSMTP, "":
		return NewSMTPTransport(cfg.SMTP), nil
	case config.ProviderSES:
		client, err := commonaws.NewSESClient(ctx, awsRegion)
		if err != nil {
			return nil, err
		}
		return NewSESTransport(client), nil
	case config.ProviderMailgun:
		return NewMailgunTransport(cfg.Mailgun), nil
	case config.ProviderResend:
		return NewResendTransport(cfg.Resend.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", cfg.Provider)
	}
}

// formatAddress renders "Name <addr>" with RFC 2047 encoding when needed.
func formatAddress(addr, name string) string {
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}

// validAddress is a cheap syntax check before handing an address to a
// provider.
func validAddress(addr string) bool {
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}
