package mail

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
)

type MailgunTransport struct {
	mg *mailgun.MailgunImpl
}

func NewMailgunTransport(cfg config.MailgunConfig) *MailgunTransport {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.BaseURL != "" {
		mg.SetAPIBase(cfg.BaseURL)
	}
	return &MailgunTransport{mg: mg}
}

func (t *MailgunTransport) Name() string { return config.ProviderMailgun }

func (t *MailgunTransport) Send(ctx context.Context, env Envelope) (string, error) {
	m := t.mg.NewMessage(formatAddress(env.From, env.FromName), env.Subject, "", env.To)
	m.SetHtml(env.HTML)

	_, id, err := t.mg.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	return id, nil
}
