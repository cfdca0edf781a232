package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
)

type ResendTransport struct {
	client *resend.Client
}

func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

func (t *ResendTransport) Name() string { return config.ProviderResend }

func (t *ResendTransport) Send(ctx context.Context, env Envelope) (string, error) {
	req := &resend.SendEmailRequest{
		From:    formatAddress(env.From, env.FromName),
		To:      []string{env.To},
		Subject: env.Subject,
		Html:    env.HTML,
	}

	var (
		resp *resend.SendEmailResponse
		err  error
	)
	if env.IdempotencyKey != "" {
		resp, err = t.client.Emails.SendWithOptions(ctx, req, &resend.SendEmailOptions{IdempotencyKey: env.IdempotencyKey})
	} else {
		resp, err = t.client.Emails.SendWithContext(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("resend send: %w", err)
	}
	return resp.Id, nil
}
