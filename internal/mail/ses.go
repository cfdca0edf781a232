package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESTransport struct {
	client SESService
}

func NewSESTransport(client SESService) *SESTransport {
	return &SESTransport{client: client}
}

func (t *SESTransport) Name() string { return config.ProviderSES }

func (t *SESTransport) Send(ctx context.Context, env Envelope) (string, error) {
	out, err := t.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(formatAddress(env.From, env.FromName)),
		Destination: &types.Destination{
			ToAddresses: []string{env.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(env.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(env.HTML), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
