package ses

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"aria/internal/config"
	"aria/internal/notify"
	"aria/internal/port"
)

// EmailClient is the subset of the SES v2 client the notifier uses.
type EmailClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesNotifier struct {
	client      EmailClient
	fromAddress string
	fromName    string
	toAddress   string
}

// NewSESNotifier creates a new SES-backed HandoffNotifier.
func NewSESNotifier(ctx context.Context, cfg *config.NotifyConfig) (port.HandoffNotifier, error) {
	if cfg.ToAddress == "" {
		return nil, fmt.Errorf("notify.to_address is required for the ses provider")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewWithClient(sesv2.NewFromConfig(awsCfg), cfg), nil
}

// NewWithClient creates a HandoffNotifier around an existing client.
func NewWithClient(client EmailClient, cfg *config.NotifyConfig) port.HandoffNotifier {
	return &sesNotifier{
		client:      client,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		toAddress:   cfg.ToAddress,
	}
}

func (s *sesNotifier) NotifyHandoff(ctx context.Context, h port.Handoff) error {
	subject := notify.Subject(h)
	textBody := notify.TextBody(h)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{s.toAddress},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}
