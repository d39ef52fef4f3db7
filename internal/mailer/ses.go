package mailer

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/d60-Lab/power-monitor/config"
)

// SESMailer 经 AWS SES v2 发送
type SESMailer struct {
	client *sesv2.Client
	sender string
}

func NewSES(ctx context.Context, cfg config.EmailConfig) (*SESMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{client: sesv2.NewFromConfig(awsCfg), sender: cfg.Sender}, nil
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: &m.sender,
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &msg.Subject},
				Body:    &types.Body{Text: &types.Content{Data: &msg.Body}},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		var rejected *types.MessageRejected
		var badReq *types.BadRequestException
		if errors.As(err, &rejected) || errors.As(err, &badReq) {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
