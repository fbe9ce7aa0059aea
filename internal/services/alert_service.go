package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/pingate/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// LockoutNotifier is told about every newly applied lock.
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, event models.LockoutEvent) error
}

// SESAPI is the part of the SES client used to send alerts.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier emails an operator when an IP gets locked
type SESLockoutNotifier struct {
	sesClient   SESAPI
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewSESLockoutNotifier loads the default AWS config for region
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress, toAddress string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, toAddress, logger), nil
}

func NewSESLockoutNotifierWithClient(client SESAPI, fromAddress, toAddress string, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		sesClient:   client,
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}
}

func (n *SESLockoutNotifier) NotifyLockout(ctx context.Context, event models.LockoutEvent) error {
	subject := fmt.Sprintf("Access gate: %s locked for %d min", event.IPAddress, event.LockMinutes)

	textBody := fmt.Sprintf(`An IP address was locked out of the access gate.

IP address:       %s
Lock number:      %d
Lock duration:    %d minutes
Locked until:     %s
Recent failures:  %d (last 24h)

This is an automated message.
`,
		event.IPAddress,
		event.LockCount,
		event.LockMinutes,
		event.LockUntil.UTC().Format(time.RFC1123),
		event.RecentFailures,
	)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lockout email: %w", err)
	}

	n.logger.Info("lockout email sent",
		slog.String("ip", event.IPAddress),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// MultiNotifier fans a lockout out to every configured notifier. One failing
// notifier does not stop the others.
type MultiNotifier []LockoutNotifier

func (m MultiNotifier) NotifyLockout(ctx context.Context, event models.LockoutEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyLockout(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
