package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const sesSubject = "Lead-gen alert"

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier emails alerts through Amazon SES.
type SESNotifier struct {
	client sesAPI
	from   string
	to     []string
}

// NewSESNotifier creates an email notifier.
func NewSESNotifier(client sesAPI, from string, to []string) *SESNotifier {
	return &SESNotifier{client: client, from: from, to: to}
}

// Notify implements Notifier. The subject is the first line of text.
func (s *SESNotifier) Notify(ctx context.Context, text string) error {
	if s.from == "" || len(s.to) == 0 {
		return errors.New("ses notifier: from and to addresses are required")
	}

	subject := sesSubject
	if first, _, _ := strings.Cut(text, "\n"); first != "" {
		subject = sesSubject + ": " + truncate(first, 120)
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: s.to},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	log.Debug("alert email sent", "message_id", aws.ToString(out.MessageId), "recipients", len(s.to))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
