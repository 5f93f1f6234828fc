// Package notify delivers operator alerts to Slack and email. Delivery is
// fire-and-forget from the caller's point of view: callers log a returned
// error and carry on.
package notify

import (
	"context"
	"errors"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/storage"
)

var log = logger.Named("notify")

// Notifier sends a plain-text message to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Multi sends to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes the message to the log instead of sending it.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(_ context.Context, text string) error {
	log.Warn("alert", "text", text)
	return nil
}

// FromConfig builds the configured sinks: Slack when a webhook URL is set,
// SES when enabled. It returns nil when no sink is configured.
func FromConfig(ctx context.Context, cfg *config.Config) (Notifier, error) {
	var sinks Multi
	if cfg.Slack.WebhookURL != "" {
		sinks = append(sinks, NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Timeouts.Short()))
	}
	if cfg.SES.Enabled {
		client, err := storage.NewSESClient(ctx, storage.AWSOptions{
			Region:    cfg.SES.Region,
			Profile:   cfg.AWS.Profile,
			AccessKey: cfg.SES.AccessKey,
			SecretKey: cfg.SES.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, NewSESNotifier(client, cfg.SES.FromEmail, cfg.SES.ToEmails))
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
