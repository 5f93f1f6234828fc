package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

// SlackNotifier posts to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient policy.HTTPDoer
}

// NewSlackNotifier creates a notifier for webhookURL.
func NewSlackNotifier(webhookURL string, timeout time.Duration) *SlackNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: policy.NewHTTPClient(timeout),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (s *SlackNotifier) SetHTTPClient(client policy.HTTPDoer) {
	s.httpClient = client
}

// Notify implements Notifier.
func (s *SlackNotifier) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return policy.WrapTransport("slack webhook", err)
	}
	_, err = policy.ReadResponse("slack webhook", resp)
	return err
}
