package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

func TestSlackNotifier(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL, time.Second)
	require.NoError(t, n.Notify(context.Background(), ":warning: bounce high"))
	assert.Equal(t, map[string]string{"text": ":warning: bounce high"}, got)
}

func TestSlackNotifier_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("invalid_token"))
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL, time.Second).Notify(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, policy.StatusCode(err))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESNotifier(t *testing.T) {
	fake := &fakeSES{}
	n := NewSESNotifier(fake, "alerts@example.com", []string{"ops@example.com"})

	require.NoError(t, n.Notify(context.Background(), ":warning: ALERT: Bounce rate 5.0%\n:warning: second"))
	assert.Equal(t, "alerts@example.com", aws.ToString(fake.input.FromEmailAddress))
	assert.Equal(t, []string{"ops@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "Lead-gen alert: :warning: ALERT: Bounce rate 5.0%", aws.ToString(fake.input.Content.Simple.Subject.Data))
	assert.Contains(t, aws.ToString(fake.input.Content.Simple.Body.Text.Data), "second")
}

func TestSESNotifier_Errors(t *testing.T) {
	assert.Error(t, NewSESNotifier(&fakeSES{}, "", nil).Notify(context.Background(), "x"))

	n := NewSESNotifier(&fakeSES{err: errors.New("throttled")}, "a@example.com", []string{"b@example.com"})
	assert.ErrorContains(t, n.Notify(context.Background(), "x"), "throttled")
}

type recordingNotifier struct {
	texts []string
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return r.err
}

func TestMulti(t *testing.T) {
	a := &recordingNotifier{err: errors.New("a down")}
	b := &recordingNotifier{}

	err := Multi{a, b, LogNotifier{}}.Notify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a down")
	assert.Equal(t, []string{"hello"}, b.texts)
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	n, err := FromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, n)

	cfg.Slack.WebhookURL = "https://hooks.slack.com/services/T/B/X"
	n, err = FromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &SlackNotifier{}, n)

	cfg.SES.Enabled = true
	cfg.SES.AccessKey = "a"
	cfg.SES.SecretKey = "b"
	n, err = FromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, Multi{}, n)
}
