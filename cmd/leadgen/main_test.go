package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/domain"
)

func TestDoctor(t *testing.T) {
	var hunterKey string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /apify/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer apify-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{}}`))
	})
	mux.HandleFunc("GET /openai/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("GET /prospeo/email-verifier", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "prospeo-key", r.Header.Get("X-KEY"))
		w.WriteHeader(http.StatusBadRequest)
	})
	mux.HandleFunc("GET /hunter/v2/account", func(w http.ResponseWriter, r *http.Request) {
		hunterKey = r.URL.Query().Get("api_key")
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /instantly/campaign/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := config.Default()
	c.Apify.BaseURL = srv.URL + "/apify"
	c.Apify.APIToken = "apify-token"
	c.OpenAI.BaseURL = srv.URL + "/openai"
	c.OpenAI.APIKey = "bad"
	c.Anthropic.APIKey = "sk-ant-test"
	c.Prospeo.BaseURL = srv.URL + "/prospeo"
	c.Prospeo.APIKey = "prospeo-key"
	c.Hunter.BaseURL = srv.URL + "/hunter"
	c.Hunter.APIKey = "hunter-key"
	c.Instantly.BaseURL = srv.URL + "/instantly"

	d := newDoctor(c)
	d.client = srv.Client()
	passed, failed := d.run(context.Background())

	assert.Equal(t, 5, passed)
	assert.Equal(t, []string{"OpenAI"}, failed)
	assert.Equal(t, "hunter-key", hunterKey)
}

func TestDoctor_AnthropicKeyFormat(t *testing.T) {
	c := config.Default()
	c.Anthropic.APIKey = "not-a-key"

	var anthropic check
	for _, ch := range newDoctor(c).checks() {
		if ch.name == "Anthropic" {
			anthropic = ch
		}
	}
	require.NotNil(t, anthropic.run)
	assert.Error(t, anthropic.run(context.Background()))

	c.LLM.Backend = "bedrock"
	c.Bedrock.ModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	assert.NoError(t, anthropic.run(context.Background()))
}

func TestReadSuppressionCSV(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := "\ufeffEmail,reason,notes\n" +
		"a@example.com,bounce,x\n" +
		",manual,blank\n" +
		"b@example.com,,\n" +
		"c@example.com\n"

	entries, err := readSuppressionCSV(strings.NewReader(in), now)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "a@example.com", entries[0].Email)
	assert.Equal(t, domain.ReasonBounce, entries[0].Reason)
	assert.Equal(t, domain.ReasonBulkImport, entries[1].Reason)
	assert.Equal(t, domain.ReasonBulkImport, entries[2].Reason)
	for _, e := range entries {
		assert.Equal(t, domain.SuppressionFromImport, e.Source)
		assert.Equal(t, now, e.AddedAt)
	}
}

func TestReadSuppressionCSV_NoEmailColumn(t *testing.T) {
	_, err := readSuppressionCSV(strings.NewReader("address\nx@example.com\n"), time.Now())
	assert.Error(t, err)

	entries, err := readSuppressionCSV(strings.NewReader(""), time.Now())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteSuppressionCSV(t *testing.T) {
	added := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := writeSuppressionCSV(&buf, []domain.Suppression{
		{Email: "a@example.com", Reason: domain.ReasonUnsubscribe, Source: domain.SuppressionFromWebhook, AddedAt: added},
	})
	require.NoError(t, err)
	assert.Equal(t, "email,reason,source,added_at\na@example.com,unsubscribe,webhook,2026-03-01T12:00:00Z\n", buf.String())
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range []interface{ Name() string }{
		pipelineCmd(), repliesCmd(), healthCmd(), doctorCmd(),
		suppressionCmd(), costsCmd(), serveCmd(), personalizeCmd(),
	} {
		names[c.Name()] = true
	}
	assert.Len(t, names, 8)

	sub := map[string]bool{}
	for _, c := range suppressionCmd().Commands() {
		sub[c.Name()] = true
	}
	for _, want := range []string{"add", "remove", "check", "import", "export", "count"} {
		assert.True(t, sub[want], want)
	}
}

func TestRepliesRequiresReplyWithEmail(t *testing.T) {
	cfg = config.Default()
	cmd := repliesCmd()
	cmd.SetArgs([]string{"--email", "a@example.com"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--reply")
}

func TestServeRequiresAdminAPIKeys(t *testing.T) {
	cfg = config.Default()
	cmd := serveCmd()
	cmd.SetArgs([]string{"--port", "0"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_API_KEYS")
}
