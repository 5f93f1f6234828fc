package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

logging:
  level: debug
  redact_pii: false

apify:
  api_token: "apify-test"
  max_leads_per_search: 25

prospeo:
  api_key: "prospeo-test"

hunter:
  api_key: "hunter-test"

instantly:
  api_key: "instantly-test"
  campaign_id: "camp-1"

rate_limit:
  delay_seconds: 0.5

suppression:
  backend: redis
  redis_key: "test:suppression"

costs:
  overrides:
    hunter_search: 0.02
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Explicit values
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Redact())
	assert.Equal(t, "apify-test", cfg.Apify.APIToken)
	assert.Equal(t, 25, cfg.Apify.MaxLeadsPerSearch)
	assert.Equal(t, "camp-1", cfg.Instantly.CampaignID)
	assert.Equal(t, 0.5, cfg.RateLimit.DelaySeconds)
	assert.Equal(t, "redis", cfg.Suppression.Backend)
	assert.Equal(t, "test:suppression", cfg.Suppression.RedisKey)
	assert.Equal(t, 0.02, cfg.Costs.Overrides["hunter_search"])

	// Defaults
	assert.Equal(t, "https://api.apify.com/v2", cfg.Apify.BaseURL)
	assert.Equal(t, "compass~crawler-google-places", cfg.Apify.ActorID)
	assert.Equal(t, "https://api.instantly.ai/api/v1", cfg.Instantly.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Anthropic.Model)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.Short())
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Long())
	assert.Equal(t, 2*time.Second, cfg.RateLimit.BaseDelay())
	assert.Equal(t, 20, cfg.Enrichment.BatchSize)
	assert.Equal(t, 10, cfg.Enrichment.Concurrency)
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Logging.Redact())
	assert.Equal(t, "file", cfg.Suppression.Backend)
	assert.Equal(t, "data/suppression_list.json", cfg.Suppression.File)
	assert.Equal(t, "anthropic", cfg.LLM.Backend)
	assert.Equal(t, "us-east-1", cfg.Bedrock.Region)
	assert.Equal(t, 15*time.Minute, cfg.Lock.TTL())
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROSPEO_API_KEY", "env-prospeo")
	t.Setenv("INSTANTLY_CAMPAIGN_ID", "env-campaign")
	t.Setenv("MAX_LEADS_PER_SEARCH", "42")
	t.Setenv("API_RATE_LIMIT_DELAY", "1.5")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-prospeo", cfg.Prospeo.APIKey)
	assert.Equal(t, "env-campaign", cfg.Instantly.CampaignID)
	assert.Equal(t, 42, cfg.Apify.MaxLeadsPerSearch)
	assert.Equal(t, 1.5, cfg.RateLimit.DelaySeconds)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "eu-west-1", cfg.SES.Region)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromEnv_AdminAPIKeys(t *testing.T) {
	t.Setenv("ADMIN_API_KEYS", " key-one, ,key-two ")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Server.APIKeys)
	assert.NoError(t, cfg.Validate(RequireServer))
}

func TestValidate_ServerNeedsAPIKeys(t *testing.T) {
	err := Default().Validate(RequireServer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_API_KEYS")
}

func TestLoadFromEnv_InvalidNumber(t *testing.T) {
	t.Setenv("ENRICHMENT_BATCH_SIZE", "lots")

	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENRICHMENT_BATCH_SIZE")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Prospeo.APIKey = "p"

	err := cfg.Validate(RequireEnrichment, RequireOutreach)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HUNTER_API_KEY")
	assert.Contains(t, err.Error(), "INSTANTLY_API_KEY")
	assert.Contains(t, err.Error(), "INSTANTLY_CAMPAIGN_ID")
	assert.NotContains(t, err.Error(), "PROSPEO_API_KEY")

	cfg.Hunter.APIKey = "h"
	cfg.Instantly.APIKey = "i"
	cfg.Instantly.CampaignID = "c"
	assert.NoError(t, cfg.Validate(RequireEnrichment, RequireOutreach))

	// Nothing required, nothing checked.
	assert.NoError(t, Default().Validate())
}

func TestValidate_LLMBackend(t *testing.T) {
	cfg := Default()
	err := cfg.Validate(RequireLLM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	cfg.LLM.Backend = "bedrock"
	err = cfg.Validate(RequireLLM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BEDROCK_MODEL_ID")

	cfg.Bedrock.ModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	assert.NoError(t, cfg.Validate(RequireLLM))
}

func TestLoadBenchmarks(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "kpi_benchmarks.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "benchmarks": {
    "bounce_rate": {"target": 0.01, "alert_threshold": 0.03},
    "spam_complaint_rate": {"alert_threshold": 0.002}
  }
}`), 0644))
	b := LoadBenchmarks(path)
	assert.InDelta(t, 3.0, b.MaxBounceRate, 1e-9)
	assert.InDelta(t, 0.2, b.MaxSpamRate, 1e-9)

	// Missing file
	b = LoadBenchmarks(filepath.Join(dir, "nope.json"))
	assert.Equal(t, 2.0, b.MaxBounceRate)
	assert.Equal(t, 0.1, b.MaxSpamRate)

	// Malformed file
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	assert.Equal(t, 2.0, LoadBenchmarks(bad).MaxBounceRate)

	// Key absent falls back to default
	partial := filepath.Join(dir, "partial.json")
	require.NoError(t, os.WriteFile(partial, []byte(`{"benchmarks": {}}`), 0644))
	assert.Equal(t, 2.0, LoadBenchmarks(partial).MaxBounceRate)
}

func TestMaxBounceRate_Override(t *testing.T) {
	cfg := Default()
	cfg.Health.BenchmarksPath = filepath.Join(t.TempDir(), "missing.json")
	assert.Equal(t, 2.0, cfg.MaxBounceRate())

	cfg.Health.MaxBounceRate = 4.5
	assert.Equal(t, 4.5, cfg.MaxBounceRate())
}
