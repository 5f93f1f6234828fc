package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Apify       ApifyConfig       `yaml:"apify"`
	Apollo      ApolloConfig      `yaml:"apollo"`
	Prospeo     ProspeoConfig     `yaml:"prospeo"`
	Hunter      HunterConfig      `yaml:"hunter"`
	Instantly   InstantlyConfig   `yaml:"instantly"`
	Firecrawl   FirecrawlConfig   `yaml:"firecrawl"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Anthropic   AnthropicConfig   `yaml:"anthropic"`
	LLM         LLMConfig         `yaml:"llm"`
	Bedrock     BedrockConfig     `yaml:"bedrock"`
	Slack       SlackConfig       `yaml:"slack"`
	SES         SESConfig         `yaml:"ses"`
	AWS         AWSConfig         `yaml:"aws"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Enrichment  EnrichmentConfig  `yaml:"enrichment"`
	Suppression SuppressionConfig `yaml:"suppression"`
	Redis       RedisConfig       `yaml:"redis"`
	Database    DatabaseConfig    `yaml:"database"`
	Costs       CostsConfig       `yaml:"costs"`
	Health      HealthConfig      `yaml:"health"`
	Lock        LockConfig        `yaml:"lock"`
}

// ServerConfig holds admin API server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// APIKeys are accepted as bearer tokens or X-API-Key on /api routes.
	APIKeys []string `yaml:"api_keys" env:"ADMIN_API_KEYS" validate:"required,min=1"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether PII redaction is on. It defaults to true.
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// ApifyConfig holds Apify Google Maps actor settings
type ApifyConfig struct {
	APIToken            string `yaml:"api_token" env:"APIFY_API_TOKEN" validate:"required"`
	BaseURL             string `yaml:"base_url"`
	ActorID             string `yaml:"actor_id"`
	MaxLeadsPerSearch   int    `yaml:"max_leads_per_search"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxWaitSeconds      int    `yaml:"max_wait_seconds"`
}

// ApolloConfig holds Apollo.io people search settings
type ApolloConfig struct {
	APIKey  string `yaml:"api_key" env:"APOLLO_API_KEY" validate:"required"`
	BaseURL string `yaml:"base_url"`
}

// ProspeoConfig holds Prospeo domain search and verification settings
type ProspeoConfig struct {
	APIKey  string `yaml:"api_key" env:"PROSPEO_API_KEY" validate:"required"`
	BaseURL string `yaml:"base_url"`
}

// HunterConfig holds Hunter.io settings
type HunterConfig struct {
	APIKey  string `yaml:"api_key" env:"HUNTER_API_KEY" validate:"required"`
	BaseURL string `yaml:"base_url"`
}

// InstantlyConfig holds Instantly outreach settings
type InstantlyConfig struct {
	APIKey     string `yaml:"api_key" env:"INSTANTLY_API_KEY" validate:"required"`
	CampaignID string `yaml:"campaign_id" env:"INSTANTLY_CAMPAIGN_ID" validate:"required"`
	BaseURL    string `yaml:"base_url"`
}

// FirecrawlConfig holds Firecrawl scraping settings. An empty key falls back
// to fetching pages directly.
type FirecrawlConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// OpenAIConfig holds OpenAI settings used for website analysis
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" env:"OPENAI_API_KEY" validate:"required"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AnthropicConfig holds Claude settings for classification and writing
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key" env:"ANTHROPIC_API_KEY" validate:"required"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// LLMConfig selects the backend for classification, drafting and first lines.
type LLMConfig struct {
	Backend string `yaml:"backend"` // "anthropic" or "bedrock"
}

// BedrockConfig holds AWS Bedrock settings when llm.backend is "bedrock".
type BedrockConfig struct {
	Region  string `yaml:"region"`
	ModelID string `yaml:"model_id" env:"BEDROCK_MODEL_ID" validate:"required"`
}

// SlackConfig holds the incoming webhook used for alerts
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// SESConfig holds AWS SES alert email settings
type SESConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Region    string   `yaml:"region"`
	AccessKey string   `yaml:"access_key"`
	SecretKey string   `yaml:"secret_key"`
	FromEmail string   `yaml:"from_email"`
	ToEmails  []string `yaml:"to_emails"`
}

// AWSConfig holds shared AWS settings
type AWSConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// TimeoutConfig holds HTTP timeouts in seconds
type TimeoutConfig struct {
	ShortSeconds int `yaml:"short_seconds"`
	LongSeconds  int `yaml:"long_seconds"`
}

// Short returns the timeout for quick lookups.
func (t TimeoutConfig) Short() time.Duration { return time.Duration(t.ShortSeconds) * time.Second }

// Long returns the timeout for scrapes and batch pushes.
func (t TimeoutConfig) Long() time.Duration { return time.Duration(t.LongSeconds) * time.Second }

// RateLimitConfig holds outbound call pacing
type RateLimitConfig struct {
	DelaySeconds     float64 `yaml:"delay_seconds"`
	BaseDelaySeconds float64 `yaml:"base_delay_seconds"`
	Shared           bool    `yaml:"shared"` // keep limiter state in Redis
}

// BaseDelay returns the first retry delay.
func (r RateLimitConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelaySeconds * float64(time.Second))
}

// EnrichmentConfig holds batch sizing
type EnrichmentConfig struct {
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency"`
}

// SuppressionConfig selects and configures the suppression store
type SuppressionConfig struct {
	Backend  string `yaml:"backend"` // file, redis, postgres, s3
	File     string `yaml:"file"`
	RedisKey string `yaml:"redis_key"`
	Table    string `yaml:"table"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Key    string `yaml:"s3_key"`
}

// RedisConfig holds the Redis connection used by shared limiter, locks and stores
type RedisConfig struct {
	URL string `yaml:"url"`
}

// DatabaseConfig holds the Postgres connection
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CostsConfig holds cost ledger persistence and price overrides
type CostsConfig struct {
	Backend     string             `yaml:"backend"` // file or dynamodb
	LogFile     string             `yaml:"log_file"`
	DynamoTable string             `yaml:"dynamo_table"`
	Overrides   map[string]float64 `yaml:"overrides"`
}

// HealthConfig holds campaign health thresholds
type HealthConfig struct {
	BenchmarksPath string  `yaml:"benchmarks_path"`
	MaxBounceRate  float64 `yaml:"max_bounce_rate"` // percent, overrides benchmarks when > 0
}

// LockConfig holds distributed lock settings for the outreach push
type LockConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// TTL returns the lock lifetime.
func (l LockConfig) TTL() time.Duration { return time.Duration(l.TTLSeconds) * time.Second }

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Apify.BaseURL == "" {
		cfg.Apify.BaseURL = "https://api.apify.com/v2"
	}
	if cfg.Apify.ActorID == "" {
		cfg.Apify.ActorID = "compass~crawler-google-places"
	}
	if cfg.Apify.MaxLeadsPerSearch == 0 {
		cfg.Apify.MaxLeadsPerSearch = 100
	}
	if cfg.Apify.PollIntervalSeconds == 0 {
		cfg.Apify.PollIntervalSeconds = 30
	}
	if cfg.Apify.MaxWaitSeconds == 0 {
		cfg.Apify.MaxWaitSeconds = 600
	}
	if cfg.Apollo.BaseURL == "" {
		cfg.Apollo.BaseURL = "https://api.apollo.io/v1"
	}
	if cfg.Prospeo.BaseURL == "" {
		cfg.Prospeo.BaseURL = "https://api.prospeo.io"
	}
	if cfg.Hunter.BaseURL == "" {
		cfg.Hunter.BaseURL = "https://api.hunter.io"
	}
	if cfg.Instantly.BaseURL == "" {
		cfg.Instantly.BaseURL = "https://api.instantly.ai/api/v1"
	}
	if cfg.Firecrawl.BaseURL == "" {
		cfg.Firecrawl.BaseURL = "https://api.firecrawl.dev"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com"
	}
	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Anthropic.BaseURL == "" {
		cfg.Anthropic.BaseURL = "https://api.anthropic.com"
	}
	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = "anthropic"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Bedrock.Region == "" {
		cfg.Bedrock.Region = cfg.AWS.Region
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = cfg.AWS.Region
	}
	if cfg.Timeouts.ShortSeconds == 0 {
		cfg.Timeouts.ShortSeconds = 15
	}
	if cfg.Timeouts.LongSeconds == 0 {
		cfg.Timeouts.LongSeconds = 60
	}
	if cfg.RateLimit.DelaySeconds == 0 {
		cfg.RateLimit.DelaySeconds = 1
	}
	if cfg.RateLimit.BaseDelaySeconds == 0 {
		cfg.RateLimit.BaseDelaySeconds = 2
	}
	if cfg.Enrichment.BatchSize == 0 {
		cfg.Enrichment.BatchSize = 20
	}
	if cfg.Enrichment.Concurrency == 0 {
		cfg.Enrichment.Concurrency = 10
	}
	if cfg.Suppression.Backend == "" {
		cfg.Suppression.Backend = "file"
	}
	if cfg.Suppression.File == "" {
		cfg.Suppression.File = "data/suppression_list.json"
	}
	if cfg.Suppression.RedisKey == "" {
		cfg.Suppression.RedisKey = "leadgen:suppression"
	}
	if cfg.Suppression.Table == "" {
		cfg.Suppression.Table = "suppression_list"
	}
	if cfg.Suppression.S3Key == "" {
		cfg.Suppression.S3Key = "suppression_list.json"
	}
	if cfg.Costs.Backend == "" {
		cfg.Costs.Backend = "file"
	}
	if cfg.Costs.LogFile == "" {
		cfg.Costs.LogFile = "data/cost_log.json"
	}
	if cfg.Costs.DynamoTable == "" {
		cfg.Costs.DynamoTable = "leadgen_cost_log"
	}
	if cfg.Health.BenchmarksPath == "" {
		cfg.Health.BenchmarksPath = "config/kpi_benchmarks.json"
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 900
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so keys can live in .env locally and in real env vars in production.
// A missing config file is not an error: every setting has a default or an
// environment variable.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	strOverrides := map[string]*string{
		"APIFY_API_TOKEN":       &cfg.Apify.APIToken,
		"APIFY_BASE_URL":        &cfg.Apify.BaseURL,
		"APIFY_ACTOR_ID":        &cfg.Apify.ActorID,
		"APOLLO_API_KEY":        &cfg.Apollo.APIKey,
		"PROSPEO_API_KEY":       &cfg.Prospeo.APIKey,
		"HUNTER_API_KEY":        &cfg.Hunter.APIKey,
		"INSTANTLY_API_KEY":     &cfg.Instantly.APIKey,
		"INSTANTLY_CAMPAIGN_ID": &cfg.Instantly.CampaignID,
		"INSTANTLY_BASE_URL":    &cfg.Instantly.BaseURL,
		"FIRECRAWL_API_KEY":     &cfg.Firecrawl.APIKey,
		"OPENAI_API_KEY":        &cfg.OpenAI.APIKey,
		"OPENAI_MODEL":          &cfg.OpenAI.Model,
		"ANTHROPIC_API_KEY":     &cfg.Anthropic.APIKey,
		"CLAUDE_MODEL":          &cfg.Anthropic.Model,
		"LLM_BACKEND":           &cfg.LLM.Backend,
		"BEDROCK_MODEL_ID":      &cfg.Bedrock.ModelID,
		"SLACK_WEBHOOK_URL":     &cfg.Slack.WebhookURL,
		"SUPPRESSION_FILE":      &cfg.Suppression.File,
		"SUPPRESSION_BACKEND":   &cfg.Suppression.Backend,
		"DATABASE_URL":          &cfg.Database.URL,
		"REDIS_URL":             &cfg.Redis.URL,
		"AWS_PROFILE":           &cfg.AWS.Profile,
		"LOG_LEVEL":             &cfg.Logging.Level,
	}
	for key, dst := range strOverrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("ADMIN_API_KEYS"); v != "" {
		cfg.Server.APIKeys = splitList(v)
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
		cfg.Bedrock.Region = v
		cfg.SES.Region = v
	}

	intOverrides := map[string]*int{
		"API_TIMEOUT_SHORT":     &cfg.Timeouts.ShortSeconds,
		"API_TIMEOUT_LONG":      &cfg.Timeouts.LongSeconds,
		"MAX_LEADS_PER_SEARCH":  &cfg.Apify.MaxLeadsPerSearch,
		"ENRICHMENT_BATCH_SIZE": &cfg.Enrichment.BatchSize,
		"ASYNC_CONCURRENCY":     &cfg.Enrichment.Concurrency,
	}
	for key, dst := range intOverrides {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}

	if v := os.Getenv("API_RATE_LIMIT_DELAY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid API_RATE_LIMIT_DELAY %q: %w", v, err)
		}
		cfg.RateLimit.DelaySeconds = f
	}

	return cfg, nil
}

// splitList splits a comma-separated value, dropping blank items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Requirement names a group of settings a command cannot run without.
type Requirement string

const (
	RequireScraping   Requirement = "scraping"
	RequireApollo     Requirement = "apollo"
	RequireEnrichment Requirement = "enrichment"
	RequireOutreach   Requirement = "outreach"
	RequireResearch   Requirement = "research"
	RequireLLM        Requirement = "llm"
	RequireServer     Requirement = "server"
)

var requirementFields = map[Requirement][]string{
	RequireScraping:   {"Apify.APIToken"},
	RequireApollo:     {"Apollo.APIKey"},
	RequireEnrichment: {"Prospeo.APIKey", "Hunter.APIKey"},
	RequireOutreach:   {"Instantly.APIKey", "Instantly.CampaignID"},
	RequireResearch:   {"OpenAI.APIKey"},
	RequireServer:     {"Server.APIKeys"},
}

// Validate checks that every setting needed by the given requirements is
// present. Errors name the environment variable to set.
func (cfg *Config) Validate(required ...Requirement) error {
	var fields []string
	for _, r := range required {
		if r == RequireLLM {
			if cfg.LLM.Backend == "bedrock" {
				fields = append(fields, "Bedrock.ModelID")
			} else {
				fields = append(fields, "Anthropic.APIKey")
			}
			continue
		}
		f, ok := requirementFields[r]
		if !ok {
			return fmt.Errorf("unknown requirement %q", r)
		}
		fields = append(fields, f...)
	}
	if len(fields) == 0 {
		return nil
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})

	err := v.StructPartial(cfg, fields...)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return fmt.Errorf("missing required environment variable(s): %s. Copy .env.example to .env and fill in your keys",
		strings.Join(missing, ", "))
}

// Benchmarks holds alert thresholds as percentages.
type Benchmarks struct {
	MaxBounceRate float64
	MaxSpamRate   float64
}

type benchmarksFile struct {
	Benchmarks struct {
		BounceRate struct {
			AlertThreshold *float64 `json:"alert_threshold"`
		} `json:"bounce_rate"`
		SpamComplaintRate struct {
			AlertThreshold *float64 `json:"alert_threshold"`
		} `json:"spam_complaint_rate"`
	} `json:"benchmarks"`
}

// LoadBenchmarks reads kpi_benchmarks.json. Thresholds in the file are
// fractions and are returned as percentages. A missing or malformed file
// yields the 2% bounce and 0.1% spam defaults.
func LoadBenchmarks(path string) Benchmarks {
	b := Benchmarks{MaxBounceRate: 2.0, MaxSpamRate: 0.1}

	data, err := os.ReadFile(path)
	if err != nil {
		return b
	}
	var f benchmarksFile
	if err := json.Unmarshal(data, &f); err != nil {
		return b
	}
	if t := f.Benchmarks.BounceRate.AlertThreshold; t != nil {
		b.MaxBounceRate = *t * 100
	}
	if t := f.Benchmarks.SpamComplaintRate.AlertThreshold; t != nil {
		b.MaxSpamRate = *t * 100
	}
	return b
}

// MaxBounceRate returns the configured override or the benchmark value.
func (cfg *Config) MaxBounceRate() float64 {
	if cfg.Health.MaxBounceRate > 0 {
		return cfg.Health.MaxBounceRate
	}
	return LoadBenchmarks(cfg.Health.BenchmarksPath).MaxBounceRate
}
