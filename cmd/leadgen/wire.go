package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/enrichment"
	"github.com/Aviral2610/Lead-gen/internal/health"
	"github.com/Aviral2610/Lead-gen/internal/llm"
	"github.com/Aviral2610/Lead-gen/internal/notify"
	"github.com/Aviral2610/Lead-gen/internal/outreach"
	"github.com/Aviral2610/Lead-gen/internal/personalization"
	"github.com/Aviral2610/Lead-gen/internal/pkg/distlock"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
	"github.com/Aviral2610/Lead-gen/internal/reply"
	"github.com/Aviral2610/Lead-gen/internal/scraping"
	"github.com/Aviral2610/Lead-gen/internal/storage"
	"github.com/Aviral2610/Lead-gen/internal/suppression"
)

// app owns the connections and shared services for one command invocation.
type app struct {
	cfg     *config.Config
	redis   *redis.Client
	db      *sql.DB
	limiter policy.Limiter
	ledger  *cost.Ledger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, ledger: cost.NewLedger(cfg.Costs.Overrides)}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
	}
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		a.db = db
	}

	if cfg.RateLimit.Shared && a.redis != nil {
		a.limiter = policy.NewRedisLimiter(a.redis, "leadgen:ratelimit")
	} else {
		a.limiter = policy.NewLocalLimiter()
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// withApp builds an app for the command and closes it afterwards.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// Call policies per operation family. Intervals and retry counts follow the
// providers' published limits.
func (a *app) policy(interval time.Duration, retries int) *policy.Policy {
	return policy.New(a.limiter, policy.Settings{
		MinInterval: interval,
		MaxRetries:  retries,
		BaseDelay:   a.cfg.RateLimit.BaseDelay(),
	})
}

func (a *app) providerPolicy() *policy.Policy { return a.policy(500*time.Millisecond, 2) }

func (a *app) outreachPolicy() *policy.Policy {
	return a.policy(time.Duration(a.cfg.RateLimit.DelaySeconds*float64(time.Second)), 3)
}

func (a *app) awsOptions(region string) storage.AWSOptions {
	if region == "" {
		region = a.cfg.AWS.Region
	}
	return storage.AWSOptions{Region: region, Profile: a.cfg.AWS.Profile}
}

func (a *app) suppressionStore(ctx context.Context) (suppression.Store, error) {
	sc := a.cfg.Suppression
	switch sc.Backend {
	case "", "file":
		return suppression.NewFileStore(sc.File), nil
	case "redis":
		if a.redis == nil {
			return nil, errors.New("suppression backend redis needs REDIS_URL")
		}
		return suppression.NewRedisStore(a.redis, sc.RedisKey), nil
	case "postgres":
		if a.db == nil {
			return nil, errors.New("suppression backend postgres needs DATABASE_URL")
		}
		store := suppression.NewPostgresStore(a.db, sc.Table)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		if sc.S3Bucket == "" {
			return nil, errors.New("suppression backend s3 needs suppression.s3_bucket")
		}
		client, err := storage.NewS3Client(ctx, a.awsOptions(""))
		if err != nil {
			return nil, err
		}
		return suppression.NewS3Store(client, sc.S3Bucket, sc.S3Key), nil
	default:
		return nil, fmt.Errorf("unknown suppression backend %q", sc.Backend)
	}
}

func (a *app) gate(ctx context.Context) (*suppression.Gate, error) {
	store, err := a.suppressionStore(ctx)
	if err != nil {
		return nil, err
	}
	return suppression.NewGate(ctx, store)
}

func (a *app) costSink(ctx context.Context) (cost.Sink, error) {
	switch a.cfg.Costs.Backend {
	case "", "file":
		return cost.NewFileSink(a.cfg.Costs.LogFile), nil
	case "dynamodb":
		client, err := storage.NewDynamoDBClient(ctx, a.awsOptions(""))
		if err != nil {
			return nil, err
		}
		return cost.NewDynamoSink(client, a.cfg.Costs.DynamoTable), nil
	default:
		return nil, fmt.Errorf("unknown cost backend %q", a.cfg.Costs.Backend)
	}
}

func (a *app) instantly() *outreach.Client {
	ic := a.cfg.Instantly
	return outreach.NewClient(ic.BaseURL, ic.APIKey, ic.CampaignID, a.cfg.Timeouts.Long())
}

func (a *app) enrichmentEngine() *enrichment.Engine {
	short := a.cfg.Timeouts.Short()
	prospeo := enrichment.NewProspeoClient(a.cfg.Prospeo.BaseURL, a.cfg.Prospeo.APIKey, short)
	hunter := enrichment.NewHunterClient(a.cfg.Hunter.BaseURL, a.cfg.Hunter.APIKey, short)
	return enrichment.NewEngine(a.providerPolicy(), prospeo, a.ledger, prospeo, hunter)
}

func (a *app) scraper() *scraping.GoogleMapsScraper {
	ac := a.cfg.Apify
	return scraping.NewGoogleMapsScraper(scraping.GoogleMapsOptions{
		BaseURL:           ac.BaseURL,
		Token:             ac.APIToken,
		ActorID:           ac.ActorID,
		MaxLeadsPerSearch: ac.MaxLeadsPerSearch,
		PollInterval:      time.Duration(ac.PollIntervalSeconds) * time.Second,
		MaxWait:           time.Duration(ac.MaxWaitSeconds) * time.Second,
		Timeout:           a.cfg.Timeouts.Long(),
	}, a.policy(0, 3), a.ledger)
}

// researcher uses Firecrawl when a key is configured and fetches pages
// directly otherwise.
func (a *app) researcher() (*personalization.Researcher, error) {
	var fetcher personalization.PageFetcher
	if a.cfg.Firecrawl.APIKey != "" {
		fetcher = personalization.NewFirecrawlClient(a.cfg.Firecrawl.BaseURL, a.cfg.Firecrawl.APIKey, a.cfg.Timeouts.Long())
	} else {
		fetcher = personalization.NewDirectFetcher(a.cfg.Timeouts.Long())
	}
	oc := a.cfg.OpenAI
	analyzer := llm.NewOpenAIClient(oc.BaseURL, oc.APIKey, oc.Model, a.cfg.Timeouts.Long())
	return personalization.NewResearcher(fetcher, analyzer, a.policy(time.Second, 2), a.ledger)
}

func (a *app) llmClient(ctx context.Context) (llm.Client, error) {
	return llm.New(ctx, a.cfg)
}

func (a *app) writer(ctx context.Context) (*personalization.Writer, error) {
	client, err := a.llmClient(ctx)
	if err != nil {
		return nil, err
	}
	return personalization.NewWriter(client, a.providerPolicy(), a.ledger), nil
}

func (a *app) notifier(ctx context.Context) (notify.Notifier, error) {
	return notify.FromConfig(ctx, a.cfg)
}

func (a *app) router(ctx context.Context) (*reply.Router, error) {
	client, err := a.llmClient(ctx)
	if err != nil {
		return nil, err
	}
	n, err := a.notifier(ctx)
	if err != nil {
		return nil, err
	}
	return reply.NewRouter(client, a.providerPolicy(), n, a.ledger), nil
}

func (a *app) monitor(ctx context.Context) (*health.Monitor, error) {
	n, err := a.notifier(ctx)
	if err != nil {
		return nil, err
	}
	return health.NewMonitor(a.instantly(), a.policy(0, 2), n, a.cfg.MaxBounceRate(), a.cfg.Instantly.CampaignID), nil
}

func (a *app) pushLock(campaignID string) distlock.DistLock {
	return distlock.NewLock(a.redis, a.db, "push:"+campaignID, a.cfg.Lock.TTL())
}

func (a *app) gateway() *outreach.Gateway {
	return outreach.NewGateway(a.instantly(), a.outreachPolicy(), a.ledger, a.cfg.Instantly.CampaignID, a.cfg.Enrichment.BatchSize)
}
