// Package cost estimates API spend per service for a pipeline session and
// persists session summaries.
package cost

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
)

// Service names used when logging calls.
const (
	ApifyGMaps      = "apify_gmaps"
	ProspeoSearch   = "prospeo_search"
	ProspeoVerify   = "prospeo_verify"
	HunterSearch    = "hunter_search"
	FirecrawlScrape = "firecrawl_scrape"
	OpenAIGPT4o     = "openai_gpt4o"
	ClaudeSonnet    = "claude_sonnet"
	ClaudeClassify  = "claude_classify"
	InstantlyAdd    = "instantly_add"
)

// DefaultCosts is the approximate cost per call in USD.
var DefaultCosts = map[string]float64{
	ApifyGMaps:      0.0041,
	ProspeoSearch:   0.01,
	ProspeoVerify:   0.005,
	HunterSearch:    0.015,
	FirecrawlScrape: 0.01,
	OpenAIGPT4o:     0.005,
	ClaudeSonnet:    0.003,
	ClaudeClassify:  0.001,
	InstantlyAdd:    0.0,
}

// Recorder is the part of the ledger that call sites depend on.
type Recorder interface {
	LogCall(service string, count int)
}

// Nop discards calls.
type Nop struct{}

// LogCall does nothing.
func (Nop) LogCall(string, int) {}

// Ledger counts calls and estimated spend per service. It is safe for
// concurrent use; counters only grow.
type Ledger struct {
	mu    sync.Mutex
	costs map[string]float64
	calls map[string]int
	spend map[string]float64
	start time.Time
	now   func() time.Time
}

// NewLedger starts a session. Overrides replace or extend DefaultCosts.
func NewLedger(overrides map[string]float64) *Ledger {
	costs := make(map[string]float64, len(DefaultCosts)+len(overrides))
	for k, v := range DefaultCosts {
		costs[k] = v
	}
	for k, v := range overrides {
		costs[k] = v
	}
	return &Ledger{
		costs: costs,
		calls: make(map[string]int),
		spend: make(map[string]float64),
		start: time.Now(),
		now:   time.Now,
	}
}

// LogCall records count calls to service. Unknown services cost nothing.
func (l *Ledger) LogCall(service string, count int) {
	if count <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[service] += count
	l.spend[service] += l.costs[service] * float64(count)
}

// TotalCalls returns the number of calls across services.
func (l *Ledger) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, n := range l.calls {
		total += n
	}
	return total
}

// TotalSpend returns the estimated spend across services in USD.
func (l *Ledger) TotalSpend() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0.0
	for _, v := range l.spend {
		total += v
	}
	return total
}

// Snapshot returns a copy of the per-service entries, unrounded.
func (l *Ledger) Snapshot() map[string]domain.CostEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]domain.CostEntry, len(l.calls))
	for svc, n := range l.calls {
		out[svc] = domain.CostEntry{Calls: n, EstimatedCostUSD: l.spend[svc]}
	}
	return out
}

// Summary reports the session so far. Duration is rounded to 0.1s and costs
// to four decimals.
func (l *Ledger) Summary() domain.CostSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := domain.CostSummary{
		SessionDurationS: round(l.now().Sub(l.start).Seconds(), 1),
		ByService:        make(map[string]domain.CostEntry, len(l.calls)),
	}
	total := 0.0
	for svc, n := range l.calls {
		s.TotalAPICalls += n
		total += l.spend[svc]
		s.ByService[svc] = domain.CostEntry{
			Calls:            n,
			EstimatedCostUSD: round(l.spend[svc], 4),
		}
	}
	s.EstimatedTotalCostUSD = round(total, 4)
	return s
}

// LogSummary writes the summary to the log, one line per service.
func (l *Ledger) LogSummary() {
	s := l.Summary()
	logger.Info("cost summary",
		"total_api_calls", s.TotalAPICalls,
		"estimated_total_cost_usd", s.EstimatedTotalCostUSD,
		"session_duration_s", s.SessionDurationS,
	)
	services := make([]string, 0, len(s.ByService))
	for svc := range s.ByService {
		services = append(services, svc)
	}
	sort.Strings(services)
	for _, svc := range services {
		e := s.ByService[svc]
		logger.Info("cost by service", "service", svc, "calls", e.Calls, "estimated_cost_usd", e.EstimatedCostUSD)
	}
}

// Sink persists session summaries.
type Sink interface {
	Append(ctx context.Context, entry domain.CostLogEntry) error
}

// Save appends the current summary, stamped with the current UTC time, to sink.
func (l *Ledger) Save(ctx context.Context, sink Sink) error {
	entry := domain.CostLogEntry{
		Timestamp:   l.now().UTC(),
		CostSummary: l.Summary(),
	}
	return sink.Append(ctx, entry)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
