// Package pipeline runs a lead batch end to end: scrape, enrich and verify,
// research and personalize, filter through the suppression gate, save the
// results, and push what is left to the outreach campaign.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/enrichment"
	"github.com/Aviral2610/Lead-gen/internal/outreach"
	"github.com/Aviral2610/Lead-gen/internal/pkg/distlock"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/suppression"
)

var log = logger.Named("pipeline")

// DefaultOutputDir holds results files when no output path is given.
const DefaultOutputDir = "output"

// LeadSource produces raw leads for search queries.
type LeadSource interface {
	Scrape(ctx context.Context, queries []string) ([]domain.Lead, error)
}

// Enricher finds and verifies emails.
type Enricher interface {
	ProcessBatchParallel(ctx context.Context, leads []domain.Lead, workers int) ([]domain.Lead, enrichment.BatchReport)
}

// Researcher fills a lead's research fields from its website.
type Researcher interface {
	ResearchLead(ctx context.Context, lead *domain.Lead) error
}

// Personalizer writes a lead's first line.
type Personalizer interface {
	PersonalizeLead(ctx context.Context, lead *domain.Lead)
}

// Filter removes suppressed leads.
type Filter interface {
	FilterLeads(leads []domain.Lead) (suppression.Cleared, []domain.Lead)
}

// Pusher sends a cleared batch to the campaign.
type Pusher interface {
	Push(ctx context.Context, batch suppression.Cleared) (outreach.PushReport, error)
}

// Deps are the stages a Pipeline runs. Researcher, CostSink and Lock may be
// nil; Pusher may be nil only for runs that never push.
type Deps struct {
	Source       LeadSource
	Enricher     Enricher
	Researcher   Researcher
	Personalizer Personalizer
	Gate         Filter
	Pusher       Pusher
	Lock         distlock.DistLock
	Ledger       *cost.Ledger
	CostSink     cost.Sink
}

// Options control one run.
type Options struct {
	Queries      []string
	DryRun       bool
	SkipOutreach bool
	OutputPath   string
	Workers      int
}

// Report counts what each stage did.
type Report struct {
	RunID          string                 `json:"run_id"`
	Scraped        int                    `json:"scraped"`
	Enrichment     enrichment.BatchReport `json:"enrichment"`
	Researched     int                    `json:"researched"`
	ResearchFailed int                    `json:"research_failed"`
	Personalized   int                    `json:"personalized"`
	Suppressed     int                    `json:"suppressed"`
	Cleared        int                    `json:"cleared"`
	OutputPath     string                 `json:"output_path,omitempty"`
	Push           *outreach.PushReport   `json:"push,omitempty"`
	Costs          domain.CostSummary     `json:"costs"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	deps Deps
	now  func() time.Time
}

// New creates a Pipeline.
func New(deps Deps) *Pipeline {
	if deps.Ledger == nil {
		deps.Ledger = cost.NewLedger(nil)
	}
	return &Pipeline{deps: deps, now: time.Now}
}

// Run executes every stage. An empty scrape or an empty verified set ends
// the run early without error. Research failures are logged and skipped.
// The push runs under the campaign lock; its failure is logged and returned
// after the results file and cost summary are written.
func (p *Pipeline) Run(ctx context.Context, opts Options) (report Report, err error) {
	report.RunID = uuid.NewString()
	runLog := log.With("run_id", report.RunID)
	defer p.finish(ctx, &report)

	runLog.Info("stage 1: scraping", "queries", len(opts.Queries))
	leads, err := p.deps.Source.Scrape(ctx, opts.Queries)
	if err != nil {
		return report, fmt.Errorf("scrape: %w", err)
	}
	report.Scraped = len(leads)
	if len(leads) == 0 {
		runLog.Warn("no leads found, exiting")
		return report, nil
	}

	runLog.Info("stage 2: enrichment and verification", "leads", len(leads), "workers", opts.Workers)
	verified, batch := p.deps.Enricher.ProcessBatchParallel(ctx, leads, opts.Workers)
	report.Enrichment = batch
	if len(verified) == 0 {
		runLog.Warn("no verified leads, exiting")
		return report, nil
	}

	runLog.Info("stage 3: personalization", "leads", len(verified))
	p.personalize(ctx, verified, &report)

	cleared, suppressed := p.deps.Gate.FilterLeads(verified)
	report.Suppressed = len(suppressed)
	report.Cleared = cleared.Len()

	path, err := p.save(cleared.Leads(), opts.OutputPath)
	if err != nil {
		return report, err
	}
	report.OutputPath = path
	runLog.Info("results saved", "path", path, "leads", cleared.Len())

	switch {
	case opts.DryRun:
		runLog.Info("dry run, skipping outreach push")
		return report, nil
	case opts.SkipOutreach:
		runLog.Info("outreach push skipped by flag")
		return report, nil
	}

	runLog.Info("stage 4: pushing to outreach", "leads", cleared.Len())
	if err := p.push(ctx, cleared, &report); err != nil {
		runLog.Error("outreach push failed", "error", err)
		return report, fmt.Errorf("push: %w", err)
	}
	return report, nil
}

func (p *Pipeline) personalize(ctx context.Context, leads []domain.Lead, report *Report) {
	for i := range leads {
		lead := &leads[i]
		if p.deps.Researcher != nil && lead.Website != "" {
			if err := p.deps.Researcher.ResearchLead(ctx, lead); err != nil {
				report.ResearchFailed++
				log.Warn("research failed", "website", lead.Website, "error", err)
			} else {
				report.Researched++
			}
		}
		if p.deps.Personalizer != nil {
			p.deps.Personalizer.PersonalizeLead(ctx, lead)
		}
		if lead.AIFirstLine != "" {
			report.Personalized++
		}
	}
	log.Info("leads personalized", "personalized", report.Personalized, "total", len(leads))
}

func (p *Pipeline) push(ctx context.Context, cleared suppression.Cleared, report *Report) error {
	if p.deps.Pusher == nil {
		return errors.New("no outreach pusher configured")
	}
	run := func(ctx context.Context) error {
		res, err := p.deps.Pusher.Push(ctx, cleared)
		report.Push = &res
		return err
	}
	if p.deps.Lock == nil {
		return run(ctx)
	}
	return distlock.WithLock(ctx, p.deps.Lock, run)
}

// save writes leads as indented JSON. An empty path becomes
// output/pipeline_results_<UTC timestamp>.json.
func (p *Pipeline) save(leads []domain.Lead, path string) (string, error) {
	if path == "" {
		path = filepath.Join(DefaultOutputDir, fmt.Sprintf("pipeline_results_%s.json", p.now().UTC().Format("20060102_150405")))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	data, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return path, nil
}

func (p *Pipeline) finish(ctx context.Context, report *Report) {
	report.Costs = p.deps.Ledger.Summary()
	log.Info("pipeline complete",
		"run_id", report.RunID,
		"scraped", report.Scraped,
		"verified", report.Enrichment.Verified,
		"personalized", report.Personalized,
		"suppressed", report.Suppressed,
		"output", report.OutputPath,
	)
	p.deps.Ledger.LogSummary()
	if p.deps.CostSink != nil {
		if err := p.deps.Ledger.Save(context.WithoutCancel(ctx), p.deps.CostSink); err != nil {
			log.Error("failed to save cost log", "error", err)
		}
	}
}
