// Package enrichment fills in and verifies lead emails by querying providers
// in priority order until one returns a usable address.
package enrichment

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
	"github.com/Aviral2610/Lead-gen/internal/pkg/validate"
)

var log = logger.Named("enrichment")

// DomainSearcher finds an email address for a company domain. An empty
// result with a nil error means the provider has nothing for the domain.
type DomainSearcher interface {
	Source() domain.EnrichmentSource
	Search(ctx context.Context, domain string) (string, error)
}

// Verifier reports a deliverability verdict for an address. Only the exact
// verdict "valid" counts as verified.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, email string) (string, error)
}

// Engine runs the enrichment waterfall.
type Engine struct {
	searchers []DomainSearcher
	verifier  Verifier
	policy    *policy.Policy
	ledger    cost.Recorder
}

// NewEngine builds an engine that tries searchers in the given order. Every
// provider call goes through p. A nil ledger discards cost records.
func NewEngine(p *policy.Policy, verifier Verifier, ledger cost.Recorder, searchers ...DomainSearcher) *Engine {
	if ledger == nil {
		ledger = cost.Nop{}
	}
	return &Engine{
		searchers: searchers,
		verifier:  verifier,
		policy:    p,
		ledger:    ledger,
	}
}

// Enrich sets the lead's email and EnrichmentSource. A valid existing email
// short-circuits the chain. Provider failures are logged and the chain moves on.
func (e *Engine) Enrich(ctx context.Context, lead domain.Lead) domain.Lead {
	if validate.IsValidEmail(lead.Email) {
		lead.Email = validate.SanitizeEmail(lead.Email)
		lead.EnrichmentSource = domain.SourceScraped
		return lead
	}

	d := validate.Domain(lead.Website)
	if d == "" {
		lead.EnrichmentSource = domain.SourceNone
		return lead
	}

	for _, s := range e.searchers {
		op := string(s.Source()) + "_search"
		found, err := policy.Do(ctx, e.policy, op, func(ctx context.Context) (string, error) {
			e.ledger.LogCall(op, 1)
			return s.Search(ctx, d)
		})
		if err != nil {
			log.Warn("provider lookup failed", "provider", s.Source(), "domain", d, "error", err)
			continue
		}
		if email := validate.SanitizeEmail(found); email != "" {
			lead.Email = email
			lead.EnrichmentSource = s.Source()
			return lead
		}
	}

	lead.EnrichmentSource = domain.SourceNone
	return lead
}

// Verify asks the verifier about email. Invalid addresses return false
// without a call.
func (e *Engine) Verify(ctx context.Context, email string) (bool, error) {
	email = validate.SanitizeEmail(email)
	if email == "" || e.verifier == nil {
		return false, nil
	}
	op := e.verifier.Name() + "_verify"
	result, err := policy.Do(ctx, e.policy, op, func(ctx context.Context) (string, error) {
		e.ledger.LogCall(op, 1)
		return e.verifier.Verify(ctx, email)
	})
	if err != nil {
		return false, err
	}
	if result != "valid" {
		log.Info("email verification result", "email", email, "result", result)
		return false, nil
	}
	return true, nil
}

// EnrichAndVerify runs the waterfall and then verification. EmailVerified is
// true only when the address is well formed and the verifier said "valid".
// The returned error is a verification failure; the lead is still usable
// and marked unverified.
func (e *Engine) EnrichAndVerify(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	lead = e.Enrich(ctx, lead)
	lead.EmailVerified = false
	if !validate.IsValidEmail(lead.Email) {
		return lead, nil
	}
	ok, err := e.Verify(ctx, lead.Email)
	if err != nil {
		log.Warn("email verification failed", "business_name", lead.DisplayName(), "email", lead.Email, "error", err)
		return lead, err
	}
	lead.EmailVerified = ok
	return lead, nil
}

// BatchReport accounts for every lead in a batch.
type BatchReport struct {
	Input    int `json:"input"`
	Verified int `json:"verified"`
	Dropped  int `json:"dropped"`
	Failed   int `json:"failed"`
}

func (r *BatchReport) add(o BatchReport) {
	r.Input += o.Input
	r.Verified += o.Verified
	r.Dropped += o.Dropped
	r.Failed += o.Failed
}

// ProcessBatch enriches and verifies leads one at a time and returns only
// the verified ones, in input order. Each dropped lead is logged by name.
// Cancelling ctx stops the batch between leads; the rest count as failed.
func (e *Engine) ProcessBatch(ctx context.Context, leads []domain.Lead) ([]domain.Lead, BatchReport) {
	report := BatchReport{Input: len(leads)}
	verified := make([]domain.Lead, 0, len(leads))

	for i, lead := range leads {
		if err := ctx.Err(); err != nil {
			report.Failed += len(leads) - i
			log.Warn("enrichment batch cancelled", "remaining", len(leads)-i, "error", err)
			break
		}

		result, err := e.EnrichAndVerify(ctx, lead)
		switch {
		case err != nil:
			report.Failed++
			log.Info("dropped lead: verification failed", "business_name", result.DisplayName())
		case result.EmailVerified:
			report.Verified++
			verified = append(verified, result)
		default:
			report.Dropped++
			log.Info("dropped lead: email not verified", "business_name", result.DisplayName())
		}
	}

	log.Info("enrichment batch complete",
		"verified", report.Verified,
		"input", report.Input,
		"dropped", report.Dropped,
		"failed", report.Failed,
	)
	return verified, report
}

// ProcessBatchParallel splits leads into contiguous chunks, one per worker,
// and runs ProcessBatch on each. Workers share the engine's policy, so the
// per-operation spacing still holds. Output order equals input order.
// Lead-level failures are counted in the report; only cancellation of ctx
// interrupts the chunks, and unprocessed leads then count as failed.
func (e *Engine) ProcessBatchParallel(ctx context.Context, leads []domain.Lead, workers int) ([]domain.Lead, BatchReport) {
	if workers <= 1 || len(leads) <= 1 {
		return e.ProcessBatch(ctx, leads)
	}
	if workers > len(leads) {
		workers = len(leads)
	}

	chunk := (len(leads) + workers - 1) / workers
	type part struct {
		leads  []domain.Lead
		report BatchReport
	}
	parts := make([]part, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= len(leads) {
			break
		}
		end := start + chunk
		if end > len(leads) {
			end = len(leads)
		}
		batch := leads[start:end]
		g.Go(func() error {
			out, rep := e.ProcessBatch(gctx, batch)
			parts[w] = part{leads: out, report: rep}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("parallel enrichment interrupted", "workers", workers, "error", err)
	}

	var (
		verified []domain.Lead
		report   BatchReport
	)
	for _, p := range parts {
		verified = append(verified, p.leads...)
		report.add(p.report)
	}
	return verified, report
}

// Summary formats the report for the CLI.
func (r BatchReport) Summary() string {
	return fmt.Sprintf("verified %d/%d, dropped %d, failed %d", r.Verified, r.Input, r.Dropped, r.Failed)
}
