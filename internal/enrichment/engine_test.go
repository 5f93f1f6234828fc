package enrichment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type stubSearcher struct {
	source  domain.EnrichmentSource
	mu      sync.Mutex
	results map[string]string
	errs    map[string]error
	calls   []string
}

func (s *stubSearcher) Source() domain.EnrichmentSource { return s.source }

func (s *stubSearcher) Search(_ context.Context, d string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	if err := s.errs[d]; err != nil {
		return "", err
	}
	return s.results[d], nil
}

func (s *stubSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubVerifier struct {
	mu      sync.Mutex
	results map[string]string
	err     error
	calls   []string
}

func (v *stubVerifier) Name() string { return "prospeo" }

func (v *stubVerifier) Verify(_ context.Context, email string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, email)
	if v.err != nil {
		return "", v.err
	}
	if r, ok := v.results[email]; ok {
		return r, nil
	}
	return "valid", nil
}

func testPolicy() *policy.Policy {
	return policy.New(nil, policy.Settings{MaxRetries: 2, BaseDelay: time.Millisecond})
}

func newTestEngine() (*Engine, *stubSearcher, *stubSearcher, *stubVerifier, *cost.Ledger) {
	prospeo := &stubSearcher{source: domain.SourceProspeo, results: map[string]string{}, errs: map[string]error{}}
	hunter := &stubSearcher{source: domain.SourceHunter, results: map[string]string{}, errs: map[string]error{}}
	verifier := &stubVerifier{results: map[string]string{}}
	ledger := cost.NewLedger(nil)
	return NewEngine(testPolicy(), verifier, ledger, prospeo, hunter), prospeo, hunter, verifier, ledger
}

// =============================================================================
// WATERFALL
// =============================================================================

func TestEnrich_ScrapedEmailShortCircuits(t *testing.T) {
	e, prospeo, hunter, _, _ := newTestEngine()
	in := domain.Lead{BusinessName: "Acme", Email: " Owner@Acme.com ", Website: "https://acme.com"}

	first := e.Enrich(context.Background(), in)
	second := e.Enrich(context.Background(), first)

	assert.Equal(t, domain.SourceScraped, first.EnrichmentSource)
	assert.Equal(t, "owner@acme.com", first.Email)
	assert.Equal(t, first, second)
	assert.Zero(t, prospeo.callCount())
	assert.Zero(t, hunter.callCount())
}

func TestEnrich_NoWebsite(t *testing.T) {
	e, prospeo, _, _, _ := newTestEngine()
	out := e.Enrich(context.Background(), domain.Lead{BusinessName: "Acme", Email: "not-an-email"})
	assert.Equal(t, domain.SourceNone, out.EnrichmentSource)
	assert.Zero(t, prospeo.callCount())
}

func TestEnrich_DomainExtraction(t *testing.T) {
	e, prospeo, _, _, _ := newTestEngine()
	prospeo.results["acme.com"] = "info@acme.com"

	out := e.Enrich(context.Background(), domain.Lead{Website: "https://acme.com/contact/us"})
	assert.Equal(t, []string{"acme.com"}, prospeo.calls)
	assert.Equal(t, domain.SourceProspeo, out.EnrichmentSource)
	assert.Equal(t, "info@acme.com", out.Email)
}

func TestEnrich_FallsBackToSecondProviderOnError(t *testing.T) {
	e, prospeo, hunter, _, ledger := newTestEngine()
	prospeo.errs["acme.com"] = &policy.StatusError{StatusCode: http.StatusUnauthorized}
	hunter.results["acme.com"] = "Sales@Acme.com"

	out := e.Enrich(context.Background(), domain.Lead{Website: "acme.com"})
	assert.Equal(t, domain.SourceHunter, out.EnrichmentSource)
	assert.Equal(t, "sales@acme.com", out.Email)
	assert.Equal(t, 1, prospeo.callCount())

	s := ledger.Summary()
	assert.Equal(t, 1, s.ByService[cost.ProspeoSearch].Calls)
	assert.Equal(t, 1, s.ByService[cost.HunterSearch].Calls)
}

func TestEnrich_RetriesTransientErrorsBeforeFallingBack(t *testing.T) {
	e, prospeo, hunter, _, _ := newTestEngine()
	prospeo.errs["acme.com"] = &policy.StatusError{StatusCode: http.StatusServiceUnavailable}
	hunter.results["acme.com"] = "sales@acme.com"

	out := e.Enrich(context.Background(), domain.Lead{Website: "acme.com"})
	assert.Equal(t, 3, prospeo.callCount())
	assert.Equal(t, domain.SourceHunter, out.EnrichmentSource)
}

func TestEnrich_InvalidCandidateIsNoResult(t *testing.T) {
	e, prospeo, hunter, _, _ := newTestEngine()
	prospeo.results["acme.com"] = "info@"
	hunter.results["acme.com"] = ""

	out := e.Enrich(context.Background(), domain.Lead{Website: "acme.com"})
	assert.Equal(t, domain.SourceNone, out.EnrichmentSource)
	assert.Equal(t, 1, hunter.callCount())
}

func TestEnrich_SkipsSecondProviderWhenFirstSucceeds(t *testing.T) {
	e, prospeo, hunter, _, _ := newTestEngine()
	prospeo.results["acme.com"] = "info@acme.com"

	e.Enrich(context.Background(), domain.Lead{Website: "acme.com"})
	assert.Equal(t, 1, prospeo.callCount())
	assert.Zero(t, hunter.callCount())
}

// =============================================================================
// VERIFICATION
// =============================================================================

func TestEnrichAndVerify_OnlyValidCounts(t *testing.T) {
	e, _, _, verifier, _ := newTestEngine()
	verifier.results["risky@acme.com"] = "risky"
	verifier.results["unknown@acme.com"] = "unknown"
	verifier.results["upper@acme.com"] = "VALID"

	for _, email := range []string{"risky@acme.com", "unknown@acme.com", "upper@acme.com"} {
		out, err := e.EnrichAndVerify(context.Background(), domain.Lead{Email: email})
		require.NoError(t, err)
		assert.False(t, out.EmailVerified, email)
	}

	out, err := e.EnrichAndVerify(context.Background(), domain.Lead{Email: "good@acme.com"})
	require.NoError(t, err)
	assert.True(t, out.EmailVerified)
}

func TestEnrichAndVerify_NoEmailSkipsVerification(t *testing.T) {
	e, _, _, verifier, _ := newTestEngine()
	out, err := e.EnrichAndVerify(context.Background(), domain.Lead{BusinessName: "No site", EmailVerified: true})
	require.NoError(t, err)
	assert.False(t, out.EmailVerified)
	assert.Empty(t, verifier.calls)
}

func TestEnrichAndVerify_VerifierError(t *testing.T) {
	e, _, _, verifier, _ := newTestEngine()
	verifier.err = errors.New("malformed")

	out, err := e.EnrichAndVerify(context.Background(), domain.Lead{Email: "a@acme.com"})
	require.Error(t, err)
	assert.False(t, out.EmailVerified)
}

// =============================================================================
// BATCHES
// =============================================================================

func batchLeads(n int) []domain.Lead {
	leads := make([]domain.Lead, n)
	for i := range leads {
		leads[i] = domain.Lead{
			BusinessName: fmt.Sprintf("Biz %d", i),
			Email:        fmt.Sprintf("owner%d@biz%d.com", i, i),
		}
	}
	return leads
}

func TestProcessBatch_ReturnsOnlyVerifiedInOrder(t *testing.T) {
	e, _, _, verifier, _ := newTestEngine()
	leads := batchLeads(6)
	verifier.results["owner1@biz1.com"] = "invalid"
	verifier.results["owner4@biz4.com"] = "risky"
	leads = append(leads, domain.Lead{BusinessName: "No contact"})

	out, report := e.ProcessBatch(context.Background(), leads)

	var names []string
	for _, l := range out {
		assert.True(t, l.EmailVerified)
		names = append(names, l.BusinessName)
	}
	assert.Equal(t, []string{"Biz 0", "Biz 2", "Biz 3", "Biz 5"}, names)
	assert.Equal(t, BatchReport{Input: 7, Verified: 4, Dropped: 3}, report)
}

func TestProcessBatch_CountsVerificationFailures(t *testing.T) {
	e, _, _, verifier, _ := newTestEngine()
	verifier.err = errors.New("bad response")

	out, report := e.ProcessBatch(context.Background(), batchLeads(2))
	assert.Empty(t, out)
	assert.Equal(t, BatchReport{Input: 2, Failed: 2}, report)
}

func TestProcessBatch_StopsBetweenLeadsWhenCancelled(t *testing.T) {
	e, _, _, _, _ := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, report := e.ProcessBatch(ctx, batchLeads(3))
	assert.Empty(t, out)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, report.Input, report.Verified+report.Dropped+report.Failed)
}

func TestProcessBatchParallel_PreservesOrder(t *testing.T) {
	e, _, _, verifier, _ := newTestEngine()
	leads := batchLeads(23)
	verifier.results["owner7@biz7.com"] = "invalid"
	verifier.results["owner19@biz19.com"] = "invalid"

	out, report := e.ProcessBatchParallel(context.Background(), leads, 4)

	require.Len(t, out, 21)
	prev := -1
	for _, l := range out {
		var idx int
		_, err := fmt.Sscanf(l.BusinessName, "Biz %d", &idx)
		require.NoError(t, err)
		assert.Greater(t, idx, prev)
		prev = idx
	}
	assert.Equal(t, BatchReport{Input: 23, Verified: 21, Dropped: 2}, report)
	assert.Len(t, verifier.calls, 23)
}

func TestProcessBatchParallel_MoreWorkersThanLeads(t *testing.T) {
	e, _, _, _, _ := newTestEngine()
	out, report := e.ProcessBatchParallel(context.Background(), batchLeads(3), 10)
	assert.Len(t, out, 3)
	assert.Equal(t, 3, report.Input)
}

func TestProcessBatchParallel_CancelledContextAccountsForEveryLead(t *testing.T) {
	e, _, _, verifier, _ := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, report := e.ProcessBatchParallel(ctx, batchLeads(9), 3)
	assert.Empty(t, out)
	assert.Equal(t, BatchReport{Input: 9, Failed: 9}, report)
	assert.Empty(t, verifier.calls)
}

func TestBatchReportSummary(t *testing.T) {
	r := BatchReport{Input: 10, Verified: 7, Dropped: 2, Failed: 1}
	assert.Equal(t, "verified 7/10, dropped 2, failed 1", r.Summary())
}
