package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
	"github.com/Aviral2610/Lead-gen/internal/suppression"
)

// instantlyStub records every /lead/add request.
type instantlyStub struct {
	mu       sync.Mutex
	requests []addLeadsRequest
	failures int // respond 503 this many times first
}

func (s *instantlyStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lead/add":
			var req addLeadsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			s.mu.Lock()
			s.requests = append(s.requests, req)
			fail := s.failures > 0
			if fail {
				s.failures--
			}
			s.mu.Unlock()
			if fail {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprintf(w, `{"status":"success","leads_uploaded":%d,"already_in_campaign":0}`, len(req.Leads))
		case "/campaign/list":
			assert.Equal(t, "inst-key", r.URL.Query().Get("api_key"))
			w.Write([]byte(`[{"id":"c1","name":"Dentists"},{"id":"c2","name":"Plumbers"}]`))
		case "/analytics/campaign/summary":
			assert.Equal(t, "inst-key", r.URL.Query().Get("api_key"))
			assert.Equal(t, "c1", r.URL.Query().Get("campaign_id"))
			w.Write([]byte(`{"campaign_id":"c1","sent":1000,"opened":420,"replied":25,"bounced":50,"unsubscribed":3}`))
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestClient(t *testing.T, stub *instantlyStub) *Client {
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)
	return NewClient(server.URL, "inst-key", "c1", 5*time.Second)
}

func clearedBatch(t *testing.T, leads []domain.Lead, blocked ...string) suppression.Cleared {
	t.Helper()
	ctx := context.Background()
	gate, err := suppression.NewGate(ctx, suppression.NewFileStore(filepath.Join(t.TempDir(), "suppression.json")))
	require.NoError(t, err)
	for _, e := range blocked {
		_, err := gate.Add(ctx, e, domain.ReasonUnsubscribe, domain.SuppressionFromManual)
		require.NoError(t, err)
	}
	cleared, _ := gate.FilterLeads(leads)
	return cleared
}

func testPolicy() *policy.Policy {
	return policy.New(nil, policy.Settings{MaxRetries: 3, BaseDelay: time.Millisecond})
}

func TestAddLeadsBatch_Payload(t *testing.T) {
	stub := &instantlyStub{}
	c := newTestClient(t, stub)

	lead := domain.Lead{
		BusinessName:   "Acme Dental",
		FirstName:      "Jo",
		Email:          "jo@acme.com",
		Website:        "https://acme.com",
		Category:       "Dentist",
		PainPoint:      "no-shows",
		SpecificDetail: "new clinic",
		AIFirstLine:    "Congrats on the new clinic.",
	}
	res, err := c.AddLead(context.Background(), "", lead)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LeadsUploaded)

	require.Len(t, stub.requests, 1)
	req := stub.requests[0]
	assert.Equal(t, "inst-key", req.APIKey)
	assert.Equal(t, "c1", req.CampaignID)
	assert.True(t, req.SkipIfInWorkspace)
	assert.Equal(t, LeadPayload{
		Email:           "jo@acme.com",
		FirstName:       "Jo",
		CompanyName:     "Acme Dental",
		Personalization: "Congrats on the new clinic.",
		Website:         "https://acme.com",
		CustomVariables: CustomVariables{PainPoint: "no-shows", Industry: "Dentist", SpecificDetail: "new clinic"},
	}, req.Leads[0])
}

func TestListCampaignsAndSummary(t *testing.T) {
	c := newTestClient(t, &instantlyStub{})

	campaigns, err := c.ListCampaigns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Campaign{{ID: "c1", Name: "Dentists"}, {ID: "c2", Name: "Plumbers"}}, campaigns)

	summary, err := c.GetCampaignSummary(context.Background(), "")
	require.NoError(t, err)
	h := summary.Health("c1")
	assert.Equal(t, 1000, h.TotalSent)
	assert.InDelta(t, 5.0, h.BounceRate(), 1e-9)
	assert.InDelta(t, 2.5, h.ReplyRate(), 1e-9)
}

func TestListCampaigns_ConnectionErrorHidesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	c := NewClient(baseURL, "inst-key-778899", "c1", 2*time.Second)
	_, err := c.ListCampaigns(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "inst-key-778899")

	_, err = c.GetCampaignSummary(context.Background(), "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "inst-key-778899")
	assert.Contains(t, err.Error(), "instantly campaign summary")
}

func TestGateway_RejectsUngatedBatch(t *testing.T) {
	stub := &instantlyStub{}
	g := NewGateway(newTestClient(t, stub), testPolicy(), nil, "", 10)

	_, err := g.Push(context.Background(), suppression.Cleared{})
	assert.ErrorIs(t, err, ErrNotCleared)
	assert.Empty(t, stub.requests)
}

func TestGateway_PushInChunks(t *testing.T) {
	stub := &instantlyStub{}
	ledger := cost.NewLedger(nil)
	g := NewGateway(newTestClient(t, stub), testPolicy(), ledger, "", 2)

	leads := []domain.Lead{
		{BusinessName: "A", Email: " A@One.com "},
		{BusinessName: "Blocked", Email: "blocked@x.com"},
		{BusinessName: "Bad", Email: "not-an-email"},
		{BusinessName: "B", Email: "b@two.com"},
		{BusinessName: "C", Email: "c@three.com"},
	}
	report, err := g.Push(context.Background(), clearedBatch(t, leads, "blocked@x.com"))
	require.NoError(t, err)

	assert.Equal(t, PushReport{Cleared: 4, InvalidEmail: 1, Pushed: 3, Uploaded: 3}, report)
	require.Len(t, stub.requests, 2)
	assert.Equal(t, "a@one.com", stub.requests[0].Leads[0].Email)
	assert.Len(t, stub.requests[0].Leads, 2)
	assert.Len(t, stub.requests[1].Leads, 1)
	for _, req := range stub.requests {
		for _, l := range req.Leads {
			assert.NotEqual(t, "blocked@x.com", l.Email)
		}
	}
	assert.Equal(t, 3, ledger.Summary().ByService[cost.InstantlyAdd].Calls)
}

func TestGateway_RetriesTransientFailures(t *testing.T) {
	stub := &instantlyStub{failures: 2}
	g := NewGateway(newTestClient(t, stub), testPolicy(), nil, "", 10)

	report, err := g.Push(context.Background(), clearedBatch(t, []domain.Lead{{Email: "a@one.com"}}))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Len(t, stub.requests, 3)
}

func TestGateway_ChunkFailureIsReported(t *testing.T) {
	stub := &instantlyStub{failures: 100}
	g := NewGateway(newTestClient(t, stub), policy.New(nil, policy.Settings{BaseDelay: time.Millisecond}), nil, "", 1)

	report, err := g.Push(context.Background(), clearedBatch(t, []domain.Lead{{Email: "a@one.com"}, {Email: "b@two.com"}}))
	require.Error(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 0, report.Pushed)
	assert.Equal(t, http.StatusServiceUnavailable, policy.StatusCode(err))
}
