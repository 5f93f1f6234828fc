// Package scraping pulls raw prospect records from Google Maps (through an
// Apify actor) and from Apollo's people search.
package scraping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

var log = logger.Named("scraping")

// Apify run statuses.
const (
	RunSucceeded = "SUCCEEDED"
	RunFailed    = "FAILED"
	RunAborted   = "ABORTED"
	RunTimedOut  = "TIMED-OUT"
)

const opApifyFetch = "apify_fetch"

// GoogleMapsOptions configures the Google Places actor.
type GoogleMapsOptions struct {
	BaseURL           string
	Token             string
	ActorID           string
	MaxLeadsPerSearch int
	PollInterval      time.Duration
	MaxWait           time.Duration
	Timeout           time.Duration
}

// GoogleMapsScraper runs the Google Places actor and turns its dataset into leads.
type GoogleMapsScraper struct {
	opts       GoogleMapsOptions
	httpClient policy.HTTPDoer
	policy     *policy.Policy
	ledger     cost.Recorder
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewGoogleMapsScraper fills unset options with the public endpoint, the
// compass actor, 30s polling and a 10 minute limit.
func NewGoogleMapsScraper(opts GoogleMapsOptions, p *policy.Policy, ledger cost.Recorder) *GoogleMapsScraper {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.apify.com/v2"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.ActorID == "" {
		opts.ActorID = "compass~crawler-google-places"
	}
	if opts.MaxLeadsPerSearch <= 0 {
		opts.MaxLeadsPerSearch = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 10 * time.Minute
	}
	if ledger == nil {
		ledger = cost.Nop{}
	}
	return &GoogleMapsScraper{
		opts:       opts,
		httpClient: policy.NewHTTPClient(opts.Timeout),
		policy:     p,
		ledger:     ledger,
		sleep:      sleepContext,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (s *GoogleMapsScraper) SetHTTPClient(client policy.HTTPDoer) {
	s.httpClient = client
}

// RawPlace is the subset of a Google Places dataset item the pipeline reads.
type RawPlace struct {
	Title        string   `json:"title"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Website      string   `json:"website"`
	Address      string   `json:"address"`
	TotalScore   *float64 `json:"totalScore"`
	ReviewsCount *int     `json:"reviewsCount"`
	CategoryName string   `json:"categoryName"`
	City         string   `json:"city"`
	ContactInfo  *struct {
		Email string `json:"email"`
	} `json:"contactInfo"`
}

type runEnvelope struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// StartRun starts an actor run for queries and returns its id.
func (s *GoogleMapsScraper) StartRun(ctx context.Context, queries []string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"searchStringsArray":        queries,
		"maxCrawledPlacesPerSearch": s.opts.MaxLeadsPerSearch,
		"language":                  "en",
		"includeWebResults":         false,
		"scrapeContacts":            true,
		"scrapeReviews":             false,
	})
	if err != nil {
		return "", err
	}
	req, err := s.newRequest(ctx, http.MethodPost, "/acts/"+s.opts.ActorID+"/runs", body)
	if err != nil {
		return "", err
	}

	var run runEnvelope
	if err := s.do(req, "apify start run", &run); err != nil {
		return "", err
	}
	if run.Data.ID == "" {
		return "", fmt.Errorf("apify start run: response has no run id")
	}
	log.Info("apify run started", "run_id", run.Data.ID, "queries", len(queries))
	return run.Data.ID, nil
}

// WaitForCompletion polls the run until it finishes. It reports true only
// for SUCCEEDED; a failed, aborted or timed-out run, or one still going
// after MaxWait, reports false.
func (s *GoogleMapsScraper) WaitForCompletion(ctx context.Context, runID string) (bool, error) {
	for elapsed := time.Duration(0); elapsed < s.opts.MaxWait; elapsed += s.opts.PollInterval {
		req, err := s.newRequest(ctx, http.MethodGet, "/actor-runs/"+runID, nil)
		if err != nil {
			return false, err
		}
		var run runEnvelope
		if err := s.do(req, "apify run status", &run); err != nil {
			return false, err
		}

		switch run.Data.Status {
		case RunSucceeded:
			log.Info("apify run completed", "run_id", runID)
			return true, nil
		case RunFailed, RunAborted, RunTimedOut:
			log.Error("apify run ended", "run_id", runID, "status", run.Data.Status)
			return false, nil
		}

		if err := s.sleep(ctx, s.opts.PollInterval); err != nil {
			return false, err
		}
	}
	log.Error("apify run timed out", "run_id", runID, "max_wait", s.opts.MaxWait)
	return false, nil
}

// FetchResults downloads the run's dataset items. An empty runID reads the
// actor's last run.
func (s *GoogleMapsScraper) FetchResults(ctx context.Context, runID string) ([]RawPlace, error) {
	path := "/actor-runs/" + runID + "/dataset/items"
	if runID == "" {
		path = "/acts/" + s.opts.ActorID + "/runs/last/dataset/items"
	}
	return policy.Do(ctx, s.policy, opApifyFetch, func(ctx context.Context) ([]RawPlace, error) {
		req, err := s.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		var items []RawPlace
		if err := s.do(req, "apify dataset items", &items); err != nil {
			return nil, err
		}
		return items, nil
	})
}

// CleanLead maps a dataset item onto a Lead. The contactInfo email is used
// when the top-level email is empty.
func CleanLead(raw RawPlace) domain.Lead {
	email := raw.Email
	if email == "" && raw.ContactInfo != nil {
		email = raw.ContactInfo.Email
	}
	return domain.Lead{
		BusinessName: raw.Title,
		Email:        email,
		Phone:        raw.Phone,
		Website:      raw.Website,
		Address:      raw.Address,
		Rating:       raw.TotalScore,
		ReviewCount:  raw.ReviewsCount,
		Category:     raw.CategoryName,
		City:         raw.City,
	}
}

// Scrape runs the actor for queries and returns leads that have an email,
// de-duplicated case-insensitively by email in first-seen order. A run that
// does not succeed yields no leads and no error.
func (s *GoogleMapsScraper) Scrape(ctx context.Context, queries []string) ([]domain.Lead, error) {
	runID, err := s.StartRun(ctx, queries)
	if err != nil {
		return nil, err
	}
	ok, err := s.WaitForCompletion(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	items, err := s.FetchResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	s.ledger.LogCall(cost.ApifyGMaps, len(items))
	log.Info("fetched apify items", "count", len(items))

	seen := make(map[string]struct{}, len(items))
	leads := make([]domain.Lead, 0, len(items))
	withEmail := 0
	for _, item := range items {
		lead := CleanLead(item)
		if lead.Email == "" {
			continue
		}
		withEmail++
		key := strings.ToLower(lead.Email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		leads = append(leads, lead)
	}
	log.Info("apify leads cleaned", "with_email", withEmail, "unique", len(leads))
	return leads, nil
}

func (s *GoogleMapsScraper) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, s.opts.BaseURL+path, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, s.opts.BaseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (s *GoogleMapsScraper) do(req *http.Request, op string, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return policy.WrapTransport(op, err)
	}
	data, err := policy.ReadResponse(op, resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", op, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
