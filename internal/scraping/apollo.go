package scraping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

const opApolloSearch = "apollo_search"

// ApolloClient searches Apollo.io for decision makers.
type ApolloClient struct {
	baseURL    string
	apiKey     string
	httpClient policy.HTTPDoer
	policy     *policy.Policy
}

// NewApolloClient creates a client. Every search goes through p.
func NewApolloClient(baseURL, apiKey string, timeout time.Duration, p *policy.Policy) *ApolloClient {
	if baseURL == "" {
		baseURL = "https://api.apollo.io/v1"
	}
	return &ApolloClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: policy.NewHTTPClient(timeout),
		policy:     p,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *ApolloClient) SetHTTPClient(client policy.HTTPDoer) {
	c.httpClient = client
}

// PeopleQuery is an ideal-customer-profile search.
type PeopleQuery struct {
	Titles         []string
	Locations      []string
	EmployeeRanges []string
	IndustryIDs    []string
	Page           int
	PerPage        int
}

type apolloRequest struct {
	APIKey          string   `json:"api_key"`
	PersonTitles    []string `json:"person_titles"`
	Page            int      `json:"page"`
	PerPage         int      `json:"per_page"`
	PersonLocations []string `json:"person_locations,omitempty"`
	EmployeeRanges  []string `json:"organization_num_employees_ranges,omitempty"`
	IndustryTagIDs  []string `json:"organization_industry_tag_ids,omitempty"`
}

// ApolloPerson is the subset of a people search result the pipeline reads.
type ApolloPerson struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Title        string `json:"title"`
	PhoneNumber  string `json:"phone_number"`
	City         string `json:"city"`
	Organization *struct {
		Name                  string `json:"name"`
		WebsiteURL            string `json:"website_url"`
		Industry              string `json:"industry"`
		EstimatedNumEmployees *int   `json:"estimated_num_employees"`
	} `json:"organization"`
}

// Lead maps the person onto a Lead.
func (p ApolloPerson) Lead() domain.Lead {
	l := domain.Lead{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Title:     p.Title,
		Phone:     p.PhoneNumber,
		City:      p.City,
	}
	if org := p.Organization; org != nil {
		l.BusinessName = org.Name
		l.Website = org.WebsiteURL
		l.Category = org.Industry
		l.EmployeeCount = org.EstimatedNumEmployees
	}
	return l
}

// SearchPeople runs one page of a people search.
func (c *ApolloClient) SearchPeople(ctx context.Context, q PeopleQuery) ([]domain.Lead, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = 25
	}
	body, err := json.Marshal(apolloRequest{
		APIKey:          c.apiKey,
		PersonTitles:    q.Titles,
		Page:            q.Page,
		PerPage:         q.PerPage,
		PersonLocations: q.Locations,
		EmployeeRanges:  q.EmployeeRanges,
		IndustryTagIDs:  q.IndustryIDs,
	})
	if err != nil {
		return nil, err
	}

	people, err := policy.Do(ctx, c.policy, opApolloSearch, func(ctx context.Context) ([]ApolloPerson, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mixed_people/search", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, policy.WrapTransport("apollo search", err)
		}
		data, err := policy.ReadResponse("apollo search", resp)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			People []ApolloPerson `json:"people"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("apollo search: failed to parse response: %w", err)
		}
		return parsed.People, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("apollo search returned results", "count", len(people), "page", q.Page)
	leads := make([]domain.Lead, len(people))
	for i, p := range people {
		leads[i] = p.Lead()
	}
	return leads, nil
}

// ApolloSource adapts people search to the pipeline's lead source. Each
// query is used as a person location on top of the base query.
type ApolloSource struct {
	Client *ApolloClient
	Base   PeopleQuery
}

// Scrape runs one search per query and drops people without an email.
func (s ApolloSource) Scrape(ctx context.Context, queries []string) ([]domain.Lead, error) {
	var leads []domain.Lead
	for _, q := range queries {
		pq := s.Base
		pq.Locations = append(append([]string(nil), s.Base.Locations...), q)
		found, err := s.Client.SearchPeople(ctx, pq)
		if err != nil {
			return leads, fmt.Errorf("apollo search %q: %w", q, err)
		}
		for _, l := range found {
			if l.Email != "" {
				leads = append(leads, l)
			}
		}
	}
	log.Info("apollo search complete", "queries", len(queries), "leads", len(leads))
	return leads, nil
}
