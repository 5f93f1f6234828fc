package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

// ProspeoClient talks to Prospeo's domain search and email verifier.
type ProspeoClient struct {
	baseURL    string
	apiKey     string
	httpClient policy.HTTPDoer
}

// NewProspeoClient creates a Prospeo client.
func NewProspeoClient(baseURL, apiKey string, timeout time.Duration) *ProspeoClient {
	if baseURL == "" {
		baseURL = "https://api.prospeo.io"
	}
	return &ProspeoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: policy.NewHTTPClient(timeout),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *ProspeoClient) SetHTTPClient(client policy.HTTPDoer) {
	c.httpClient = client
}

// Source implements DomainSearcher.
func (c *ProspeoClient) Source() domain.EnrichmentSource { return domain.SourceProspeo }

// Name implements Verifier.
func (c *ProspeoClient) Name() string { return "prospeo" }

// Search returns the first email Prospeo knows for domain, or "".
func (c *ProspeoClient) Search(ctx context.Context, d string) (string, error) {
	body, err := json.Marshal(map[string]string{"domain": d})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/domain-search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", policy.WrapTransport("prospeo search", err)
	}
	data, err := policy.ReadResponse("prospeo search", resp)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Response struct {
			Emails []struct {
				Email string `json:"email"`
			} `json:"emails"`
		} `json:"response"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Warn("unparsable prospeo search response", "domain", d, "error", err)
		return "", nil
	}
	if len(parsed.Response.Emails) == 0 {
		return "", nil
	}
	return parsed.Response.Emails[0].Email, nil
}

// Verify returns Prospeo's verdict for email ("valid", "invalid", "risky", ...).
func (c *ProspeoClient) Verify(ctx context.Context, email string) (string, error) {
	endpoint := c.baseURL + "/email-verifier?" + url.Values{"email": {email}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", policy.WrapTransport("prospeo verify", err)
	}
	data, err := policy.ReadResponse("prospeo verify", resp)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Response struct {
			Result string `json:"result"`
		} `json:"response"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Warn("unparsable prospeo verify response", "email", email, "error", err)
		return "", nil
	}
	return parsed.Response.Result, nil
}

// HunterClient talks to Hunter.io's domain search.
type HunterClient struct {
	baseURL    string
	apiKey     string
	httpClient policy.HTTPDoer
}

// NewHunterClient creates a Hunter client.
func NewHunterClient(baseURL, apiKey string, timeout time.Duration) *HunterClient {
	if baseURL == "" {
		baseURL = "https://api.hunter.io"
	}
	return &HunterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: policy.NewHTTPClient(timeout),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *HunterClient) SetHTTPClient(client policy.HTTPDoer) {
	c.httpClient = client
}

// Source implements DomainSearcher.
func (c *HunterClient) Source() domain.EnrichmentSource { return domain.SourceHunter }

// Search returns the first email Hunter knows for domain, or "".
func (c *HunterClient) Search(ctx context.Context, d string) (string, error) {
	params := url.Values{"domain": {d}, "api_key": {c.apiKey}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/domain-search?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", policy.WrapTransport("hunter search", err)
	}
	data, err := policy.ReadResponse("hunter search", resp)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Data struct {
			Emails []struct {
				Value string `json:"value"`
			} `json:"emails"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Warn("unparsable hunter search response", "domain", d, "error", err)
		return "", nil
	}
	if len(parsed.Data.Emails) == 0 {
		return "", nil
	}
	return parsed.Data.Emails[0].Value, nil
}
