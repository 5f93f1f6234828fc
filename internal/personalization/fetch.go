// Package personalization researches a prospect's website and writes the
// opening line of the cold email from what it found.
package personalization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
	"github.com/Aviral2610/Lead-gen/internal/pkg/validate"
)

var log = logger.Named("personalization")

// ErrUnsafeURL is returned for websites that point at private or internal hosts.
var ErrUnsafeURL = errors.New("refusing to fetch unsafe url")

// PageFetcher returns the readable text of a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	// CostService names the ledger entry for one fetch, or "" when free.
	CostService() string
}

// FirecrawlClient scrapes pages through the Firecrawl API and returns markdown.
type FirecrawlClient struct {
	baseURL    string
	apiKey     string
	httpClient policy.HTTPDoer
}

// NewFirecrawlClient creates a Firecrawl client.
func NewFirecrawlClient(baseURL, apiKey string, timeout time.Duration) *FirecrawlClient {
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}
	return &FirecrawlClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: policy.NewHTTPClient(timeout),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *FirecrawlClient) SetHTTPClient(client policy.HTTPDoer) {
	c.httpClient = client
}

// CostService implements PageFetcher.
func (c *FirecrawlClient) CostService() string { return cost.FirecrawlScrape }

type firecrawlRequest struct {
	URL         string `json:"url"`
	PageOptions struct {
		OnlyMainContent bool `json:"onlyMainContent"`
	} `json:"pageOptions"`
}

// Fetch scrapes the main content of url.
func (c *FirecrawlClient) Fetch(ctx context.Context, url string) (string, error) {
	payload := firecrawlRequest{URL: url}
	payload.PageOptions.OnlyMainContent = true
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v0/scrape", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", policy.WrapTransport("firecrawl scrape", err)
	}
	data, err := policy.ReadResponse("firecrawl scrape", resp)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Data struct {
			Markdown string `json:"markdown"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Warn("unparsable firecrawl response", "url", url, "error", err)
		return "", nil
	}
	log.Info("scraped website", "url", url, "chars", len(parsed.Data.Markdown))
	return parsed.Data.Markdown, nil
}

const userAgent = "Mozilla/5.0 (compatible; LeadgenResearcher/1.0)"

// DirectFetcher downloads a page itself and extracts its visible text. It
// refuses URLs that fail validate.IsValidURL.
type DirectFetcher struct {
	httpClient policy.HTTPDoer
}

const maxRedirects = 10

// NewDirectFetcher creates a fetcher with the given request timeout. Every
// redirect target is checked with validate.IsValidURL as well, and
// connections to internal addresses are refused after DNS resolution.
func NewDirectFetcher(timeout time.Duration) *DirectFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   refuseInternalDial,
	}).DialContext

	c := policy.NewHTTPClient(timeout)
	c.Transport = transport
	c.CheckRedirect = checkRedirect
	return &DirectFetcher{httpClient: c}
}

func refuseInternalDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip == nil || validate.IsInternalIP(ip) {
		return fmt.Errorf("%w: dial %s", ErrUnsafeURL, address)
	}
	return nil
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if !validate.IsValidURL(req.URL.String(), false) {
		return fmt.Errorf("%w: redirect to %s", ErrUnsafeURL, req.URL.Redacted())
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (f *DirectFetcher) SetHTTPClient(client policy.HTTPDoer) {
	f.httpClient = client
}

// CostService implements PageFetcher.
func (f *DirectFetcher) CostService() string { return "" }

// Fetch implements PageFetcher.
func (f *DirectFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if !validate.IsValidURL(url, false) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeURL, url)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", policy.WrapTransport("website fetch", err)
	}
	data, err := policy.ReadResponse("website fetch", resp)
	if err != nil {
		return "", err
	}

	text, err := ExtractText(data)
	if err != nil {
		log.Warn("unparsable website html", "url", url, "error", err)
		return "", nil
	}
	log.Info("fetched website", "url", url, "chars", len(text))
	return text, nil
}

// ExtractText returns the whitespace-collapsed text of an HTML document,
// preferring <main> or <article> over the whole body and skipping
// navigation, scripts and styles.
func ExtractText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, footer, iframe, svg").Remove()

	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("article").First()
	}
	if content.Length() == 0 {
		content = doc.Find("body")
	}
	return strings.Join(strings.Fields(content.Text()), " "), nil
}
