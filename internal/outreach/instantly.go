// Package outreach pushes cleared leads into Instantly campaigns and reads
// campaign analytics back.
package outreach

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
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

var log = logger.Named("outreach")

// Client is an Instantly v1 API client.
type Client struct {
	baseURL    string
	apiKey     string
	campaignID string
	httpClient policy.HTTPDoer
}

// NewClient creates an Instantly client. campaignID is used when a call
// passes an empty campaign id.
func NewClient(baseURL, apiKey, campaignID string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.instantly.ai/api/v1"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		campaignID: campaignID,
		httpClient: policy.NewHTTPClient(timeout),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client policy.HTTPDoer) {
	c.httpClient = client
}

// CampaignID returns the default campaign.
func (c *Client) CampaignID() string { return c.campaignID }

// LeadPayload is one lead in an add request.
type LeadPayload struct {
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	CompanyName     string          `json:"company_name"`
	Personalization string          `json:"personalization"`
	Website         string          `json:"website"`
	CustomVariables CustomVariables `json:"custom_variables"`
}

// CustomVariables are the template variables attached to a lead.
type CustomVariables struct {
	PainPoint      string `json:"pain_point"`
	Industry       string `json:"industry"`
	SpecificDetail string `json:"specific_detail"`
}

type addLeadsRequest struct {
	APIKey            string        `json:"api_key"`
	CampaignID        string        `json:"campaign_id"`
	SkipIfInWorkspace bool          `json:"skip_if_in_workspace"`
	Leads             []LeadPayload `json:"leads"`
}

// AddResult is Instantly's answer to an add request.
type AddResult struct {
	Status            string `json:"status"`
	LeadsUploaded     int    `json:"leads_uploaded"`
	AlreadyInCampaign int    `json:"already_in_campaign"`
	SkippedCount      int    `json:"skipped_count"`
	InvalidEmailCount int    `json:"invalid_email_count"`
}

// Campaign is an entry in the campaign list.
type Campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CampaignSummary holds the analytics counters used for health checks.
type CampaignSummary struct {
	CampaignID   string `json:"campaign_id"`
	Sent         int    `json:"sent"`
	Opened       int    `json:"opened"`
	Replied      int    `json:"replied"`
	Bounced      int    `json:"bounced"`
	Unsubscribed int    `json:"unsubscribed"`
}

// Health converts the summary into a snapshot for campaignID.
func (s CampaignSummary) Health(campaignID string) domain.CampaignHealth {
	return domain.CampaignHealth{
		CampaignID:        campaignID,
		TotalSent:         s.Sent,
		TotalOpened:       s.Opened,
		TotalReplied:      s.Replied,
		TotalBounced:      s.Bounced,
		TotalUnsubscribed: s.Unsubscribed,
	}
}

// PayloadFor maps a lead onto Instantly's lead fields.
func PayloadFor(l domain.Lead) LeadPayload {
	return LeadPayload{
		Email:           l.Email,
		FirstName:       l.FirstName,
		LastName:        l.LastName,
		CompanyName:     l.BusinessName,
		Personalization: l.AIFirstLine,
		Website:         l.Website,
		CustomVariables: CustomVariables{
			PainPoint:      l.PainPoint,
			Industry:       l.Category,
			SpecificDetail: l.SpecificDetail,
		},
	}
}

// AddLead adds a single lead to a campaign.
func (c *Client) AddLead(ctx context.Context, campaignID string, lead domain.Lead) (AddResult, error) {
	return c.AddLeadsBatch(ctx, campaignID, []domain.Lead{lead})
}

// AddLeadsBatch adds leads in one request. Leads already in the workspace
// are skipped by Instantly.
func (c *Client) AddLeadsBatch(ctx context.Context, campaignID string, leads []domain.Lead) (AddResult, error) {
	cid := c.campaign(campaignID)
	payload := addLeadsRequest{
		APIKey:            c.apiKey,
		CampaignID:        cid,
		SkipIfInWorkspace: true,
		Leads:             make([]LeadPayload, 0, len(leads)),
	}
	for _, l := range leads {
		payload.Leads = append(payload.Leads, PayloadFor(l))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return AddResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lead/add", bytes.NewReader(body))
	if err != nil {
		return AddResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result AddResult
	if err := c.do(req, "instantly add leads", &result); err != nil {
		return AddResult{}, err
	}
	log.Info("added leads to campaign", "count", len(leads), "campaign_id", cid)
	return result, nil
}

// ListCampaigns lists the workspace's campaigns.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	endpoint := c.baseURL + "/campaign/list?" + url.Values{"api_key": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var campaigns []Campaign
	if err := c.do(req, "instantly list campaigns", &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// GetCampaignSummary fetches the analytics summary for a campaign.
func (c *Client) GetCampaignSummary(ctx context.Context, campaignID string) (CampaignSummary, error) {
	params := url.Values{"api_key": {c.apiKey}, "campaign_id": {c.campaign(campaignID)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/analytics/campaign/summary?"+params.Encode(), nil)
	if err != nil {
		return CampaignSummary{}, fmt.Errorf("failed to create request: %w", err)
	}
	var summary CampaignSummary
	if err := c.do(req, "instantly campaign summary", &summary); err != nil {
		return CampaignSummary{}, err
	}
	return summary, nil
}

func (c *Client) campaign(id string) string {
	if id == "" {
		return c.campaignID
	}
	return id
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
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
