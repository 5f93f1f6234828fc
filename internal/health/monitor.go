package health

import (
	"context"
	"math"

	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/notify"
	"github.com/Aviral2610/Lead-gen/internal/outreach"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

var log = logger.Named("health")

const opSummary = "instantly_summary"

// SummaryFetcher reads campaign analytics.
type SummaryFetcher interface {
	GetCampaignSummary(ctx context.Context, campaignID string) (outreach.CampaignSummary, error)
}

// Report is one evaluation of a campaign.
type Report struct {
	Health  domain.CampaignHealth `json:"health"`
	Rates   domain.HealthRates    `json:"rates"`
	Alerts  []string              `json:"alerts"`
	Healthy bool                  `json:"healthy"`
}

// Monitor fetches snapshots and evaluates them.
type Monitor struct {
	fetcher       SummaryFetcher
	policy        *policy.Policy
	notifier      notify.Notifier
	maxBounceRate float64
	campaignID    string
}

// NewMonitor builds a monitor. campaignID is used when a call passes none;
// a nil notifier means alerts are only logged.
func NewMonitor(fetcher SummaryFetcher, p *policy.Policy, notifier notify.Notifier, maxBounceRate float64, campaignID string) *Monitor {
	return &Monitor{
		fetcher:       fetcher,
		policy:        p,
		notifier:      notifier,
		maxBounceRate: maxBounceRate,
		campaignID:    campaignID,
	}
}

// Snapshot fetches the campaign's counters. A fetch failure is logged and
// yields an empty snapshot, which evaluates to no alerts.
func (m *Monitor) Snapshot(ctx context.Context, campaignID string) domain.CampaignHealth {
	if campaignID == "" {
		campaignID = m.campaignID
	}
	summary, err := policy.Do(ctx, m.policy, opSummary, func(ctx context.Context) (outreach.CampaignSummary, error) {
		return m.fetcher.GetCampaignSummary(ctx, campaignID)
	})
	if err != nil {
		log.Error("failed to fetch campaign analytics", "campaign_id", campaignID, "error", err)
		return domain.CampaignHealth{CampaignID: campaignID}
	}
	return summary.Health(campaignID)
}

// Check fetches and evaluates a campaign. Each alert is logged as a warning;
// a campaign without alerts gets a one-line summary.
func (m *Monitor) Check(ctx context.Context, campaignID string) Report {
	h := m.Snapshot(ctx, campaignID)
	alerts := Evaluate(h, m.maxBounceRate)

	for _, a := range alerts {
		log.Warn(a)
	}
	if len(alerts) == 0 {
		log.Info("campaign healthy",
			"campaign_id", h.CampaignID,
			"sent", h.TotalSent,
			"bounce_rate", round1(h.BounceRate()),
			"reply_rate", round1(h.ReplyRate()),
			"open_rate", round1(h.OpenRate()),
		)
	}

	return Report{
		Health:  h,
		Rates:   h.Rates(),
		Alerts:  alerts,
		Healthy: h.IsHealthy(m.maxBounceRate, MaxUnsubscribeRate),
	}
}

// SendAlerts delivers alerts to the notifier. Nothing is sent when there are
// no alerts or no notifier; a delivery failure is logged and swallowed.
func (m *Monitor) SendAlerts(ctx context.Context, alerts []string) {
	if len(alerts) == 0 || m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, AlertMessage(alerts)); err != nil {
		log.Error("alert delivery failed", "error", err)
	}
}

// CheckAndAlert runs Check and sends any alerts.
func (m *Monitor) CheckAndAlert(ctx context.Context, campaignID string) Report {
	r := m.Check(ctx, campaignID)
	m.SendAlerts(ctx, r.Alerts)
	return r
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
