package domain

// CampaignHealth is an immutable snapshot of a campaign's counters.
type CampaignHealth struct {
	CampaignID        string `json:"campaign_id"`
	TotalSent         int    `json:"total_sent"`
	TotalOpened       int    `json:"total_opened"`
	TotalReplied      int    `json:"total_replied"`
	TotalBounced      int    `json:"total_bounced"`
	TotalUnsubscribed int    `json:"total_unsubscribed"`
}

func (h CampaignHealth) rate(n int) float64 {
	if h.TotalSent == 0 {
		return 0
	}
	return float64(n) / float64(h.TotalSent) * 100
}

// BounceRate is bounced/sent as a percentage.
func (h CampaignHealth) BounceRate() float64 { return h.rate(h.TotalBounced) }

// ReplyRate is replied/sent as a percentage.
func (h CampaignHealth) ReplyRate() float64 { return h.rate(h.TotalReplied) }

// OpenRate is opened/sent as a percentage.
func (h CampaignHealth) OpenRate() float64 { return h.rate(h.TotalOpened) }

// UnsubscribeRate is unsubscribed/sent as a percentage.
func (h CampaignHealth) UnsubscribeRate() float64 { return h.rate(h.TotalUnsubscribed) }

// IsHealthy reports whether bounce and unsubscribe rates are within the
// given percentage limits.
func (h CampaignHealth) IsHealthy(maxBounceRate, maxUnsubRate float64) bool {
	return h.BounceRate() <= maxBounceRate && h.UnsubscribeRate() <= maxUnsubRate
}

// HealthRates is the derived view returned alongside a snapshot.
type HealthRates struct {
	BounceRate      float64 `json:"bounce_rate"`
	ReplyRate       float64 `json:"reply_rate"`
	OpenRate        float64 `json:"open_rate"`
	UnsubscribeRate float64 `json:"unsubscribe_rate"`
}

// Rates returns all four derived rates.
func (h CampaignHealth) Rates() HealthRates {
	return HealthRates{
		BounceRate:      h.BounceRate(),
		ReplyRate:       h.ReplyRate(),
		OpenRate:        h.OpenRate(),
		UnsubscribeRate: h.UnsubscribeRate(),
	}
}
