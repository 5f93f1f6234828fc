// Package health turns campaign counters into alerts.
package health

import (
	"fmt"
	"strings"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

// Fixed thresholds, in percent.
const (
	MaxUnsubscribeRate = 2.0
	MinReplyRate       = 3.0
	ReplyVolumeFloor   = 500
)

// Evaluate returns zero to three alert messages for snapshot h. A campaign
// with no sends has no alerts.
func Evaluate(h domain.CampaignHealth, maxBounceRate float64) []string {
	if h.TotalSent == 0 {
		return nil
	}

	var alerts []string
	if rate := h.BounceRate(); rate > maxBounceRate {
		alerts = append(alerts, fmt.Sprintf(
			"ALERT: Bounce rate %.1f%% exceeds threshold %.1f%% for campaign %s. Pause campaign and clean email list.",
			rate, maxBounceRate, h.CampaignID))
	}
	if rate := h.UnsubscribeRate(); rate > MaxUnsubscribeRate {
		alerts = append(alerts, fmt.Sprintf(
			"ALERT: Unsubscribe rate %.1f%% exceeds 2%% for campaign %s. Review targeting and copy.",
			rate, h.CampaignID))
	}
	if rate := h.ReplyRate(); h.TotalSent >= ReplyVolumeFloor && rate < MinReplyRate {
		alerts = append(alerts, fmt.Sprintf(
			"WARNING: Reply rate %.1f%% below 3%% after %d sends on campaign %s. Consider A/B testing new templates.",
			rate, h.TotalSent, h.CampaignID))
	}
	return alerts
}

// AlertMessage joins alerts into one notification, one ":warning:" line each.
func AlertMessage(alerts []string) string {
	lines := make([]string, len(alerts))
	for i, a := range alerts {
		lines[i] = ":warning: " + a
	}
	return strings.Join(lines, "\n")
}
