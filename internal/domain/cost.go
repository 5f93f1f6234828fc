package domain

import "time"

// CostEntry is the running call count and estimated spend for one service.
type CostEntry struct {
	Calls            int     `json:"calls"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// CostSummary is the session report persisted by cost sinks.
type CostSummary struct {
	SessionDurationS      float64              `json:"session_duration_s"`
	TotalAPICalls         int                  `json:"total_api_calls"`
	EstimatedTotalCostUSD float64              `json:"estimated_total_cost_usd"`
	ByService             map[string]CostEntry `json:"by_service"`
}

// CostLogEntry is one persisted session summary.
type CostLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	CostSummary
}
