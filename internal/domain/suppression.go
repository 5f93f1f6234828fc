package domain

import "time"

// SuppressionReason enumerates why an email was suppressed.
type SuppressionReason string

const (
	ReasonUnsubscribe SuppressionReason = "unsubscribe"
	ReasonBounce      SuppressionReason = "bounce"
	ReasonComplaint   SuppressionReason = "spam_complaint"
	ReasonManual      SuppressionReason = "manual"
	ReasonBulkImport  SuppressionReason = "bulk_import"
)

// SuppressionSource indicates where the suppression signal originated.
type SuppressionSource string

const (
	SuppressionFromInstantly SuppressionSource = "instantly"
	SuppressionFromManual    SuppressionSource = "manual"
	SuppressionFromWebhook   SuppressionSource = "webhook"
	SuppressionFromImport    SuppressionSource = "bulk_import"
)

// SuppressionRecord is the stored value for one suppressed address.
// The file store serializes a map of email to SuppressionRecord.
type SuppressionRecord struct {
	Reason  SuppressionReason `json:"reason" db:"reason"`
	Source  SuppressionSource `json:"source" db:"source"`
	AddedAt time.Time         `json:"added_at" db:"added_at"`
}

// Suppression is a single entry in the suppression list.
type Suppression struct {
	Email   string            `json:"email" db:"email"`
	Reason  SuppressionReason `json:"reason" db:"reason"`
	Source  SuppressionSource `json:"source" db:"source"`
	AddedAt time.Time         `json:"added_at" db:"added_at"`
}

// Record returns the stored part of the entry.
func (s Suppression) Record() SuppressionRecord {
	return SuppressionRecord{Reason: s.Reason, Source: s.Source, AddedAt: s.AddedAt}
}

// SuppressionStats summarizes the list by reason and source.
type SuppressionStats struct {
	Total    int                       `json:"total"`
	ByReason map[SuppressionReason]int `json:"by_reason"`
	BySource map[SuppressionSource]int `json:"by_source"`
}
