package outreach

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
	"github.com/Aviral2610/Lead-gen/internal/pkg/validate"
	"github.com/Aviral2610/Lead-gen/internal/suppression"
)

// ErrNotCleared is returned when Push gets a batch that did not come from
// the suppression gate.
var ErrNotCleared = errors.New("outreach: batch has not passed the suppression gate")

const opAdd = "instantly_add"

// Gateway is the only path from the pipeline to the outreach platform.
type Gateway struct {
	client     *Client
	policy     *policy.Policy
	ledger     cost.Recorder
	campaignID string
	batchSize  int
}

// NewGateway builds a gateway that pushes to campaignID (the client's
// default when empty) in chunks of batchSize.
func NewGateway(client *Client, p *policy.Policy, ledger cost.Recorder, campaignID string, batchSize int) *Gateway {
	if ledger == nil {
		ledger = cost.Nop{}
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Gateway{
		client:     client,
		policy:     p,
		ledger:     ledger,
		campaignID: campaignID,
		batchSize:  batchSize,
	}
}

// PushReport counts what happened to a cleared batch.
type PushReport struct {
	Cleared      int `json:"cleared"`
	InvalidEmail int `json:"invalid_email"`
	Pushed       int `json:"pushed"`
	Failed       int `json:"failed"`
	Uploaded     int `json:"uploaded"`
	Skipped      int `json:"skipped"`
}

// Push sends a cleared batch. Every address is sanitized again and invalid
// ones are dropped. A failed chunk is logged and counted; later chunks are
// still sent. The returned error joins all chunk failures.
func (g *Gateway) Push(ctx context.Context, batch suppression.Cleared) (PushReport, error) {
	if !batch.Gated() {
		return PushReport{}, ErrNotCleared
	}

	report := PushReport{Cleared: batch.Len()}
	ready := make([]domain.Lead, 0, batch.Len())
	for _, l := range batch.Leads() {
		email := validate.SanitizeEmail(l.Email)
		if email == "" {
			report.InvalidEmail++
			log.Warn("dropping lead with invalid email before push", "business_name", l.DisplayName())
			continue
		}
		l.Email = email
		ready = append(ready, l)
	}

	var errs []error
	for start := 0; start < len(ready); start += g.batchSize {
		if err := ctx.Err(); err != nil {
			report.Failed += len(ready) - start
			errs = append(errs, err)
			break
		}
		end := min(start+g.batchSize, len(ready))
		chunk := ready[start:end]

		res, err := policy.Do(ctx, g.policy, opAdd, func(ctx context.Context) (AddResult, error) {
			g.ledger.LogCall(cost.InstantlyAdd, len(chunk))
			return g.client.AddLeadsBatch(ctx, g.campaignID, chunk)
		})
		if err != nil {
			report.Failed += len(chunk)
			errs = append(errs, fmt.Errorf("push leads %d-%d: %w", start, end-1, err))
			log.Error("instantly push failed", "from", start, "to", end-1, "error", err)
			continue
		}
		report.Pushed += len(chunk)
		report.Uploaded += res.LeadsUploaded
		report.Skipped += res.AlreadyInCampaign + res.SkippedCount
	}

	log.Info("outreach push complete",
		"cleared", report.Cleared,
		"pushed", report.Pushed,
		"failed", report.Failed,
		"invalid_email", report.InvalidEmail,
	)
	return report, errors.Join(errs...)
}
