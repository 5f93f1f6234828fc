package personalization

import (
	"context"
	"strings"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/llm"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

const opFirstLine = "claude_first_line"

// Writer generates personalized first lines.
type Writer struct {
	client  llm.Client
	prompts *llm.Prompts
	policy  *policy.Policy
	ledger  cost.Recorder
}

// NewWriter creates a Writer.
func NewWriter(client llm.Client, p *policy.Policy, ledger cost.Recorder) *Writer {
	if ledger == nil {
		ledger = cost.Nop{}
	}
	return &Writer{client: client, prompts: llm.MustPrompts(), policy: p, ledger: ledger}
}

// FirstLine writes one opening sentence for lead from its research fields.
func (w *Writer) FirstLine(ctx context.Context, lead domain.Lead) (string, error) {
	prompt, err := w.prompts.FirstLine(lead.BusinessName, lead.SpecificDetail, lead.PainPoint)
	if err != nil {
		return "", err
	}
	line, err := policy.Do(ctx, w.policy, opFirstLine, func(ctx context.Context) (string, error) {
		w.ledger.LogCall(cost.ClaudeSonnet, 1)
		return w.client.Complete(ctx, prompt, llm.FirstLineMaxTokens)
	})
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	log.Info("generated first line", "business", lead.BusinessName, "first_line", truncate(line, 60))
	return line, nil
}

// PersonalizeLead sets lead.AIFirstLine. A failure leaves it empty and is
// logged, never returned.
func (w *Writer) PersonalizeLead(ctx context.Context, lead *domain.Lead) {
	line, err := w.FirstLine(ctx, *lead)
	if err != nil {
		log.Error("failed to personalize lead",
			"business", lead.DisplayName(),
			"status", policy.StatusCode(err),
			"error", err,
		)
		line = ""
	}
	lead.AIFirstLine = line
}

// PersonalizeBatch personalizes every lead in place and returns how many
// received a first line.
func (w *Writer) PersonalizeBatch(ctx context.Context, leads []domain.Lead) int {
	done := 0
	for i := range leads {
		w.PersonalizeLead(ctx, &leads[i])
		if leads[i].AIFirstLine != "" {
			done++
		}
	}
	log.Info("personalized leads", "personalized", done, "total", len(leads))
	return done
}
