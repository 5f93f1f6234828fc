// Package reply classifies inbound prospect replies and decides what to do
// with each one.
package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/llm"
	"github.com/Aviral2610/Lead-gen/internal/notify"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

var log = logger.Named("reply")

const (
	opClassify = "claude_classify"
	opDraft    = "claude_draft"

	alertExcerptLen = 500
)

// categoryTokens is the category list as shown to the classifier.
var categoryTokens = func() []string {
	out := make([]string, len(domain.ReplyCategories))
	for i, c := range domain.ReplyCategories {
		out[i] = string(c)
	}
	return out
}()

// Router classifies replies and routes them to actions. It keeps no state
// between replies.
type Router struct {
	llm      llm.Client
	prompts  *llm.Prompts
	policy   *policy.Policy
	notifier notify.Notifier
	ledger   cost.Recorder
}

// NewRouter builds a router. A nil notifier skips alerts; a nil ledger
// discards cost records.
func NewRouter(client llm.Client, p *policy.Policy, notifier notify.Notifier, ledger cost.Recorder) *Router {
	if ledger == nil {
		ledger = cost.Nop{}
	}
	return &Router{
		llm:      client,
		prompts:  llm.MustPrompts(),
		policy:   p,
		notifier: notifier,
		ledger:   ledger,
	}
}

// Classify asks the model for a category. The answer is treated as
// untrusted: any token outside the six categories becomes QUESTION.
func (r *Router) Classify(ctx context.Context, text string) (domain.ReplyCategory, error) {
	prompt, err := r.prompts.Classify(text, categoryTokens)
	if err != nil {
		return "", err
	}
	raw, err := policy.Do(ctx, r.policy, opClassify, func(ctx context.Context) (string, error) {
		r.ledger.LogCall(cost.ClaudeClassify, 1)
		return r.llm.Complete(ctx, prompt, llm.ClassifyMaxTokens)
	})
	if err != nil {
		return "", fmt.Errorf("classify reply: %w", err)
	}

	category := domain.ParseReplyCategory(raw)
	if string(category) != strings.ToUpper(strings.TrimSpace(raw)) {
		log.Warn("unexpected category, defaulting to QUESTION", "token", truncate(raw, 50))
	}
	log.Info("classified reply", "category", category)
	return category, nil
}

// Route maps category to its action and performs the side channel work:
// a notification for INTERESTED and MEETING_REQUEST, a draft for QUESTION.
// Side channel failures are logged; the routing decision is always returned.
func (r *Router) Route(ctx context.Context, email, text string, category domain.ReplyCategory) domain.RoutedAction {
	if !category.Valid() {
		category = domain.CategoryQuestion
	}
	action := domain.RoutedAction{
		Email:    email,
		Category: category,
		Action:   domain.ActionFor(category),
	}

	switch action.Action {
	case domain.ActionSlackAlert:
		r.alert(ctx, email, text, category)
	case domain.ActionDraftResponse:
		action.Draft = r.draft(ctx, email, text)
	}

	log.Info("routed reply", "email", email, "action", action.Action)
	return action
}

// Process classifies text and routes it.
func (r *Router) Process(ctx context.Context, email, text string) (domain.RoutedAction, error) {
	category, err := r.Classify(ctx, text)
	if err != nil {
		return domain.RoutedAction{}, err
	}
	return r.Route(ctx, email, text, category), nil
}

// AlertText formats the notification for a high-priority reply.
func AlertText(email, text string, category domain.ReplyCategory) string {
	return fmt.Sprintf(":email: *%s* reply from `%s`\n```%s```", category, email, truncate(text, alertExcerptLen))
}

func (r *Router) alert(ctx context.Context, email, text string, category domain.ReplyCategory) {
	if r.notifier == nil {
		log.Info("no notifier configured, skipping alert", "email", email)
		return
	}
	if err := r.notifier.Notify(ctx, AlertText(email, text, category)); err != nil {
		log.Warn("reply alert failed", "email", email, "error", err)
	}
}

func (r *Router) draft(ctx context.Context, email, text string) string {
	prompt, err := r.prompts.Draft(text)
	if err != nil {
		log.Error("render draft prompt", "error", err)
		return ""
	}
	out, err := policy.Do(ctx, r.policy, opDraft, func(ctx context.Context) (string, error) {
		r.ledger.LogCall(cost.ClaudeSonnet, 1)
		return r.llm.Complete(ctx, prompt, llm.DraftMaxTokens)
	})
	if err != nil {
		log.Warn("draft response failed", "email", email, "error", err)
		return ""
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
