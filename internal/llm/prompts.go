package llm

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

const classifyTemplate = `Classify this email reply into exactly one category: {{ categories | join: ", " }}.
Reply with ONLY the category.

Reply: "{{ reply }}"`

const draftTemplate = `A prospect replied to our cold email with a question. Draft a helpful, concise reply (2-3 sentences max) that a sales rep can review and send. Be professional but conversational.

Prospect reply: "{{ reply }}"`

const firstLineTemplate = `You are writing a cold email first line.

Prospect: {{ business_name }}
Website detail: {{ specific_detail }}
Pain point: {{ pain_point }}

Write ONLY a personalized opening line (1 sentence, under 20 words) that references the specific detail naturally. Do NOT use generic compliments. Do NOT mention AI. Sound like a real person who actually visited their website.`

// ResearchSystemPrompt instructs the analysis model to answer with the four
// research keys as JSON.
const ResearchSystemPrompt = "Analyze this company website and extract:\n" +
	"1. Main product/service offered\n" +
	"2. One specific, non-obvious detail (recent blog post, team expansion, product launch, award, case study)\n" +
	"3. Primary pain point the business likely faces\n" +
	"4. Technology stack if visible\n" +
	"Respond ONLY in JSON format with keys: main_service, specific_detail, pain_point, tech_stack"

// Token limits per prompt.
const (
	ClassifyMaxTokens  = 100
	DraftMaxTokens     = 300
	FirstLineMaxTokens = 300
)

// Prompts holds the parsed prompt templates. Reply and website text are
// bound as values and never parsed as template source.
type Prompts struct {
	classify  *liquid.Template
	draft     *liquid.Template
	firstLine *liquid.Template
}

// NewPrompts parses the built-in templates.
func NewPrompts() (*Prompts, error) {
	engine := liquid.NewEngine()
	parse := func(name, src string) (*liquid.Template, error) {
		tpl, err := engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s prompt: %w", name, err)
		}
		return tpl, nil
	}

	var (
		p   Prompts
		err error
	)
	if p.classify, err = parse("classify", classifyTemplate); err != nil {
		return nil, err
	}
	if p.draft, err = parse("draft", draftTemplate); err != nil {
		return nil, err
	}
	if p.firstLine, err = parse("first line", firstLineTemplate); err != nil {
		return nil, err
	}
	return &p, nil
}

// MustPrompts is NewPrompts for package-level setup; the built-in templates
// always parse.
func MustPrompts() *Prompts {
	p, err := NewPrompts()
	if err != nil {
		panic(err)
	}
	return p
}

// Classify renders the classification prompt for reply over categories.
func (p *Prompts) Classify(reply string, categories []string) (string, error) {
	return render(p.classify, liquid.Bindings{"reply": reply, "categories": categories})
}

// Draft renders the question-reply drafting prompt.
func (p *Prompts) Draft(reply string) (string, error) {
	return render(p.draft, liquid.Bindings{"reply": reply})
}

// FirstLine renders the cold email opening line prompt.
func (p *Prompts) FirstLine(businessName, specificDetail, painPoint string) (string, error) {
	return render(p.firstLine, liquid.Bindings{
		"business_name":   businessName,
		"specific_detail": specificDetail,
		"pain_point":      painPoint,
	})
}

func render(tpl *liquid.Template, b liquid.Bindings) (string, error) {
	out, err := tpl.RenderString(b)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// StripCodeFence removes a surrounding markdown code fence, including a
// language tag on the opening line.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
