package personalization

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/llm"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
	"github.com/Aviral2610/Lead-gen/internal/pkg/validate"
)

const (
	opWebsiteFetch = "website_fetch"
	opAnalyze      = "openai_analyze"

	// analysisInputChars caps the page text sent for analysis.
	analysisInputChars = 4000
	analysisTemp       = 0.3
	analysisMaxTokens  = 500
)

const researchSchema = `{
  "type": "object",
  "required": ["main_service", "specific_detail", "pain_point", "tech_stack"],
  "properties": {
    "main_service":    {"type": "string"},
    "specific_detail": {"type": "string"},
    "pain_point":      {"type": "string"},
    "tech_stack":      {"type": "string"}
  }
}`

var researchSchemaLoader = gojsonschema.NewStringLoader(researchSchema)

// Analyzer is the chat model used to analyze website text.
type Analyzer interface {
	Chat(ctx context.Context, messages []llm.ChatMessage, temperature float64, maxTokens int) (string, error)
}

// Researcher turns a prospect's website into WebsiteResearch.
type Researcher struct {
	fetcher  PageFetcher
	analyzer Analyzer
	policy   *policy.Policy
	ledger   cost.Recorder
	schema   *gojsonschema.Schema
}

// NewResearcher wires a fetcher and analyzer. Both calls go through p.
func NewResearcher(fetcher PageFetcher, analyzer Analyzer, p *policy.Policy, ledger cost.Recorder) (*Researcher, error) {
	schema, err := gojsonschema.NewSchema(researchSchemaLoader)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = cost.Nop{}
	}
	return &Researcher{
		fetcher:  fetcher,
		analyzer: analyzer,
		policy:   p,
		ledger:   ledger,
		schema:   schema,
	}, nil
}

// Research fetches website and analyzes it. An empty page or an analysis
// that is not the expected JSON yields empty research and no error.
func (r *Researcher) Research(ctx context.Context, website string) (domain.WebsiteResearch, error) {
	content, err := r.Scrape(ctx, website)
	if err != nil {
		return domain.WebsiteResearch{}, err
	}
	return r.Analyze(ctx, content)
}

// Scrape returns the page text for website.
func (r *Researcher) Scrape(ctx context.Context, website string) (string, error) {
	url := validate.SanitizeURL(website)
	if url == "" {
		log.Warn("skipping unsafe or empty website", "website", website)
		return "", nil
	}
	return policy.Do(ctx, r.policy, opWebsiteFetch, func(ctx context.Context) (string, error) {
		if svc := r.fetcher.CostService(); svc != "" {
			r.ledger.LogCall(svc, 1)
		}
		return r.fetcher.Fetch(ctx, url)
	})
}

// Analyze asks the model for the four research fields.
func (r *Researcher) Analyze(ctx context.Context, content string) (domain.WebsiteResearch, error) {
	if strings.TrimSpace(content) == "" {
		return domain.WebsiteResearch{}, nil
	}
	if runes := []rune(content); len(runes) > analysisInputChars {
		content = string(runes[:analysisInputChars])
	}
	messages := []llm.ChatMessage{
		{Role: "system", Content: llm.ResearchSystemPrompt},
		{Role: "user", Content: content},
	}

	raw, err := policy.Do(ctx, r.policy, opAnalyze, func(ctx context.Context) (string, error) {
		r.ledger.LogCall(cost.OpenAIGPT4o, 1)
		return r.analyzer.Chat(ctx, messages, analysisTemp, analysisMaxTokens)
	})
	if err != nil {
		return domain.WebsiteResearch{}, err
	}
	return r.parse(raw), nil
}

func (r *Researcher) parse(raw string) domain.WebsiteResearch {
	doc := llm.StripCodeFence(raw)

	result, err := r.schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		log.Warn("failed to parse website analysis", "raw", truncate(doc, 200), "error", err)
		return domain.WebsiteResearch{}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		log.Warn("website analysis has unexpected shape", "problems", strings.Join(problems, "; "))
		return domain.WebsiteResearch{}
	}

	var research domain.WebsiteResearch
	if err := json.Unmarshal([]byte(doc), &research); err != nil {
		return domain.WebsiteResearch{}
	}
	return research
}

// ResearchLead researches the lead's website and copies the result onto it.
// Leads without a website are left alone.
func (r *Researcher) ResearchLead(ctx context.Context, lead *domain.Lead) error {
	if lead.Website == "" {
		return nil
	}
	research, err := r.Research(ctx, lead.Website)
	if err != nil {
		return err
	}
	research.Apply(lead)
	return nil
}

func truncate(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n])
	}
	return s
}
