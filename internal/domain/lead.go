package domain

// EnrichmentSource records which waterfall layer produced a lead's email.
type EnrichmentSource string

const (
	SourceScraped EnrichmentSource = "scraped"
	SourceProspeo EnrichmentSource = "prospeo"
	SourceHunter  EnrichmentSource = "hunter"
	SourceNone    EnrichmentSource = "none"
)

// Lead is a prospective contact record. Lead sources fill the identity
// fields, the enrichment engine sets EnrichmentSource and EmailVerified,
// and personalization fills the research fields and AIFirstLine.
type Lead struct {
	BusinessName  string   `json:"business_name"`
	FirstName     string   `json:"first_name,omitempty"`
	LastName      string   `json:"last_name,omitempty"`
	Title         string   `json:"title,omitempty"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone,omitempty"`
	Website       string   `json:"website,omitempty"`
	Address       string   `json:"address,omitempty"`
	City          string   `json:"city,omitempty"`
	Category      string   `json:"category,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"review_count,omitempty"`
	EmployeeCount *int     `json:"employee_count,omitempty"`

	EnrichmentSource EnrichmentSource `json:"enrichment_source,omitempty"`
	EmailVerified    bool             `json:"email_verified"`

	MainService    string `json:"main_service,omitempty"`
	SpecificDetail string `json:"specific_detail,omitempty"`
	PainPoint      string `json:"pain_point,omitempty"`
	TechStack      string `json:"tech_stack,omitempty"`
	AIFirstLine    string `json:"ai_first_line,omitempty"`
}

// DisplayName returns the name used in logs and prompts.
func (l Lead) DisplayName() string {
	if l.BusinessName != "" {
		return l.BusinessName
	}
	if l.FirstName != "" || l.LastName != "" {
		if l.LastName == "" {
			return l.FirstName
		}
		if l.FirstName == "" {
			return l.LastName
		}
		return l.FirstName + " " + l.LastName
	}
	return "unknown"
}

// WebsiteResearch is the structured analysis of a prospect's website.
type WebsiteResearch struct {
	MainService    string `json:"main_service"`
	SpecificDetail string `json:"specific_detail"`
	PainPoint      string `json:"pain_point"`
	TechStack      string `json:"tech_stack"`
}

// IsEmpty reports whether no field was filled.
func (r WebsiteResearch) IsEmpty() bool {
	return r == WebsiteResearch{}
}

// Apply copies the research fields onto a lead.
func (r WebsiteResearch) Apply(l *Lead) {
	l.MainService = r.MainService
	l.SpecificDetail = r.SpecificDetail
	l.PainPoint = r.PainPoint
	l.TechStack = r.TechStack
}
