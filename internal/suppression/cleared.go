package suppression

import "github.com/Aviral2610/Lead-gen/internal/domain"

// Cleared is a batch that has passed the suppression gate. Only
// Gate.FilterLeads can build a Cleared that reports Gated.
type Cleared struct {
	leads []domain.Lead
	gated bool
}

// Gated reports whether the batch came out of Gate.FilterLeads. The zero
// value is not gated.
func (c Cleared) Gated() bool { return c.gated }

// Leads returns a copy of the cleared leads in input order.
func (c Cleared) Leads() []domain.Lead {
	out := make([]domain.Lead, len(c.leads))
	copy(out, c.leads)
	return out
}

// Len returns the number of cleared leads.
func (c Cleared) Len() int { return len(c.leads) }
