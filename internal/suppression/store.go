package suppression

import (
	"context"
	"strings"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

// Table is the full suppression list keyed by normalized email.
type Table map[string]domain.SuppressionRecord

// Store persists the whole table. Load on a store that was never written
// returns an empty table.
type Store interface {
	Load(ctx context.Context) (Table, error)
	Save(ctx context.Context, t Table) error
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeTable lower-cases keys read from storage. On collision the
// earliest entry wins.
func normalizeTable(in Table) Table {
	out := make(Table, len(in))
	for email, rec := range in {
		key := normalize(email)
		if key == "" {
			continue
		}
		if prev, ok := out[key]; ok && !rec.AddedAt.Before(prev.AddedAt) {
			continue
		}
		out[key] = rec
	}
	return out
}
