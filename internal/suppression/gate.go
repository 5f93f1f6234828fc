package suppression

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
)

var log = logger.Named("suppression")

// Gate holds the suppression list in memory. It is safe for concurrent use.
type Gate struct {
	mu    sync.RWMutex
	store Store
	table Table
	now   func() time.Time
}

// NewGate loads the full table from store.
func NewGate(ctx context.Context, store Store) (*Gate, error) {
	t, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load suppression list: %w", err)
	}
	g := &Gate{
		store: store,
		table: normalizeTable(t),
		now:   func() time.Time { return time.Now().UTC() },
	}
	log.Info("suppression list loaded", "entries", len(g.table))
	return g, nil
}

// IsSuppressed reports whether email is on the list. Empty input is never suppressed.
func (g *Gate) IsSuppressed(email string) bool {
	key := normalize(email)
	if key == "" {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.table[key]
	return ok
}

// Add suppresses email. An address that is already suppressed keeps its
// original reason and source, and Add returns false without writing.
// When the write fails the entry stays in memory, so the address remains
// blocked for this process, and the error is returned.
func (g *Gate) Add(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource) (bool, error) {
	key := normalize(email)
	if key == "" {
		return false, ErrEmptyEmail
	}
	if source == "" {
		source = domain.SuppressionFromManual
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.table[key]; ok {
		return false, nil
	}
	g.table[key] = domain.SuppressionRecord{Reason: reason, Source: source, AddedAt: g.now()}
	if err := g.saveLocked(ctx); err != nil {
		return true, err
	}
	log.Info("suppressed email", "email", key, "reason", reason, "source", source)
	return true, nil
}

// Remove deletes email from the list. It returns ErrNotFound when the
// address is not suppressed. If the write fails the entry is restored.
func (g *Gate) Remove(ctx context.Context, email string) error {
	key := normalize(email)
	if key == "" {
		return ErrEmptyEmail
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.table[key]
	if !ok {
		return ErrNotFound
	}
	delete(g.table, key)
	if err := g.saveLocked(ctx); err != nil {
		g.table[key] = rec
		return err
	}
	log.Info("removed from suppression list", "email", key)
	return nil
}

// FilterLeads partitions leads into a Cleared batch and the suppressed rest.
// Relative order is preserved within both partitions.
func (g *Gate) FilterLeads(leads []domain.Lead) (Cleared, []domain.Lead) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	allowed := make([]domain.Lead, 0, len(leads))
	var suppressed []domain.Lead
	for _, l := range leads {
		if key := normalize(l.Email); key != "" {
			if _, ok := g.table[key]; ok {
				suppressed = append(suppressed, l)
				continue
			}
		}
		allowed = append(allowed, l)
	}

	if len(suppressed) > 0 {
		log.Info("suppression filter applied",
			"allowed", len(allowed),
			"suppressed", len(suppressed),
			"total", len(leads),
		)
	}
	return Cleared{leads: allowed, gated: true}, suppressed
}

// BulkAdd suppresses every entry not already on the list and returns how
// many were new. Missing reasons default to bulk_import and missing sources
// to manual. The table is written once for the whole batch.
func (g *Gate) BulkAdd(ctx context.Context, entries []domain.Suppression) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	added := 0
	for _, e := range entries {
		key := normalize(e.Email)
		if key == "" {
			continue
		}
		if _, ok := g.table[key]; ok {
			continue
		}
		reason := e.Reason
		if reason == "" {
			reason = domain.ReasonBulkImport
		}
		source := e.Source
		if source == "" {
			source = domain.SuppressionFromManual
		}
		g.table[key] = domain.SuppressionRecord{Reason: reason, Source: source, AddedAt: now}
		added++
	}

	if added > 0 {
		if err := g.saveLocked(ctx); err != nil {
			return added, err
		}
	}
	log.Info("bulk added suppressions", "added", added, "submitted", len(entries))
	return added, nil
}

// Count returns the number of suppressed addresses.
func (g *Gate) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.table)
}

// Export returns every entry sorted by email.
func (g *Gate) Export() []domain.Suppression {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]domain.Suppression, 0, len(g.table))
	for email, rec := range g.table {
		out = append(out, domain.Suppression{
			Email:   email,
			Reason:  rec.Reason,
			Source:  rec.Source,
			AddedAt: rec.AddedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// Stats returns counts grouped by reason and source.
func (g *Gate) Stats() domain.SuppressionStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := domain.SuppressionStats{
		Total:    len(g.table),
		ByReason: make(map[domain.SuppressionReason]int),
		BySource: make(map[domain.SuppressionSource]int),
	}
	for _, rec := range g.table {
		stats.ByReason[rec.Reason]++
		stats.BySource[rec.Source]++
	}
	return stats
}

func (g *Gate) saveLocked(ctx context.Context) error {
	snapshot := make(Table, len(g.table))
	for k, v := range g.table {
		snapshot[k] = v
	}
	if err := g.store.Save(ctx, snapshot); err != nil {
		log.Error("failed to save suppression list", "error", err)
		return fmt.Errorf("save suppression list: %w", err)
	}
	return nil
}
