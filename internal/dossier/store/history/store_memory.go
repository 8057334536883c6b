package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"sged/internal/dossier/models"
	"sged/internal/identity"
	id "sged/pkg/domain"
)

// NameResolver supplies actor display names for the enriched read.
type NameResolver interface {
	Resolve(ctx context.Context, userID id.UserID) (identity.Identity, error)
}

// NumeroResolver supplies dossier numeros for cross-dossier reads.
type NumeroResolver interface {
	FindByID(ctx context.Context, dossierID id.DossierID) (*models.Dossier, error)
}

// InMemory is the append-only audit ledger for tests and single-process
// wiring.
type InMemory struct {
	mu      sync.RWMutex
	entries []models.HistoryEntry
	names   NameResolver
	numeros NumeroResolver
}

func NewInMemory(names NameResolver, numeros NumeroResolver) *InMemory {
	return &InMemory{names: names, numeros: numeros}
}

func (s *InMemory) Append(ctx context.Context, h *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *h)
	return nil
}

func (s *InMemory) ListFor(ctx context.Context, dossierID id.DossierID) ([]*models.HistoryRecord, error) {
	s.mu.RLock()
	var matched []models.HistoryEntry
	for _, h := range s.entries {
		if h.DossierID == dossierID {
			matched = append(matched, h)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	return s.enrich(ctx, matched), nil
}

func (s *InMemory) ListAll(ctx context.Context, filter models.HistoryFilter) ([]*models.HistoryRecord, error) {
	s.mu.RLock()
	var matched []models.HistoryEntry
	for _, h := range s.entries {
		if filter.ActorUserID != nil && h.ActorUserID != *filter.ActorUserID {
			continue
		}
		day := dateOf(h.Timestamp)
		if filter.DateFrom != nil && day.Before(dateOf(*filter.DateFrom)) {
			continue
		}
		if filter.DateTo != nil && day.After(dateOf(*filter.DateTo)) {
			continue
		}
		matched = append(matched, h)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	if len(matched) > models.HistoryListCap {
		matched = matched[:models.HistoryListCap]
	}
	return s.enrich(ctx, matched), nil
}

// dateOf drops the time-of-day so bounds compare date components only.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *InMemory) enrich(ctx context.Context, entries []models.HistoryEntry) []*models.HistoryRecord {
	out := make([]*models.HistoryRecord, 0, len(entries))
	for _, h := range entries {
		rec := &models.HistoryRecord{HistoryEntry: h}
		if ident, err := s.names.Resolve(ctx, h.ActorUserID); err == nil {
			rec.ActorDisplayName = ident.DisplayName
		}
		if d, err := s.numeros.FindByID(ctx, h.DossierID); err == nil {
			rec.DossierNumero = d.Numero
		}
		out = append(out, rec)
	}
	return out
}
