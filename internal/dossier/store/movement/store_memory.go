package movement

import (
	"context"
	"fmt"
	"sort"
	"sync"

	circuitmodels "sged/internal/circuit/models"
	"sged/internal/dossier/models"
	"sged/internal/identity"
	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
)

// StationResolver supplies station ranks for the enriched read.
type StationResolver interface {
	FindByID(ctx context.Context, stationID id.StationID) (*circuitmodels.Station, error)
}

// NameResolver supplies actor display names for the enriched read.
type NameResolver interface {
	Resolve(ctx context.Context, userID id.UserID) (identity.Identity, error)
}

// InMemory is the append-only movement ledger for tests and single-process
// wiring. Entries are copied on write and never mutated.
type InMemory struct {
	mu        sync.RWMutex
	byDossier map[id.DossierID][]models.Movement
	stations  StationResolver
	names     NameResolver
}

func NewInMemory(stations StationResolver, names NameResolver) *InMemory {
	return &InMemory{
		byDossier: make(map[id.DossierID][]models.Movement),
		stations:  stations,
		names:     names,
	}
}

func (s *InMemory) Append(ctx context.Context, m *models.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDossier[m.DossierID] = append(s.byDossier[m.DossierID], *m)
	return nil
}

func (s *InMemory) ListFor(ctx context.Context, dossierID id.DossierID) ([]*models.MovementRecord, error) {
	s.mu.RLock()
	entries := make([]models.Movement, len(s.byDossier[dossierID]))
	copy(entries, s.byDossier[dossierID])
	s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })

	out := make([]*models.MovementRecord, 0, len(entries))
	for _, m := range entries {
		rec := &models.MovementRecord{Movement: m}
		if st, err := s.stations.FindByID(ctx, m.StationID); err == nil {
			rec.StationRank = st.Rank
		}
		if ident, err := s.names.Resolve(ctx, m.ActorUserID); err == nil {
			rec.ActorDisplayName = ident.DisplayName
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *InMemory) LastFor(ctx context.Context, dossierID id.DossierID) (*models.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.byDossier[dossierID]
	if len(entries) == 0 {
		return nil, fmt.Errorf("movements of dossier %s: %w", dossierID, sentinel.ErrNotFound)
	}
	last := entries[0]
	for _, m := range entries[1:] {
		if !m.Timestamp.Before(last.Timestamp) {
			last = m
		}
	}
	out := last
	return &out, nil
}
