package dossier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	circuitmodels "sged/internal/circuit/models"
	"sged/internal/dossier/models"
	"sged/internal/dossier/ports"
	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
)

// StationResolver supplies station assignments for the work-queue read. The
// postgres store does this with a join; the memory twin asks the topology
// store.
type StationResolver interface {
	FindByID(ctx context.Context, stationID id.StationID) (*circuitmodels.Station, error)
}

// InMemory keeps dossiers in a map. The mutex stands in for row locking:
// every mutation holds it, so transitions serialize as they do under
// FOR UPDATE in Postgres.
type InMemory struct {
	mu       sync.RWMutex
	dossiers map[id.DossierID]models.Dossier
	byNumero map[string]id.DossierID
	stations StationResolver
}

func NewInMemory(stations StationResolver) *InMemory {
	return &InMemory{
		dossiers: make(map[id.DossierID]models.Dossier),
		byNumero: make(map[string]id.DossierID),
		stations: stations,
	}
}

func (s *InMemory) Create(ctx context.Context, d *models.Dossier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byNumero[d.Numero]; exists {
		return fmt.Errorf("dossier numero %q: %w", d.Numero, sentinel.ErrConflict)
	}
	s.dossiers[d.ID] = cloneDossier(d)
	s.byNumero[d.Numero] = d.ID
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, dossierID id.DossierID) (*models.Dossier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dossiers[dossierID]
	if !ok {
		return nil, fmt.Errorf("dossier %s: %w", dossierID, sentinel.ErrNotFound)
	}
	out := cloneDossier(&d)
	return &out, nil
}

// FindByIDForUpdate matches FindByID; the memory store's mutex already
// serializes writers.
func (s *InMemory) FindByIDForUpdate(ctx context.Context, dossierID id.DossierID) (*models.Dossier, error) {
	return s.FindByID(ctx, dossierID)
}

func (s *InMemory) FindByNumero(ctx context.Context, numero string) (*models.Dossier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dossierID, ok := s.byNumero[numero]
	if !ok {
		return nil, fmt.Errorf("dossier numero %q: %w", numero, sentinel.ErrNotFound)
	}
	d := s.dossiers[dossierID]
	out := cloneDossier(&d)
	return &out, nil
}

func (s *InMemory) List(ctx context.Context, filter ports.DossierFilter) ([]*models.Dossier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Dossier
	for _, d := range s.dossiers {
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && d.Type != *filter.Type {
			continue
		}
		if filter.CircuitID != nil && d.CircuitID != *filter.CircuitID {
			continue
		}
		cp := cloneDossier(&d)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListByCreator(ctx context.Context, userID id.UserID) ([]*models.Dossier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Dossier
	for _, d := range s.dossiers {
		if d.CreatedBy == userID {
			cp := cloneDossier(&d)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListInProgressAtStationOf(ctx context.Context, userID id.UserID) ([]*models.Dossier, error) {
	s.mu.RLock()
	candidates := make([]models.Dossier, 0)
	for _, d := range s.dossiers {
		if d.Status == models.StatusInProgress && d.CurrentStationID != nil {
			candidates = append(candidates, cloneDossier(&d))
		}
	}
	s.mu.RUnlock()

	var out []*models.Dossier
	for i := range candidates {
		st, err := s.stations.FindByID(ctx, *candidates[i].CurrentStationID)
		if err != nil {
			continue
		}
		if st.AssignedUserID == userID {
			out = append(out, &candidates[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModifiedAt.After(out[j].ModifiedAt) })
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, d *models.Dossier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dossiers[d.ID]; !ok {
		return fmt.Errorf("dossier %s: %w", d.ID, sentinel.ErrNotFound)
	}
	s.dossiers[d.ID] = cloneDossier(d)
	return nil
}

func (s *InMemory) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tally := make(map[models.Status]int)
	for _, d := range s.dossiers {
		tally[d.Status]++
	}
	out := make([]models.StatusCount, 0, len(tally))
	for _, status := range []models.Status{models.StatusPending, models.StatusInProgress, models.StatusProcessed} {
		if n, ok := tally[status]; ok {
			out = append(out, models.StatusCount{Status: status, Count: n})
		}
	}
	return out, nil
}

// cloneDossier copies the dossier, including the station pointer, so callers
// never alias store state.
func cloneDossier(d *models.Dossier) models.Dossier {
	out := *d
	if d.CurrentStationID != nil {
		stationID := *d.CurrentStationID
		out.CurrentStationID = &stationID
	}
	if d.ClientInfo != nil {
		out.ClientInfo = append([]byte(nil), d.ClientInfo...)
	}
	return out
}
