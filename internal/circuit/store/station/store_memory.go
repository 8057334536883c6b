package station

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sged/internal/circuit/models"
	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
)

// InMemory keeps stations in a map keyed by ID with rank ordering computed
// on read. Used by tests and single-process wiring.
type InMemory struct {
	mu       sync.RWMutex
	stations map[id.StationID]models.Station
}

func NewInMemory() *InMemory {
	return &InMemory{stations: make(map[id.StationID]models.Station)}
}

func (s *InMemory) Create(ctx context.Context, st *models.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.stations {
		if existing.CircuitID == st.CircuitID && existing.Rank == st.Rank {
			return fmt.Errorf("station rank %d on circuit %s: %w", st.Rank, st.CircuitID, sentinel.ErrConflict)
		}
	}
	s.stations[st.ID] = *st
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, stationID id.StationID) (*models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[stationID]
	if !ok {
		return nil, fmt.Errorf("station %s: %w", stationID, sentinel.ErrNotFound)
	}
	out := st
	return &out, nil
}

// ListByCircuit returns the circuit's stations ordered by rank ascending.
func (s *InMemory) ListByCircuit(ctx context.Context, circuitID id.CircuitID) ([]*models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Station
	for _, st := range s.stations {
		if st.CircuitID == circuitID {
			cp := st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// First returns the minimum-rank station of a circuit, or ErrNotFound when
// the circuit has no configured stations.
func (s *InMemory) First(ctx context.Context, circuitID id.CircuitID) (*models.Station, error) {
	stations, err := s.ListByCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("first station of circuit %s: %w", circuitID, sentinel.ErrNotFound)
	}
	return stations[0], nil
}

// Next returns the station with the smallest rank strictly greater than
// currentRank, or ErrNotFound when the circuit is exhausted.
func (s *InMemory) Next(ctx context.Context, circuitID id.CircuitID, currentRank int) (*models.Station, error) {
	stations, err := s.ListByCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	for _, st := range stations {
		if st.Rank > currentRank {
			return st, nil
		}
	}
	return nil, fmt.Errorf("next station after rank %d on circuit %s: %w", currentRank, circuitID, sentinel.ErrNotFound)
}
