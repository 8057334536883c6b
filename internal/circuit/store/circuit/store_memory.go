package circuit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sged/internal/circuit/models"
	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
)

// InMemory keeps circuits in a map. Used by tests and single-process wiring.
type InMemory struct {
	mu       sync.RWMutex
	circuits map[id.CircuitID]models.Circuit
}

func NewInMemory() *InMemory {
	return &InMemory{circuits: make(map[id.CircuitID]models.Circuit)}
}

func (s *InMemory) Create(ctx context.Context, c *models.Circuit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.circuits[c.ID]; exists {
		return fmt.Errorf("circuit %s: %w", c.ID, sentinel.ErrConflict)
	}
	s.circuits[c.ID] = *c
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, circuitID id.CircuitID) (*models.Circuit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.circuits[circuitID]
	if !ok {
		return nil, fmt.Errorf("circuit %s: %w", circuitID, sentinel.ErrNotFound)
	}
	out := c
	return &out, nil
}

func (s *InMemory) List(ctx context.Context) ([]*models.Circuit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Circuit, 0, len(s.circuits))
	for _, c := range s.circuits {
		cc := c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, c *models.Circuit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.circuits[c.ID]; !ok {
		return fmt.Errorf("circuit %s: %w", c.ID, sentinel.ErrNotFound)
	}
	s.circuits[c.ID] = *c
	return nil
}
