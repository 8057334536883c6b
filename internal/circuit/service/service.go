// Package service exposes circuit topology operations: circuit lifecycle,
// station registration, and the rank-ordered lookups the routing engine
// relies on.
package service

import (
	"context"
	"log/slog"

	"sged/internal/circuit/models"
	id "sged/pkg/domain"
)

// CircuitStore persists circuits.
type CircuitStore interface {
	Create(ctx context.Context, c *models.Circuit) error
	FindByID(ctx context.Context, circuitID id.CircuitID) (*models.Circuit, error)
	List(ctx context.Context) ([]*models.Circuit, error)
	Update(ctx context.Context, c *models.Circuit) error
}

// StationStore persists stations and answers rank-ordered lookups.
type StationStore interface {
	Create(ctx context.Context, st *models.Station) error
	FindByID(ctx context.Context, stationID id.StationID) (*models.Station, error)
	ListByCircuit(ctx context.Context, circuitID id.CircuitID) ([]*models.Station, error)
	First(ctx context.Context, circuitID id.CircuitID) (*models.Station, error)
	Next(ctx context.Context, circuitID id.CircuitID, currentRank int) (*models.Station, error)
}

// Service orchestrates topology management.
type Service struct {
	circuits CircuitStore
	stations StationStore
	logger   *slog.Logger
}

// Option configures optional service dependencies.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(circuits CircuitStore, stations StationStore, opts ...Option) *Service {
	svc := &Service{
		circuits: circuits,
		stations: stations,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}
