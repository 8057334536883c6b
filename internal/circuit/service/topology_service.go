package service

import (
	"context"
	"errors"

	"sged/internal/circuit/models"
	"sged/internal/identity"
	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
	"sged/pkg/platform/sentinel"
	"sged/pkg/requestcontext"
)

// CreateCircuit registers a new circuit. Caller must hold the administer
// capability.
func (s *Service) CreateCircuit(ctx context.Context, name, description string, stationCount int) (*models.Circuit, error) {
	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if !ident.Capabilities.Administer {
		return nil, dErrors.New(dErrors.CodeForbidden, "administer capability required")
	}

	c, err := models.NewCircuit(id.NewCircuitID(), name, description, stationCount, ident.ID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.circuits.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create circuit")
	}

	s.logger.InfoContext(ctx, "circuit created",
		"circuit_id", c.ID,
		"name", c.Name,
		"station_count", c.StationCount,
	)
	return c, nil
}

// DeactivateCircuit soft-retires a circuit. In-flight dossiers keep their
// circuit reference and finish their run.
func (s *Service) DeactivateCircuit(ctx context.Context, circuitID id.CircuitID) (*models.Circuit, error) {
	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if !ident.Capabilities.Administer {
		return nil, dErrors.New(dErrors.CodeForbidden, "administer capability required")
	}

	c, err := s.GetCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if err := c.CanDeactivate(); err != nil {
		return nil, err
	}
	c.ApplyDeactivation(requestcontext.Now(ctx))
	if err := s.circuits.Update(ctx, c); err != nil {
		return nil, wrapCircuitErr(err)
	}

	s.logger.InfoContext(ctx, "circuit deactivated", "circuit_id", c.ID)
	return c, nil
}

// GetCircuit fetches one circuit.
func (s *Service) GetCircuit(ctx context.Context, circuitID id.CircuitID) (*models.Circuit, error) {
	if circuitID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "circuit_id is required")
	}
	c, err := s.circuits.FindByID(ctx, circuitID)
	if err != nil {
		return nil, wrapCircuitErr(err)
	}
	return c, nil
}

// ListCircuits returns all circuits, newest first.
func (s *Service) ListCircuits(ctx context.Context) ([]*models.Circuit, error) {
	out, err := s.circuits.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list circuits")
	}
	return out, nil
}

// AddStation registers a station at a rank of an existing circuit. Exactly
// one station may occupy a (circuit, rank) pair.
func (s *Service) AddStation(ctx context.Context, circuitID id.CircuitID, rank int, assignedUserID id.UserID, conditions string) (*models.Station, error) {
	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if !ident.Capabilities.Administer {
		return nil, dErrors.New(dErrors.CodeForbidden, "administer capability required")
	}

	if _, err := s.GetCircuit(ctx, circuitID); err != nil {
		return nil, err
	}

	st, err := models.NewStation(id.NewStationID(), circuitID, rank, assignedUserID, conditions, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.stations.Create(ctx, st); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a station already occupies this rank")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create station")
	}

	s.logger.InfoContext(ctx, "station added",
		"circuit_id", circuitID,
		"station_id", st.ID,
		"rank", st.Rank,
	)
	return st, nil
}

// StationsOf returns the ordered station sequence of a circuit.
func (s *Service) StationsOf(ctx context.Context, circuitID id.CircuitID) ([]*models.Station, error) {
	if _, err := s.GetCircuit(ctx, circuitID); err != nil {
		return nil, err
	}
	stations, err := s.stations.ListByCircuit(ctx, circuitID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stations")
	}
	return stations, nil
}

// FirstStation returns the minimum-rank station, or (nil, nil) when the
// circuit has zero configured stations.
func (s *Service) FirstStation(ctx context.Context, circuitID id.CircuitID) (*models.Station, error) {
	st, err := s.stations.First(ctx, circuitID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve first station")
	}
	return st, nil
}

// NextStation returns the station with the smallest rank strictly greater
// than currentRank, or (nil, nil) when the circuit is exhausted.
func (s *Service) NextStation(ctx context.Context, circuitID id.CircuitID, currentRank int) (*models.Station, error) {
	st, err := s.stations.Next(ctx, circuitID, currentRank)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve next station")
	}
	return st, nil
}

func requireCaller(ctx context.Context) (identity.Identity, error) {
	ident, ok := identity.FromContext(ctx)
	if !ok {
		return identity.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return ident, nil
}

func wrapCircuitErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "circuit not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "circuit store failure")
}
