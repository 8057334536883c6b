package models

import (
	"strings"
	"time"

	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
)

// Circuit is a named, ordered sequence of stations dossiers travel through.
// Topology is static once dossiers are in flight; retirement is a soft
// deactivation that never detaches in-flight dossiers.
type Circuit struct {
	ID           id.CircuitID
	Name         string
	Description  string
	StationCount int
	Active       bool
	CreatedBy    id.UserID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MinStationCount is the smallest circuit worth routing through.
const MinStationCount = 2

// NewCircuit validates and constructs a circuit.
func NewCircuit(circuitID id.CircuitID, name, description string, stationCount int, createdBy id.UserID, now time.Time) (*Circuit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "circuit name is required")
	}
	if stationCount < MinStationCount {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "circuit requires at least two stations")
	}
	return &Circuit{
		ID:           circuitID,
		Name:         name,
		Description:  description,
		StationCount: stationCount,
		Active:       true,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanDeactivate rejects deactivating an already inactive circuit.
func (c *Circuit) CanDeactivate() error {
	if !c.Active {
		return dErrors.New(dErrors.CodeConflict, "circuit is already inactive")
	}
	return nil
}

// ApplyDeactivation marks the circuit inactive.
func (c *Circuit) ApplyDeactivation(now time.Time) {
	c.Active = false
	c.UpdatedAt = now
}
