package models

import (
	"time"

	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
)

// Station (borne) is one stop in a circuit. Rank defines the total order
// within the circuit; the engine only relies on relative ordering, so ranks
// need not be contiguous. Exactly one station occupies a given
// (circuit, rank) pair.
type Station struct {
	ID             id.StationID
	CircuitID      id.CircuitID
	Rank           int
	AssignedUserID id.UserID
	Conditions     string
	CreatedAt      time.Time
}

// NewStation validates and constructs a station.
func NewStation(stationID id.StationID, circuitID id.CircuitID, rank int, assignedUserID id.UserID, conditions string, now time.Time) (*Station, error) {
	if circuitID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "circuit_id is required")
	}
	if rank <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "rank must be a positive integer")
	}
	if assignedUserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "assigned user is required")
	}
	return &Station{
		ID:             stationID,
		CircuitID:      circuitID,
		Rank:           rank,
		AssignedUserID: assignedUserID,
		Conditions:     conditions,
		CreatedAt:      now,
	}, nil
}
