// Package domain holds the typed identifiers shared across modules.
//
// Each ID wraps a UUID so the compiler catches a circuit ID handed to a
// function expecting a dossier ID. Construct with NewXxxID or by casting a
// parsed uuid.UUID at trust boundaries.
package domain

import "github.com/google/uuid"

// UserID identifies an account in the identity directory.
type UserID uuid.UUID

// CircuitID identifies a circuit.
type CircuitID uuid.UUID

// StationID identifies a station (borne) within a circuit.
type StationID uuid.UUID

// DossierID identifies a dossier.
type DossierID uuid.UUID

// MovementID identifies one movement ledger entry.
type MovementID uuid.UUID

// HistoryID identifies one history ledger entry.
type HistoryID uuid.UUID

func NewUserID() UserID         { return UserID(uuid.New()) }
func NewCircuitID() CircuitID   { return CircuitID(uuid.New()) }
func NewStationID() StationID   { return StationID(uuid.New()) }
func NewDossierID() DossierID   { return DossierID(uuid.New()) }
func NewMovementID() MovementID { return MovementID(uuid.New()) }
func NewHistoryID() HistoryID   { return HistoryID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id CircuitID) String() string  { return uuid.UUID(id).String() }
func (id StationID) String() string  { return uuid.UUID(id).String() }
func (id DossierID) String() string  { return uuid.UUID(id).String() }
func (id MovementID) String() string { return uuid.UUID(id).String() }
func (id HistoryID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CircuitID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id StationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id DossierID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id MovementID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id HistoryID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// ParseUserID parses external input into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseCircuitID parses external input into a CircuitID.
func ParseCircuitID(s string) (CircuitID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CircuitID{}, err
	}
	return CircuitID(u), nil
}

// ParseStationID parses external input into a StationID.
func ParseStationID(s string) (StationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return StationID{}, err
	}
	return StationID(u), nil
}

// ParseDossierID parses external input into a DossierID.
func ParseDossierID(s string) (DossierID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DossierID{}, err
	}
	return DossierID(u), nil
}
