package models

import (
	"encoding/json"
	"strings"
	"time"

	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
)

// Status is the dossier lifecycle state. The string literals are stored and
// must stay stable across releases: pending -> in_progress -> processed,
// with processed terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusProcessed  Status = "processed"
)

// IsValid checks the status against the supported set.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusProcessed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave this status.
func (s Status) IsTerminal() bool { return s == StatusProcessed }

// Dossier is a case file traveling through a circuit. CurrentStationID is
// owned exclusively by this entity: only the routing operations move it, and
// when set it always references a station of CircuitID.
type Dossier struct {
	ID               id.DossierID
	Numero           string
	Type             string
	Description      string
	ClientInfo       json.RawMessage
	CircuitID        id.CircuitID
	CurrentStationID *id.StationID
	Status           Status
	CreatedBy        id.UserID
	CreatedAt        time.Time
	ModifiedAt       time.Time
}

// NewDossier validates and constructs a dossier in the pending state. The
// caller assigns the station pointer separately once the circuit's entry
// station is known.
func NewDossier(dossierID id.DossierID, numero, dossierType, description string, clientInfo json.RawMessage, circuitID id.CircuitID, createdBy id.UserID, now time.Time) (*Dossier, error) {
	numero = strings.TrimSpace(numero)
	if numero == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "numero is required")
	}
	if strings.TrimSpace(dossierType) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "type is required")
	}
	if circuitID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "circuit_id is required")
	}
	return &Dossier{
		ID:          dossierID,
		Numero:      numero,
		Type:        dossierType,
		Description: description,
		ClientInfo:  clientInfo,
		CircuitID:   circuitID,
		Status:      StatusPending,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		ModifiedAt:  now,
	}, nil
}

// AssignStation points the dossier at a station of its circuit.
func (d *Dossier) AssignStation(stationID id.StationID, now time.Time) {
	d.CurrentStationID = &stationID
	d.ModifiedAt = now
}

// MarkInProgress records that the dossier is actively traveling. Idempotent.
func (d *Dossier) MarkInProgress(now time.Time) {
	d.Status = StatusInProgress
	d.ModifiedAt = now
}

// MarkProcessed closes the dossier. Terminal.
func (d *Dossier) MarkProcessed(now time.Time) {
	d.Status = StatusProcessed
	d.ModifiedAt = now
}

// WithoutClientInfo returns a copy with the client payload withheld, for
// callers whose role does not grant access to it.
func (d *Dossier) WithoutClientInfo() *Dossier {
	out := *d
	out.ClientInfo = nil
	return &out
}

// Patch carries optional field updates for the administrative edit. Nil
// fields are left untouched; the merge is pure so it stays independent of
// storage.
type Patch struct {
	Type        *string
	Description *string
	ClientInfo  json.RawMessage
	Status      *Status
}

// Apply merges the patch into the dossier.
func (p Patch) Apply(d *Dossier, now time.Time) error {
	if p.Type != nil {
		if strings.TrimSpace(*p.Type) == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "type cannot be empty")
		}
		d.Type = *p.Type
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.ClientInfo != nil {
		d.ClientInfo = p.ClientInfo
	}
	if p.Status != nil {
		if !p.Status.IsValid() {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid status")
		}
		d.Status = *p.Status
	}
	d.ModifiedAt = now
	return nil
}

// StatusCount is one row of the by-status dossier tally.
type StatusCount struct {
	Status Status
	Count  int
}
