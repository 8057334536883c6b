package models

import (
	"time"

	id "sged/pkg/domain"
)

// MovementKind classifies a station-transition event. The literals are
// stored and must stay stable: arrival, exit, processing.
type MovementKind string

const (
	MovementArrival    MovementKind = "arrival"
	MovementExit       MovementKind = "exit"
	MovementProcessing MovementKind = "processing"
)

// IsValid checks the kind against the supported set.
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementArrival, MovementExit, MovementProcessing:
		return true
	}
	return false
}

// Movement is one append-only entry of the station-transition ledger. Never
// updated or deleted; the per-dossier sequence ordered by timestamp
// reconstructs the full station-visit history.
type Movement struct {
	ID           id.MovementID
	DossierID    id.DossierID
	StationID    id.StationID
	Kind         MovementKind
	ActorUserID  id.UserID
	Observations string
	Timestamp    time.Time
}

// MovementRecord is the read-model returned to callers: the ledger entry
// enriched with the actor's display name and the station's rank. The
// enrichment is a read-side join, not ledger state.
type MovementRecord struct {
	Movement
	ActorDisplayName string
	StationRank      int
}
