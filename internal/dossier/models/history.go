package models

import (
	"time"

	id "sged/pkg/domain"
)

// HistoryAction tags a lifecycle-affecting action in the audit trail.
type HistoryAction string

const (
	ActionDossierCreated   HistoryAction = "dossier_created"
	ActionDossierUpdated   HistoryAction = "dossier_updated"
	ActionDossierExited    HistoryAction = "dossier_exited"
	ActionDossierArrived   HistoryAction = "dossier_arrived"
	ActionDossierProcessed HistoryAction = "dossier_processed"
)

// HistoryEntry is one append-only audit record. It covers every
// lifecycle-affecting action, movement-producing or not, and is never
// updated or deleted.
type HistoryEntry struct {
	ID          id.HistoryID
	DossierID   id.DossierID
	Action      HistoryAction
	Details     string
	ActorUserID id.UserID
	Timestamp   time.Time
}

// HistoryRecord is the read-model: the entry enriched with the actor's
// display name and, on cross-dossier queries, the dossier numero.
type HistoryRecord struct {
	HistoryEntry
	ActorDisplayName string
	DossierNumero    string
}

// HistoryFilter scopes cross-dossier history queries. Date bounds are
// inclusive and compare against the date component of the entry timestamp.
type HistoryFilter struct {
	ActorUserID *id.UserID
	DateFrom    *time.Time
	DateTo      *time.Time
}

// HistoryListCap bounds unscoped history queries. A protective cap, not a
// business rule.
const HistoryListCap = 100
