// Package ports defines the interfaces the routing engine consumes. They are
// placed here because stores, collaborator adapters and tests all implement
// them.
package ports

import (
	"context"

	"sged/internal/circuit/models"
	dossiermodels "sged/internal/dossier/models"
	"sged/internal/identity"
	"sged/internal/notification"
	id "sged/pkg/domain"
)

// DossierFilter scopes dossier listings. Nil fields match everything.
type DossierFilter struct {
	Status    *dossiermodels.Status
	Type      *string
	CircuitID *id.CircuitID
}

// DossierStore persists dossiers.
type DossierStore interface {
	// Create inserts a dossier. A duplicate numero yields
	// sentinel.ErrConflict (wrapped).
	Create(ctx context.Context, d *dossiermodels.Dossier) error

	// FindByID fetches a dossier.
	FindByID(ctx context.Context, dossierID id.DossierID) (*dossiermodels.Dossier, error)

	// FindByIDForUpdate fetches a dossier and, inside a transaction,
	// locks its row so concurrent transitions serialize.
	FindByIDForUpdate(ctx context.Context, dossierID id.DossierID) (*dossiermodels.Dossier, error)

	// FindByNumero fetches a dossier by its caller-assigned number.
	FindByNumero(ctx context.Context, numero string) (*dossiermodels.Dossier, error)

	// List returns dossiers matching the filter, newest first.
	List(ctx context.Context, filter DossierFilter) ([]*dossiermodels.Dossier, error)

	// ListByCreator returns dossiers created by a user, newest first.
	ListByCreator(ctx context.Context, userID id.UserID) ([]*dossiermodels.Dossier, error)

	// ListInProgressAtStationOf returns in_progress dossiers currently
	// sitting at a station assigned to the user, most recently modified
	// first. This is the station worker's queue.
	ListInProgressAtStationOf(ctx context.Context, userID id.UserID) ([]*dossiermodels.Dossier, error)

	// Update persists dossier mutations.
	Update(ctx context.Context, d *dossiermodels.Dossier) error

	// CountByStatus tallies dossiers per status.
	CountByStatus(ctx context.Context) ([]dossiermodels.StatusCount, error)
}

// MovementStore is the append-only station-transition ledger.
type MovementStore interface {
	// Append records a movement. Entries are immutable once written.
	Append(ctx context.Context, m *dossiermodels.Movement) error

	// ListFor returns the dossier's movements ascending by timestamp,
	// enriched with actor display name and station rank.
	ListFor(ctx context.Context, dossierID id.DossierID) ([]*dossiermodels.MovementRecord, error)

	// LastFor returns the most recent movement, or sentinel.ErrNotFound.
	LastFor(ctx context.Context, dossierID id.DossierID) (*dossiermodels.Movement, error)
}

// HistoryStore is the append-only audit ledger.
type HistoryStore interface {
	// Append records a history entry. Entries are immutable once written.
	Append(ctx context.Context, h *dossiermodels.HistoryEntry) error

	// ListFor returns a dossier's history, descending by timestamp.
	ListFor(ctx context.Context, dossierID id.DossierID) ([]*dossiermodels.HistoryRecord, error)

	// ListAll returns filtered history across dossiers, descending,
	// capped at models.HistoryListCap rows.
	ListAll(ctx context.Context, filter dossiermodels.HistoryFilter) ([]*dossiermodels.HistoryRecord, error)
}

// CircuitLookup resolves circuits for routing decisions.
type CircuitLookup interface {
	FindByID(ctx context.Context, circuitID id.CircuitID) (*models.Circuit, error)
}

// StationLookup answers the topology queries routing needs.
type StationLookup interface {
	FindByID(ctx context.Context, stationID id.StationID) (*models.Station, error)
	// First returns the minimum-rank station or sentinel.ErrNotFound when
	// the circuit has no stations.
	First(ctx context.Context, circuitID id.CircuitID) (*models.Station, error)
	// Next returns the station with the smallest rank strictly above
	// currentRank or sentinel.ErrNotFound when the circuit is exhausted.
	Next(ctx context.Context, circuitID id.CircuitID, currentRank int) (*models.Station, error)
}

// Notifier accepts notification payloads, fire-and-forget. Implementations
// must never block the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// RecipientDirectory answers broadcast recipient queries without exposing
// the identity store schema to the engine.
type RecipientDirectory interface {
	ListRecipientsWithCapability(ctx context.Context, cap identity.Capability) ([]identity.Identity, error)
}
