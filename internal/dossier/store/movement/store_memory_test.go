package movement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	circuitmodels "sged/internal/circuit/models"
	"sged/internal/dossier/models"
	"sged/internal/identity"
	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
)

type stationStub map[id.StationID]int

func (s stationStub) FindByID(_ context.Context, stationID id.StationID) (*circuitmodels.Station, error) {
	rank, ok := s[stationID]
	if !ok {
		return nil, fmt.Errorf("station %s: %w", stationID, sentinel.ErrNotFound)
	}
	return &circuitmodels.Station{ID: stationID, Rank: rank}, nil
}

type nameStub map[id.UserID]string

func (n nameStub) Resolve(_ context.Context, userID id.UserID) (identity.Identity, error) {
	name, ok := n[userID]
	if !ok {
		return identity.Identity{}, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	return identity.Identity{ID: userID, DisplayName: name}, nil
}

func newMovement(dossierID id.DossierID, stationID id.StationID, kind models.MovementKind, actor id.UserID, at time.Time) *models.Movement {
	return &models.Movement{
		ID:          id.NewMovementID(),
		DossierID:   dossierID,
		StationID:   stationID,
		Kind:        kind,
		ActorUserID: actor,
		Timestamp:   at,
	}
}

func TestListForOrdersAndEnriches(t *testing.T) {
	ctx := context.Background()
	st1, st2 := id.NewStationID(), id.NewStationID()
	actor := id.NewUserID()
	store := NewInMemory(stationStub{st1: 1, st2: 2}, nameStub{actor: "Walt One"})

	dossierID := id.NewDossierID()
	base := time.Now()

	// Appended out of chronological order on purpose.
	require.NoError(t, store.Append(ctx, newMovement(dossierID, st2, models.MovementArrival, actor, base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, newMovement(dossierID, st1, models.MovementExit, actor, base)))

	records, err := store.ListFor(ctx, dossierID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.MovementExit, records[0].Kind)
	assert.Equal(t, 1, records[0].StationRank)
	assert.Equal(t, models.MovementArrival, records[1].Kind)
	assert.Equal(t, 2, records[1].StationRank)
	assert.Equal(t, "Walt One", records[0].ActorDisplayName)
}

func TestListForToleratesUnknownReferences(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(stationStub{}, nameStub{})

	dossierID := id.NewDossierID()
	require.NoError(t, store.Append(ctx, newMovement(dossierID, id.NewStationID(), models.MovementExit, id.NewUserID(), time.Now())))

	records, err := store.ListFor(ctx, dossierID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Zero(t, records[0].StationRank)
	assert.Empty(t, records[0].ActorDisplayName)
}

func TestLastForReturnsNewestEntry(t *testing.T) {
	ctx := context.Background()
	st := id.NewStationID()
	actor := id.NewUserID()
	store := NewInMemory(stationStub{st: 1}, nameStub{actor: "Walt One"})

	dossierID := id.NewDossierID()
	base := time.Now()
	require.NoError(t, store.Append(ctx, newMovement(dossierID, st, models.MovementExit, actor, base)))
	require.NoError(t, store.Append(ctx, newMovement(dossierID, st, models.MovementArrival, actor, base.Add(time.Second))))
	require.NoError(t, store.Append(ctx, newMovement(dossierID, st, models.MovementProcessing, actor, base.Add(2*time.Second))))

	last, err := store.LastFor(ctx, dossierID)
	require.NoError(t, err)
	assert.Equal(t, models.MovementProcessing, last.Kind)
}

func TestLastForEmptyLedger(t *testing.T) {
	store := NewInMemory(stationStub{}, nameStub{})

	_, err := store.LastFor(context.Background(), id.NewDossierID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestAppendCopiesEntry(t *testing.T) {
	ctx := context.Background()
	st := id.NewStationID()
	store := NewInMemory(stationStub{st: 1}, nameStub{})

	dossierID := id.NewDossierID()
	m := newMovement(dossierID, st, models.MovementExit, id.NewUserID(), time.Now())
	require.NoError(t, store.Append(ctx, m))

	// Mutating the caller's value after the append must not reach the ledger.
	m.Observations = "tampered"

	records, err := store.ListFor(ctx, dossierID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Observations)
}
