package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	circuitmodels "sged/internal/circuit/models"
	circuitstore "sged/internal/circuit/store/circuit"
	stationstore "sged/internal/circuit/store/station"
	"sged/internal/dossier/models"
	dossierstore "sged/internal/dossier/store/dossier"
	historystore "sged/internal/dossier/store/history"
	movementstore "sged/internal/dossier/store/movement"
	"sged/internal/identity"
	"sged/internal/notification"
	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
	txcontext "sged/pkg/platform/tx"
)

// captureNotifier records notifications synchronously so tests can assert on
// them without draining a dispatcher.
type captureNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (c *captureNotifier) Notify(_ context.Context, n notification.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
}

func (c *captureNotifier) sentTo(userID id.UserID) []notification.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notification.Notification
	for _, n := range c.sent {
		if n.Recipient == userID {
			out = append(out, n)
		}
	}
	return out
}

type RoutingServiceSuite struct {
	suite.Suite
	circuits  *circuitstore.InMemory
	stations  *stationstore.InMemory
	directory *identity.MemoryDirectory
	notifier  *captureNotifier
	svc       *Service

	admin   identity.Identity
	intake  identity.Identity
	worker1 identity.Identity
	worker2 identity.Identity

	circuit *circuitmodels.Circuit
	st1     *circuitmodels.Station
	st2     *circuitmodels.Station
}

func (s *RoutingServiceSuite) SetupTest() {
	s.circuits = circuitstore.NewInMemory()
	s.stations = stationstore.NewInMemory()
	s.directory = identity.NewMemoryDirectory()
	s.notifier = &captureNotifier{}

	s.admin = identity.Identity{ID: id.NewUserID(), Role: identity.RoleAdmin, DisplayName: "Ada Admin", Active: true}
	s.intake = identity.Identity{ID: id.NewUserID(), Role: identity.RoleIntake, DisplayName: "Ines Intake", Active: true}
	s.worker1 = identity.Identity{ID: id.NewUserID(), Role: identity.RoleStandard, DisplayName: "Walt One", Active: true}
	s.worker2 = identity.Identity{ID: id.NewUserID(), Role: identity.RoleStandard, DisplayName: "Wanda Two", Active: true}
	for _, ident := range []identity.Identity{s.admin, s.intake, s.worker1, s.worker2} {
		s.directory.Put(ident)
	}
	// Put derives capabilities; refresh local copies.
	for _, p := range []*identity.Identity{&s.admin, &s.intake, &s.worker1, &s.worker2} {
		resolved, err := s.directory.Resolve(context.Background(), p.ID)
		require.NoError(s.T(), err)
		*p = resolved
	}

	now := time.Now()
	circuit, err := circuitmodels.NewCircuit(id.NewCircuitID(), "validation", "", 2, s.admin.ID, now)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.circuits.Create(context.Background(), circuit))
	s.circuit = circuit

	st1, err := circuitmodels.NewStation(id.NewStationID(), circuit.ID, 1, s.worker1.ID, "", now)
	require.NoError(s.T(), err)
	st2, err := circuitmodels.NewStation(id.NewStationID(), circuit.ID, 2, s.worker2.ID, "", now)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.stations.Create(context.Background(), st1))
	require.NoError(s.T(), s.stations.Create(context.Background(), st2))
	s.st1, s.st2 = st1, st2

	dossiers := dossierstore.NewInMemory(s.stations)
	movements := movementstore.NewInMemory(s.stations, s.directory)
	history := historystore.NewInMemory(s.directory, dossiers)

	s.svc = New(
		dossiers, movements, history,
		s.circuits, s.stations, s.directory,
		txcontext.NewNoopRunner(),
		WithNotifier(s.notifier),
	)
}

func (s *RoutingServiceSuite) as(ident identity.Identity) context.Context {
	return identity.WithContext(context.Background(), ident)
}

func (s *RoutingServiceSuite) create(numero string) *models.Dossier {
	d, err := s.svc.Create(s.as(s.intake), CreateDossierInput{
		Numero:    numero,
		Type:      "passport",
		CircuitID: s.circuit.ID,
	})
	require.NoError(s.T(), err)
	return d
}

func (s *RoutingServiceSuite) TestCreateStartsPendingAtEntryStation() {
	d := s.create("D-001")

	assert.Equal(s.T(), models.StatusPending, d.Status)
	require.NotNil(s.T(), d.CurrentStationID)
	assert.Equal(s.T(), s.st1.ID, *d.CurrentStationID)
	assert.Equal(s.T(), s.intake.ID, d.CreatedBy)

	pending := s.notifier.sentTo(s.worker1.ID)
	require.Len(s.T(), pending, 1)
	assert.Equal(s.T(), notification.TypeDossierPending, pending[0].Type)

	history, err := s.svc.HistoryFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 1)
	assert.Equal(s.T(), models.ActionDossierCreated, history[0].Action)
	assert.Equal(s.T(), "Ines Intake", history[0].ActorDisplayName)
}

func (s *RoutingServiceSuite) TestCreateDuplicateNumero() {
	s.create("D-001")
	_, err := s.svc.Create(s.as(s.intake), CreateDossierInput{
		Numero:    "D-001",
		Type:      "passport",
		CircuitID: s.circuit.ID,
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RoutingServiceSuite) TestCreateRequiresIntakeCapability() {
	_, err := s.svc.Create(s.as(s.worker1), CreateDossierInput{
		Numero:    "D-001",
		Type:      "passport",
		CircuitID: s.circuit.ID,
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *RoutingServiceSuite) TestCreateOnInactiveCircuit() {
	s.circuit.ApplyDeactivation(time.Now())
	require.NoError(s.T(), s.circuits.Update(context.Background(), s.circuit))

	_, err := s.svc.Create(s.as(s.intake), CreateDossierInput{
		Numero:    "D-001",
		Type:      "passport",
		CircuitID: s.circuit.ID,
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RoutingServiceSuite) TestCreateOnUnknownCircuit() {
	_, err := s.svc.Create(s.as(s.intake), CreateDossierInput{
		Numero:    "D-001",
		Type:      "passport",
		CircuitID: id.NewCircuitID(),
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RoutingServiceSuite) TestExitAdvancesToNextStation() {
	d := s.create("D-001")

	moved, err := s.svc.Exit(s.as(s.intake), d.ID, "checked in")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), models.StatusInProgress, moved.Status)
	require.NotNil(s.T(), moved.CurrentStationID)
	assert.Equal(s.T(), s.st2.ID, *moved.CurrentStationID)

	movements, err := s.svc.MovementsFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), movements, 1)
	assert.Equal(s.T(), models.MovementExit, movements[0].Kind)
	assert.Equal(s.T(), s.st1.ID, movements[0].StationID)
	assert.Equal(s.T(), 1, movements[0].StationRank)
	assert.Equal(s.T(), "checked in", movements[0].Observations)

	incoming := s.notifier.sentTo(s.worker2.ID)
	require.Len(s.T(), incoming, 1)
	assert.Equal(s.T(), notification.TypeDossierIncoming, incoming[0].Type)
}

func (s *RoutingServiceSuite) TestExitAtFinalStation() {
	d := s.create("D-001")
	_, err := s.svc.Exit(s.as(s.intake), d.ID, "")
	require.NoError(s.T(), err)

	_, err = s.svc.Exit(s.as(s.intake), d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RoutingServiceSuite) TestExitRequiresIntakeCapability() {
	d := s.create("D-001")
	_, err := s.svc.Exit(s.as(s.worker1), d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *RoutingServiceSuite) TestArriveByAssignedUser() {
	d := s.create("D-001")

	arrived, err := s.svc.Arrive(s.as(s.worker1), d.ID, "on my desk")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusInProgress, arrived.Status)
	require.NotNil(s.T(), arrived.CurrentStationID)
	assert.Equal(s.T(), s.st1.ID, *arrived.CurrentStationID)

	movements, err := s.svc.MovementsFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), movements, 1)
	assert.Equal(s.T(), models.MovementArrival, movements[0].Kind)
}

func (s *RoutingServiceSuite) TestArriveByWrongUser() {
	d := s.create("D-001")
	_, err := s.svc.Arrive(s.as(s.worker2), d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	// The rejected arrival must leave no trace in either ledger.
	movements, err := s.svc.MovementsFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), movements)

	history, err := s.svc.HistoryFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 1)
	assert.Equal(s.T(), models.ActionDossierCreated, history[0].Action)
}

func (s *RoutingServiceSuite) TestArriveTwiceKeepsBothLedgerEntries() {
	d := s.create("D-001")
	_, err := s.svc.Arrive(s.as(s.worker1), d.ID, "first")
	require.NoError(s.T(), err)
	arrived, err := s.svc.Arrive(s.as(s.worker1), d.ID, "second")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusInProgress, arrived.Status)

	movements, err := s.svc.MovementsFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), movements, 2)
}

func (s *RoutingServiceSuite) TestFinalizeAtFinalStation() {
	d := s.create("D-001")
	_, err := s.svc.Exit(s.as(s.intake), d.ID, "")
	require.NoError(s.T(), err)
	_, err = s.svc.Arrive(s.as(s.worker2), d.ID, "")
	require.NoError(s.T(), err)

	done, err := s.svc.Finalize(s.as(s.worker2), d.ID, "all good")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusProcessed, done.Status)

	movements, err := s.svc.MovementsFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), movements, 3)
	assert.Equal(s.T(), models.MovementExit, movements[0].Kind)
	assert.Equal(s.T(), models.MovementArrival, movements[1].Kind)
	assert.Equal(s.T(), models.MovementProcessing, movements[2].Kind)

	broadcast := s.notifier.sentTo(s.admin.ID)
	require.Len(s.T(), broadcast, 1)
	assert.Equal(s.T(), notification.TypeDossierProcessed, broadcast[0].Type)
}

func (s *RoutingServiceSuite) TestFinalizeBeforeFinalStation() {
	d := s.create("D-001")
	_, err := s.svc.Finalize(s.as(s.worker1), d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RoutingServiceSuite) TestFinalizeByWrongUser() {
	d := s.create("D-001")
	_, err := s.svc.Exit(s.as(s.intake), d.ID, "")
	require.NoError(s.T(), err)

	_, err = s.svc.Finalize(s.as(s.worker1), d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	// Only the exit reached the ledgers; the rejected finalize wrote nothing.
	movements, err := s.svc.MovementsFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), movements, 1)
	assert.Equal(s.T(), models.MovementExit, movements[0].Kind)

	history, err := s.svc.HistoryFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), history, 2)
}

func (s *RoutingServiceSuite) TestFinalizeProcessedDossier() {
	d := s.create("D-001")
	_, err := s.svc.Exit(s.as(s.intake), d.ID, "")
	require.NoError(s.T(), err)
	_, err = s.svc.Finalize(s.as(s.worker2), d.ID, "")
	require.NoError(s.T(), err)

	_, err = s.svc.Finalize(s.as(s.worker2), d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.svc.Exit(s.as(s.intake), d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.svc.Arrive(s.as(s.worker2), d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RoutingServiceSuite) TestStationlessDossierFinalize() {
	now := time.Now()
	bare, err := circuitmodels.NewCircuit(id.NewCircuitID(), "empty", "", 2, s.admin.ID, now)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.circuits.Create(context.Background(), bare))

	d, err := s.svc.Create(s.as(s.intake), CreateDossierInput{
		Numero:    "D-BARE",
		Type:      "passport",
		CircuitID: bare.ID,
	})
	require.NoError(s.T(), err)
	assert.Nil(s.T(), d.CurrentStationID)

	done, err := s.svc.Finalize(s.as(s.worker2), d.ID, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusProcessed, done.Status)

	movements, err := s.svc.MovementsFor(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), movements)
}

func (s *RoutingServiceSuite) TestFullCircuitRunHistory() {
	d := s.create("D-001")
	_, err := s.svc.Arrive(s.as(s.worker1), d.ID, "")
	require.NoError(s.T(), err)
	_, err = s.svc.Exit(s.as(s.intake), d.ID, "")
	require.NoError(s.T(), err)
	_, err = s.svc.Arrive(s.as(s.worker2), d.ID, "")
	require.NoError(s.T(), err)
	_, err = s.svc.Finalize(s.as(s.worker2), d.ID, "")
	require.NoError(s.T(), err)

	history, err := s.svc.HistoryFor(s.as(s.admin), d.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 5)
	// Newest first.
	assert.Equal(s.T(), models.ActionDossierProcessed, history[0].Action)
	assert.Equal(s.T(), models.ActionDossierCreated, history[4].Action)
}

func (s *RoutingServiceSuite) TestCreateCarriesClientInfo() {
	payload := json.RawMessage(`{"name":"Marie"}`)
	d, err := s.svc.Create(s.as(s.intake), CreateDossierInput{
		Numero:     "D-CI",
		Type:       "passport",
		ClientInfo: payload,
		CircuitID:  s.circuit.ID,
	})
	require.NoError(s.T(), err)
	assert.JSONEq(s.T(), `{"name":"Marie"}`, string(d.ClientInfo))
}

func (s *RoutingServiceSuite) TestUnauthenticatedCalls() {
	d := s.create("D-001")
	ctx := context.Background()

	_, err := s.svc.Exit(ctx, d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.svc.Arrive(ctx, d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.svc.Finalize(ctx, d.ID, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestRoutingServiceSuite(t *testing.T) {
	suite.Run(t, new(RoutingServiceSuite))
}
