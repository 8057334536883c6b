package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"sged/internal/dossier/models"
	"sged/internal/dossier/ports"
	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
)

// QueryServiceSuite reuses the routing fixture; the read side operates on
// dossiers the routing operations produced.
type QueryServiceSuite struct {
	RoutingServiceSuite
}

func (s *QueryServiceSuite) TestGetWithholdsClientInfoFromStationUsers() {
	d, err := s.svc.Create(s.as(s.intake), CreateDossierInput{
		Numero:     "D-001",
		Type:       "passport",
		ClientInfo: json.RawMessage(`{"name":"Marie"}`),
		CircuitID:  s.circuit.ID,
	})
	require.NoError(s.T(), err)

	seen, err := s.svc.Get(s.as(s.worker1), d.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), seen.ClientInfo)

	seen, err = s.svc.Get(s.as(s.intake), d.ID)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), seen.ClientInfo)

	seen, err = s.svc.Get(s.as(s.admin), d.ID)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), seen.ClientInfo)
}

func (s *QueryServiceSuite) TestGetUnknownDossier() {
	_, err := s.svc.Get(s.as(s.intake), id.NewDossierID())
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *QueryServiceSuite) TestListWithStatusFilter() {
	s.create("D-001")
	d2 := s.create("D-002")
	_, err := s.svc.Exit(s.as(s.intake), d2.ID, "")
	require.NoError(s.T(), err)

	pending := models.StatusPending
	out, err := s.svc.List(s.as(s.admin), ports.DossierFilter{Status: &pending})
	require.NoError(s.T(), err)
	require.Len(s.T(), out, 1)
	assert.Equal(s.T(), "D-001", out[0].Numero)

	inProgress := models.StatusInProgress
	out, err = s.svc.List(s.as(s.admin), ports.DossierFilter{Status: &inProgress})
	require.NoError(s.T(), err)
	require.Len(s.T(), out, 1)
	assert.Equal(s.T(), "D-002", out[0].Numero)
}

func (s *QueryServiceSuite) TestListMineForIntakeUser() {
	s.create("D-001")
	s.create("D-002")

	mine, err := s.svc.ListMine(s.as(s.intake))
	require.NoError(s.T(), err)
	assert.Len(s.T(), mine, 2)
}

func (s *QueryServiceSuite) TestListMineForStationUser() {
	d := s.create("D-001")
	s.create("D-002")
	_, err := s.svc.Exit(s.as(s.intake), d.ID, "")
	require.NoError(s.T(), err)

	// D-001 is now in_progress at worker2's station; D-002 still pending at
	// worker1's.
	queue, err := s.svc.ListMine(s.as(s.worker2))
	require.NoError(s.T(), err)
	require.Len(s.T(), queue, 1)
	assert.Equal(s.T(), "D-001", queue[0].Numero)

	queue, err = s.svc.ListMine(s.as(s.worker1))
	require.NoError(s.T(), err)
	assert.Empty(s.T(), queue)
}

func (s *QueryServiceSuite) TestStatsRequiresAdminister() {
	s.create("D-001")
	d2 := s.create("D-002")
	_, err := s.svc.Exit(s.as(s.intake), d2.ID, "")
	require.NoError(s.T(), err)

	_, err = s.svc.Stats(s.as(s.intake))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	counts, err := s.svc.Stats(s.as(s.admin))
	require.NoError(s.T(), err)
	tally := make(map[models.Status]int)
	for _, sc := range counts {
		tally[sc.Status] = sc.Count
	}
	assert.Equal(s.T(), 1, tally[models.StatusPending])
	assert.Equal(s.T(), 1, tally[models.StatusInProgress])
}

func (s *QueryServiceSuite) TestUpdateAppliesPatchAndAudits() {
	d := s.create("D-001")

	newType := "visa"
	updated, err := s.svc.Update(s.as(s.admin), d.ID, models.Patch{Type: &newType})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "visa", updated.Type)
	assert.Equal(s.T(), models.StatusPending, updated.Status)
	require.NotNil(s.T(), updated.CurrentStationID)
	assert.Equal(s.T(), s.st1.ID, *updated.CurrentStationID)

	history, err := s.svc.HistoryFor(s.as(s.admin), d.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 2)
	assert.Equal(s.T(), models.ActionDossierUpdated, history[0].Action)
}

func (s *QueryServiceSuite) TestUpdateRequiresAdminister() {
	d := s.create("D-001")
	newType := "visa"
	_, err := s.svc.Update(s.as(s.intake), d.ID, models.Patch{Type: &newType})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *QueryServiceSuite) TestHistoryAllFiltersAndGuards() {
	d := s.create("D-001")
	_, err := s.svc.Exit(s.as(s.intake), d.ID, "")
	require.NoError(s.T(), err)

	_, err = s.svc.HistoryAll(s.as(s.intake), models.HistoryFilter{})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	all, err := s.svc.HistoryAll(s.as(s.admin), models.HistoryFilter{})
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 2)

	actor := s.intake.ID
	byActor, err := s.svc.HistoryAll(s.as(s.admin), models.HistoryFilter{ActorUserID: &actor})
	require.NoError(s.T(), err)
	assert.Len(s.T(), byActor, 2)

	tomorrow := time.Now().Add(24 * time.Hour)
	none, err := s.svc.HistoryAll(s.as(s.admin), models.HistoryFilter{DateFrom: &tomorrow})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), none)
}

func (s *QueryServiceSuite) TestMovementsForUnknownDossier() {
	_, err := s.svc.MovementsFor(s.as(s.intake), id.NewDossierID())
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestQueryServiceSuite(t *testing.T) {
	suite.Run(t, new(QueryServiceSuite))
}
