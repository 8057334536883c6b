package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
)

func TestStatusValidity(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusInProgress.IsValid())
	assert.True(t, StatusProcessed.IsValid())
	assert.False(t, Status("archived").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusProcessed.IsTerminal())
}

func TestNewDossierValidation(t *testing.T) {
	now := time.Now()
	circuitID := id.NewCircuitID()
	creator := id.NewUserID()

	t.Run("valid", func(t *testing.T) {
		d, err := NewDossier(id.NewDossierID(), " D-001 ", "passport", "", nil, circuitID, creator, now)
		require.NoError(t, err)
		assert.Equal(t, "D-001", d.Numero)
		assert.Equal(t, StatusPending, d.Status)
		assert.Nil(t, d.CurrentStationID)
	})

	t.Run("missing numero", func(t *testing.T) {
		_, err := NewDossier(id.NewDossierID(), "  ", "passport", "", nil, circuitID, creator, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := NewDossier(id.NewDossierID(), "D-001", "", "", nil, circuitID, creator, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("missing circuit", func(t *testing.T) {
		_, err := NewDossier(id.NewDossierID(), "D-001", "passport", "", nil, id.CircuitID{}, creator, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestWithoutClientInfo(t *testing.T) {
	d := &Dossier{Numero: "D-001", ClientInfo: json.RawMessage(`{"name":"Marie"}`)}
	redacted := d.WithoutClientInfo()
	assert.Nil(t, redacted.ClientInfo)
	assert.NotNil(t, d.ClientInfo, "original must keep its payload")
	assert.Equal(t, d.Numero, redacted.Numero)
}

func TestPatchApply(t *testing.T) {
	now := time.Now()
	base := func() *Dossier {
		return &Dossier{
			Numero:      "D-001",
			Type:        "passport",
			Description: "initial",
			Status:      StatusPending,
		}
	}

	t.Run("nil fields untouched", func(t *testing.T) {
		d := base()
		require.NoError(t, Patch{}.Apply(d, now))
		assert.Equal(t, "passport", d.Type)
		assert.Equal(t, "initial", d.Description)
		assert.Equal(t, StatusPending, d.Status)
		assert.Equal(t, now, d.ModifiedAt)
	})

	t.Run("merges set fields", func(t *testing.T) {
		d := base()
		newType := "visa"
		desc := ""
		status := StatusInProgress
		err := Patch{Type: &newType, Description: &desc, Status: &status, ClientInfo: json.RawMessage(`{}`)}.Apply(d, now)
		require.NoError(t, err)
		assert.Equal(t, "visa", d.Type)
		assert.Equal(t, "", d.Description)
		assert.Equal(t, StatusInProgress, d.Status)
		assert.JSONEq(t, `{}`, string(d.ClientInfo))
	})

	t.Run("rejects empty type", func(t *testing.T) {
		d := base()
		empty := " "
		err := Patch{Type: &empty}.Apply(d, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		d := base()
		bad := Status("archived")
		err := Patch{Status: &bad}.Apply(d, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestMovementKindValidity(t *testing.T) {
	assert.True(t, MovementArrival.IsValid())
	assert.True(t, MovementExit.IsValid())
	assert.True(t, MovementProcessing.IsValid())
	assert.False(t, MovementKind("teleport").IsValid())
}
