package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
)

func TestNewCircuit(t *testing.T) {
	now := time.Now()
	creator := id.NewUserID()

	c, err := NewCircuit(id.NewCircuitID(), "  validation  ", "standard run", 3, creator, now)
	require.NoError(t, err)
	assert.Equal(t, "validation", c.Name)
	assert.True(t, c.Active)

	_, err = NewCircuit(id.NewCircuitID(), "   ", "", 3, creator, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewCircuit(id.NewCircuitID(), "too-small", "", 1, creator, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCircuitDeactivation(t *testing.T) {
	now := time.Now()
	c, err := NewCircuit(id.NewCircuitID(), "validation", "", 2, id.NewUserID(), now)
	require.NoError(t, err)

	require.NoError(t, c.CanDeactivate())
	c.ApplyDeactivation(now)
	assert.False(t, c.Active)
	assert.True(t, dErrors.HasCode(c.CanDeactivate(), dErrors.CodeConflict))
}

func TestNewStation(t *testing.T) {
	now := time.Now()
	circuitID := id.NewCircuitID()
	user := id.NewUserID()

	st, err := NewStation(id.NewStationID(), circuitID, 1, user, "stamped form", now)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Rank)

	_, err = NewStation(id.NewStationID(), circuitID, 0, user, "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewStation(id.NewStationID(), id.CircuitID{}, 1, user, "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewStation(id.NewStationID(), circuitID, 1, id.UserID{}, "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
