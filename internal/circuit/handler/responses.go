package handler

import (
	"time"

	"sged/internal/circuit/models"
)

// CircuitResponse is the HTTP representation of a circuit.
type CircuitResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	StationCount int       `json:"station_count"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FromCircuit converts a domain circuit to its HTTP representation.
func FromCircuit(c *models.Circuit) *CircuitResponse {
	return &CircuitResponse{
		ID:           c.ID.String(),
		Name:         c.Name,
		Description:  c.Description,
		StationCount: c.StationCount,
		Active:       c.Active,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// StationResponse is the HTTP representation of a station.
type StationResponse struct {
	ID             string    `json:"id"`
	CircuitID      string    `json:"circuit_id"`
	Rank           int       `json:"rank"`
	AssignedUserID string    `json:"assigned_user_id"`
	Conditions     string    `json:"conditions,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FromStation converts a domain station to its HTTP representation.
func FromStation(st *models.Station) *StationResponse {
	return &StationResponse{
		ID:             st.ID.String(),
		CircuitID:      st.CircuitID.String(),
		Rank:           st.Rank,
		AssignedUserID: st.AssignedUserID.String(),
		Conditions:     st.Conditions,
		CreatedAt:      st.CreatedAt,
	}
}
