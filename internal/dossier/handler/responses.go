package handler

import (
	"encoding/json"
	"time"

	"sged/internal/dossier/models"
)

// DossierResponse is the HTTP representation of a dossier. ClientInfo is
// absent when the caller's role withholds it.
type DossierResponse struct {
	ID               string          `json:"id"`
	Numero           string          `json:"numero"`
	Type             string          `json:"type"`
	Description      string          `json:"description,omitempty"`
	ClientInfo       json.RawMessage `json:"client_info,omitempty"`
	CircuitID        string          `json:"circuit_id"`
	CurrentStationID string          `json:"current_station_id,omitempty"`
	Status           string          `json:"status"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	ModifiedAt       time.Time       `json:"modified_at"`
}

// FromDossier converts a domain dossier to its HTTP representation.
func FromDossier(d *models.Dossier) *DossierResponse {
	out := &DossierResponse{
		ID:          d.ID.String(),
		Numero:      d.Numero,
		Type:        d.Type,
		Description: d.Description,
		ClientInfo:  d.ClientInfo,
		CircuitID:   d.CircuitID.String(),
		Status:      string(d.Status),
		CreatedBy:   d.CreatedBy.String(),
		CreatedAt:   d.CreatedAt,
		ModifiedAt:  d.ModifiedAt,
	}
	if d.CurrentStationID != nil {
		out.CurrentStationID = d.CurrentStationID.String()
	}
	return out
}

// FromDossiers converts a dossier slice to its HTTP representation.
func FromDossiers(dossiers []*models.Dossier) []*DossierResponse {
	out := make([]*DossierResponse, 0, len(dossiers))
	for _, d := range dossiers {
		out = append(out, FromDossier(d))
	}
	return out
}

// MovementResponse is the HTTP representation of one movement ledger entry.
type MovementResponse struct {
	ID           string    `json:"id"`
	StationID    string    `json:"station_id"`
	StationRank  int       `json:"station_rank"`
	Kind         string    `json:"kind"`
	ActorID      string    `json:"actor_id"`
	ActorName    string    `json:"actor_name,omitempty"`
	Observations string    `json:"observations,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// FromMovements converts movement records to their HTTP representation.
func FromMovements(records []*models.MovementRecord) []*MovementResponse {
	out := make([]*MovementResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, &MovementResponse{
			ID:           rec.ID.String(),
			StationID:    rec.StationID.String(),
			StationRank:  rec.StationRank,
			Kind:         string(rec.Kind),
			ActorID:      rec.ActorUserID.String(),
			ActorName:    rec.ActorDisplayName,
			Observations: rec.Observations,
			Timestamp:    rec.Timestamp,
		})
	}
	return out
}

// HistoryResponse is the HTTP representation of one audit trail entry.
type HistoryResponse struct {
	ID            string    `json:"id"`
	DossierID     string    `json:"dossier_id"`
	DossierNumero string    `json:"dossier_numero,omitempty"`
	Action        string    `json:"action"`
	Details       string    `json:"details,omitempty"`
	ActorID       string    `json:"actor_id"`
	ActorName     string    `json:"actor_name,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// FromHistory converts history records to their HTTP representation.
func FromHistory(records []*models.HistoryRecord) []*HistoryResponse {
	out := make([]*HistoryResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, &HistoryResponse{
			ID:            rec.ID.String(),
			DossierID:     rec.DossierID.String(),
			DossierNumero: rec.DossierNumero,
			Action:        string(rec.Action),
			Details:       rec.Details,
			ActorID:       rec.ActorUserID.String(),
			ActorName:     rec.ActorDisplayName,
			Timestamp:     rec.Timestamp,
		})
	}
	return out
}

// StatusCountResponse is one row of the stats tally.
type StatusCountResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// FromStatusCounts converts the tally to its HTTP representation.
func FromStatusCounts(counts []models.StatusCount) []StatusCountResponse {
	out := make([]StatusCountResponse, 0, len(counts))
	for _, sc := range counts {
		out = append(out, StatusCountResponse{Status: string(sc.Status), Count: sc.Count})
	}
	return out
}
