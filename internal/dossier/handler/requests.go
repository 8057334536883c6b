package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"sged/internal/dossier/models"
	"sged/internal/dossier/ports"
	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
)

// CreateDossierRequest is the HTTP request body for POST /dossiers.
type CreateDossierRequest struct {
	Numero      string          `json:"numero"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	ClientInfo  json.RawMessage `json:"client_info"`
	CircuitID   string          `json:"circuit_id"`
}

// TransitionRequest is the HTTP request body for the exit, arrive and
// finalize endpoints.
type TransitionRequest struct {
	Observations string `json:"observations"`
}

// UpdateDossierRequest is the HTTP request body for PUT /dossiers/{id}.
// Absent fields are left untouched.
type UpdateDossierRequest struct {
	Type        *string         `json:"type"`
	Description *string         `json:"description"`
	ClientInfo  json.RawMessage `json:"client_info"`
	Status      *string         `json:"status"`
}

// ToPatch converts the request into the domain patch.
func (r UpdateDossierRequest) ToPatch() models.Patch {
	p := models.Patch{
		Type:        r.Type,
		Description: r.Description,
		ClientInfo:  r.ClientInfo,
	}
	if r.Status != nil {
		status := models.Status(*r.Status)
		p.Status = &status
	}
	return p
}

func filterFromQuery(r *http.Request) (ports.DossierFilter, error) {
	var filter ports.DossierFilter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status := models.Status(raw)
		if !status.IsValid() {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid status filter")
		}
		filter.Status = &status
	}
	if raw := q.Get("type"); raw != "" {
		dossierType := raw
		filter.Type = &dossierType
	}
	if raw := q.Get("circuit"); raw != "" {
		circuitID, err := id.ParseCircuitID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid circuit filter")
		}
		filter.CircuitID = &circuitID
	}
	return filter, nil
}

func historyFilterFromQuery(r *http.Request) (models.HistoryFilter, error) {
	var filter models.HistoryFilter
	q := r.URL.Query()

	if raw := q.Get("actor"); raw != "" {
		actorID, err := id.ParseUserID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid actor filter")
		}
		filter.ActorUserID = &actorID
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid from date, expected YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid to date, expected YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	return filter, nil
}
