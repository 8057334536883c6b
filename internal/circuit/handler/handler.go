// Package handler wires circuit topology endpoints to the topology service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sged/internal/circuit/models"
	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
	"sged/pkg/platform/httputil"
	"sged/pkg/requestcontext"
)

// Service defines the topology operations the handler exposes.
type Service interface {
	CreateCircuit(ctx context.Context, name, description string, stationCount int) (*models.Circuit, error)
	DeactivateCircuit(ctx context.Context, circuitID id.CircuitID) (*models.Circuit, error)
	ListCircuits(ctx context.Context) ([]*models.Circuit, error)
	AddStation(ctx context.Context, circuitID id.CircuitID, rank int, assignedUserID id.UserID, conditions string) (*models.Station, error)
	StationsOf(ctx context.Context, circuitID id.CircuitID) ([]*models.Station, error)
}

// Handler wires circuit endpoints to the topology service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a circuit handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts circuit endpoints on the router. Topology mutations sit
// behind the administer guard; reads are open to any authenticated caller.
func (h *Handler) Register(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Get("/circuits", h.HandleList)
	r.Get("/circuits/{id}/stations", h.HandleListStations)

	r.Group(func(g chi.Router) {
		g.Use(adminOnly)
		g.Post("/circuits", h.HandleCreate)
		g.Delete("/circuits/{id}", h.HandleDeactivate)
		g.Post("/circuits/{id}/stations", h.HandleAddStation)
	})
}

// HandleCreate handles POST /circuits requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateCircuitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.CreateCircuit(ctx, req.Name, req.Description, req.StationCount)
	if err != nil {
		h.logger.ErrorContext(ctx, "circuit creation failed",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCircuit(c))
}

// HandleList handles GET /circuits requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	circuits, err := h.service.ListCircuits(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*CircuitResponse, 0, len(circuits))
	for _, c := range circuits {
		out = append(out, FromCircuit(c))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleDeactivate handles DELETE /circuits/{id} requests. Deactivation is a
// soft retirement: in-flight dossiers finish their run.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	circuitID, err := id.ParseCircuitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid circuit id"))
		return
	}

	c, err := h.service.DeactivateCircuit(ctx, circuitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCircuit(c))
}

// HandleListStations handles GET /circuits/{id}/stations requests.
func (h *Handler) HandleListStations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	circuitID, err := id.ParseCircuitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid circuit id"))
		return
	}

	stations, err := h.service.StationsOf(ctx, circuitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*StationResponse, 0, len(stations))
	for _, st := range stations {
		out = append(out, FromStation(st))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleAddStation handles POST /circuits/{id}/stations requests.
func (h *Handler) HandleAddStation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	circuitID, err := id.ParseCircuitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid circuit id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[AddStationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	assignedUserID, err := id.ParseUserID(req.AssignedUserID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assigned_user_id"))
		return
	}

	st, err := h.service.AddStation(ctx, circuitID, req.Rank, assignedUserID, req.Conditions)
	if err != nil {
		h.logger.ErrorContext(ctx, "station registration failed",
			"request_id", requestID,
			"circuit_id", circuitID,
			"rank", req.Rank,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromStation(st))
}
