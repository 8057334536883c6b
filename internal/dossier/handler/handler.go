// Package handler wires dossier routing endpoints to the routing engine.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sged/internal/dossier/models"
	"sged/internal/dossier/ports"
	"sged/internal/dossier/service"
	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
	"sged/pkg/platform/httputil"
	"sged/pkg/requestcontext"
)

// Service defines the routing operations the handler exposes.
type Service interface {
	Create(ctx context.Context, in service.CreateDossierInput) (*models.Dossier, error)
	Exit(ctx context.Context, dossierID id.DossierID, observations string) (*models.Dossier, error)
	Arrive(ctx context.Context, dossierID id.DossierID, observations string) (*models.Dossier, error)
	Finalize(ctx context.Context, dossierID id.DossierID, observations string) (*models.Dossier, error)
	Get(ctx context.Context, dossierID id.DossierID) (*models.Dossier, error)
	List(ctx context.Context, filter ports.DossierFilter) ([]*models.Dossier, error)
	ListMine(ctx context.Context) ([]*models.Dossier, error)
	Stats(ctx context.Context) ([]models.StatusCount, error)
	Update(ctx context.Context, dossierID id.DossierID, patch models.Patch) (*models.Dossier, error)
	MovementsFor(ctx context.Context, dossierID id.DossierID) ([]*models.MovementRecord, error)
	HistoryFor(ctx context.Context, dossierID id.DossierID) ([]*models.HistoryRecord, error)
	HistoryAll(ctx context.Context, filter models.HistoryFilter) ([]*models.HistoryRecord, error)
}

// Handler wires dossier endpoints to the routing engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a dossier handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts dossier endpoints on the router. The guards mirror the
// engine's own capability checks so unauthorized calls are rejected at the
// edge.
func (h *Handler) Register(r chi.Router, adminOnly, intakeOnly func(http.Handler) http.Handler) {
	r.Get("/dossiers", h.HandleList)
	r.Get("/dossiers/mine", h.HandleListMine)
	r.Get("/dossiers/{id}", h.HandleGet)
	r.Post("/dossiers/{id}/arrive", h.HandleArrive)
	r.Post("/dossiers/{id}/finalize", h.HandleFinalize)
	r.Get("/dossiers/{id}/movements", h.HandleMovements)
	r.Get("/dossiers/{id}/history", h.HandleHistory)

	r.Group(func(g chi.Router) {
		g.Use(intakeOnly)
		g.Post("/dossiers", h.HandleCreate)
		g.Post("/dossiers/{id}/exit", h.HandleExit)
	})

	r.Group(func(g chi.Router) {
		g.Use(adminOnly)
		g.Get("/dossiers/stats", h.HandleStats)
		g.Put("/dossiers/{id}", h.HandleUpdate)
		g.Get("/history", h.HandleHistoryAll)
	})
}

// HandleCreate handles POST /dossiers requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateDossierRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	circuitID, err := id.ParseCircuitID(req.CircuitID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid circuit_id"))
		return
	}

	d, err := h.service.Create(ctx, service.CreateDossierInput{
		Numero:      req.Numero,
		Type:        req.Type,
		Description: req.Description,
		ClientInfo:  req.ClientInfo,
		CircuitID:   circuitID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "dossier creation failed",
			"request_id", requestID,
			"numero", req.Numero,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromDossier(d))
}

// HandleList handles GET /dossiers requests, with status/type/circuit
// filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dossiers, err := h.service.List(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDossiers(dossiers))
}

// HandleListMine handles GET /dossiers/mine requests: the caller's working
// set.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dossiers, err := h.service.ListMine(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDossiers(dossiers))
}

// HandleStats handles GET /dossiers/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.service.Stats(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStatusCounts(counts))
}

// HandleGet handles GET /dossiers/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dossierID, ok := dossierIDFromPath(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(ctx, dossierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDossier(d))
}

// HandleUpdate handles PUT /dossiers/{id} requests: the administrative field
// edit.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	dossierID, ok := dossierIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateDossierRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Update(ctx, dossierID, req.ToPatch())
	if err != nil {
		h.logger.ErrorContext(ctx, "dossier update failed",
			"request_id", requestID,
			"dossier_id", dossierID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDossier(d))
}

// HandleExit handles POST /dossiers/{id}/exit requests.
func (h *Handler) HandleExit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "exit", h.service.Exit)
}

// HandleArrive handles POST /dossiers/{id}/arrive requests.
func (h *Handler) HandleArrive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "arrive", h.service.Arrive)
}

// HandleFinalize handles POST /dossiers/{id}/finalize requests.
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "finalize", h.service.Finalize)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, name string, op func(context.Context, id.DossierID, string) (*models.Dossier, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	dossierID, ok := dossierIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := op(ctx, dossierID, req.Observations)
	if err != nil {
		h.logger.ErrorContext(ctx, "dossier transition failed",
			"request_id", requestID,
			"dossier_id", dossierID,
			"transition", name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dossier transition applied",
		"request_id", requestID,
		"dossier_id", dossierID,
		"transition", name,
		"status", d.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDossier(d))
}

// HandleMovements handles GET /dossiers/{id}/movements requests.
func (h *Handler) HandleMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dossierID, ok := dossierIDFromPath(w, r)
	if !ok {
		return
	}
	records, err := h.service.MovementsFor(ctx, dossierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromMovements(records))
}

// HandleHistory handles GET /dossiers/{id}/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dossierID, ok := dossierIDFromPath(w, r)
	if !ok {
		return
	}
	records, err := h.service.HistoryFor(ctx, dossierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHistory(records))
}

// HandleHistoryAll handles GET /history requests, with actor/date filters.
func (h *Handler) HandleHistoryAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := historyFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.HistoryAll(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHistory(records))
}

func dossierIDFromPath(w http.ResponseWriter, r *http.Request) (id.DossierID, bool) {
	dossierID, err := id.ParseDossierID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid dossier id"))
		return id.DossierID{}, false
	}
	return dossierID, true
}
