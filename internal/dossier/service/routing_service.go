package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	circuitmodels "sged/internal/circuit/models"
	"sged/internal/dossier/models"
	"sged/internal/identity"
	"sged/internal/notification"
	"sged/internal/stream"
	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
	"sged/pkg/platform/sentinel"
	"sged/pkg/requestcontext"
)

// CreateDossierInput carries the caller-supplied dossier fields.
type CreateDossierInput struct {
	Numero      string
	Type        string
	Description string
	ClientInfo  json.RawMessage
	CircuitID   id.CircuitID
}

// Create registers a dossier on a circuit. The dossier starts pending at the
// circuit's entry station; a circuit with no stations yet yields a stationless
// dossier that can only be finalized. Caller must hold the intake capability.
func (s *Service) Create(ctx context.Context, in CreateDossierInput) (*models.Dossier, error) {
	ctx, span := s.tracer.Start(ctx, "dossier.create",
		trace.WithAttributes(attribute.String("dossier.numero", in.Numero)))
	defer span.End()

	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if !ident.Capabilities.Intake {
		return nil, dErrors.New(dErrors.CodeForbidden, "intake capability required")
	}

	circuit, err := s.circuits.FindByID(ctx, in.CircuitID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "circuit not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "circuit lookup failed")
	}
	if !circuit.Active {
		return nil, dErrors.New(dErrors.CodeConflict, "circuit is inactive")
	}

	now := requestcontext.Now(ctx)
	d, err := models.NewDossier(id.NewDossierID(), in.Numero, in.Type, in.Description, in.ClientInfo, in.CircuitID, ident.ID, now)
	if err != nil {
		return nil, err
	}

	entry, err := s.entryStation(ctx, in.CircuitID)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		d.AssignStation(entry.ID, now)
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.dossiers.Create(ctx, d); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "a dossier with this numero already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create dossier")
		}
		return s.appendHistory(ctx, d.ID, models.ActionDossierCreated,
			fmt.Sprintf("dossier %s created on circuit %s", d.Numero, circuit.Name), ident.ID, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCreated()
	if entry != nil {
		s.notifier.Notify(ctx, notification.Notification{
			Recipient: entry.AssignedUserID,
			Type:      notification.TypeDossierPending,
			Title:     "Dossier awaiting intake",
			Message:   fmt.Sprintf("Dossier %s is pending at your station", d.Numero),
			Link:      "/dossiers/" + d.ID.String(),
			CreatedAt: now,
		})
	}
	s.publish(ctx, d, string(models.ActionDossierCreated), ident.ID, now)

	s.logger.InfoContext(ctx, "dossier created",
		"dossier_id", d.ID,
		"numero", d.Numero,
		"circuit_id", d.CircuitID,
	)
	return d, nil
}

// Exit moves a dossier out of its current station to the next one in rank
// order. The final station has no next; finalizing is the only way out of it.
// Caller must hold the intake capability.
func (s *Service) Exit(ctx context.Context, dossierID id.DossierID, observations string) (*models.Dossier, error) {
	ctx, span := s.tracer.Start(ctx, "dossier.exit",
		trace.WithAttributes(attribute.String("dossier.id", dossierID.String())))
	defer span.End()

	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if !ident.Capabilities.Intake {
		return nil, dErrors.New(dErrors.CodeForbidden, "intake capability required")
	}

	started := time.Now()
	now := requestcontext.Now(ctx)

	var d *models.Dossier
	var next *circuitmodels.Station
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.lockDossier(ctx, dossierID)
		if err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return dErrors.New(dErrors.CodeConflict, "dossier is already processed")
		}
		if d.CurrentStationID == nil {
			return dErrors.New(dErrors.CodeConflict, "dossier is not at a station")
		}

		current, err := s.stations.FindByID(ctx, *d.CurrentStationID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "station lookup failed")
		}
		next, err = s.stations.Next(ctx, d.CircuitID, current.Rank)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeConflict, "dossier is at the final station; finalize it instead")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "next station lookup failed")
		}

		if err := s.appendMovement(ctx, d.ID, current.ID, models.MovementExit, ident.ID, observations, now); err != nil {
			return err
		}
		d.AssignStation(next.ID, now)
		d.MarkInProgress(now)
		if err := s.dossiers.Update(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update dossier")
		}
		return s.appendHistory(ctx, d.ID, models.ActionDossierExited,
			fmt.Sprintf("dossier %s moved from rank %d to rank %d", d.Numero, current.Rank, next.Rank), ident.ID, now)
	})
	if err != nil {
		s.metrics.IncrementTransition(string(models.MovementExit), "error")
		return nil, err
	}

	s.metrics.IncrementTransition(string(models.MovementExit), "ok")
	s.metrics.ObserveTransitionLatency(string(models.MovementExit), time.Since(started))
	s.notifier.Notify(ctx, notification.Notification{
		Recipient: next.AssignedUserID,
		Type:      notification.TypeDossierIncoming,
		Title:     "Dossier incoming",
		Message:   fmt.Sprintf("Dossier %s has been routed to your station", d.Numero),
		Link:      "/dossiers/" + d.ID.String(),
		CreatedAt: now,
	})
	s.publish(ctx, d, string(models.ActionDossierExited), ident.ID, now)

	s.logger.InfoContext(ctx, "dossier exited station",
		"dossier_id", d.ID,
		"next_station_id", next.ID,
		"next_rank", next.Rank,
	)
	return d, nil
}

// Arrive records that the dossier physically reached its current station.
// Only the station's assigned user may record the arrival. Arriving twice is
// harmless: the status move to in_progress is idempotent and the ledger keeps
// both entries.
func (s *Service) Arrive(ctx context.Context, dossierID id.DossierID, observations string) (*models.Dossier, error) {
	ctx, span := s.tracer.Start(ctx, "dossier.arrive",
		trace.WithAttributes(attribute.String("dossier.id", dossierID.String())))
	defer span.End()

	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	now := requestcontext.Now(ctx)

	var d *models.Dossier
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.lockDossier(ctx, dossierID)
		if err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return dErrors.New(dErrors.CodeConflict, "dossier is already processed")
		}
		if d.CurrentStationID == nil {
			return dErrors.New(dErrors.CodeConflict, "dossier is not at a station")
		}

		current, err := s.stations.FindByID(ctx, *d.CurrentStationID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "station lookup failed")
		}
		if current.AssignedUserID != ident.ID {
			return dErrors.New(dErrors.CodeForbidden, "only the station's assigned user may record the arrival")
		}

		if err := s.appendMovement(ctx, d.ID, current.ID, models.MovementArrival, ident.ID, observations, now); err != nil {
			return err
		}
		d.MarkInProgress(now)
		if err := s.dossiers.Update(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update dossier")
		}
		return s.appendHistory(ctx, d.ID, models.ActionDossierArrived,
			fmt.Sprintf("dossier %s arrived at rank %d", d.Numero, current.Rank), ident.ID, now)
	})
	if err != nil {
		s.metrics.IncrementTransition(string(models.MovementArrival), "error")
		return nil, err
	}

	s.metrics.IncrementTransition(string(models.MovementArrival), "ok")
	s.metrics.ObserveTransitionLatency(string(models.MovementArrival), time.Since(started))
	s.publish(ctx, d, string(models.ActionDossierArrived), ident.ID, now)

	s.logger.InfoContext(ctx, "dossier arrival recorded", "dossier_id", d.ID)
	return d, nil
}

// Finalize closes a dossier at the final station of its circuit. Only the
// final station's assigned user may finalize; a dossier sitting at an earlier
// station must keep traveling. A stationless dossier may be finalized by any
// authenticated caller. Administrators are notified of the closure.
func (s *Service) Finalize(ctx context.Context, dossierID id.DossierID, observations string) (*models.Dossier, error) {
	ctx, span := s.tracer.Start(ctx, "dossier.finalize",
		trace.WithAttributes(attribute.String("dossier.id", dossierID.String())))
	defer span.End()

	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	now := requestcontext.Now(ctx)

	var d *models.Dossier
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.lockDossier(ctx, dossierID)
		if err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return dErrors.New(dErrors.CodeConflict, "dossier is already processed")
		}

		if d.CurrentStationID != nil {
			current, err := s.stations.FindByID(ctx, *d.CurrentStationID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "station lookup failed")
			}
			if current.AssignedUserID != ident.ID {
				return dErrors.New(dErrors.CodeForbidden, "only the station's assigned user may finalize")
			}
			if _, err := s.stations.Next(ctx, d.CircuitID, current.Rank); err == nil {
				return dErrors.New(dErrors.CodeConflict, "dossier has stations left to visit")
			} else if !errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeInternal, "next station lookup failed")
			}
			if err := s.appendMovement(ctx, d.ID, current.ID, models.MovementProcessing, ident.ID, observations, now); err != nil {
				return err
			}
		}

		d.MarkProcessed(now)
		if err := s.dossiers.Update(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update dossier")
		}
		return s.appendHistory(ctx, d.ID, models.ActionDossierProcessed,
			fmt.Sprintf("dossier %s processed", d.Numero), ident.ID, now)
	})
	if err != nil {
		s.metrics.IncrementTransition(string(models.MovementProcessing), "error")
		return nil, err
	}

	s.metrics.IncrementTransition(string(models.MovementProcessing), "ok")
	s.metrics.ObserveTransitionLatency(string(models.MovementProcessing), time.Since(started))
	s.broadcastProcessed(ctx, d, now)
	s.publish(ctx, d, string(models.ActionDossierProcessed), ident.ID, now)

	s.logger.InfoContext(ctx, "dossier processed", "dossier_id", d.ID, "numero", d.Numero)
	return d, nil
}

// entryStation resolves the circuit's minimum-rank station, nil when none is
// configured yet.
func (s *Service) entryStation(ctx context.Context, circuitID id.CircuitID) (*circuitmodels.Station, error) {
	st, err := s.stations.First(ctx, circuitID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "entry station lookup failed")
	}
	return st, nil
}

func (s *Service) lockDossier(ctx context.Context, dossierID id.DossierID) (*models.Dossier, error) {
	d, err := s.dossiers.FindByIDForUpdate(ctx, dossierID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "dossier not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "dossier lookup failed")
	}
	return d, nil
}

func (s *Service) appendMovement(ctx context.Context, dossierID id.DossierID, stationID id.StationID, kind models.MovementKind, actor id.UserID, observations string, now time.Time) error {
	m := &models.Movement{
		ID:           id.NewMovementID(),
		DossierID:    dossierID,
		StationID:    stationID,
		Kind:         kind,
		ActorUserID:  actor,
		Observations: observations,
		Timestamp:    now,
	}
	if err := s.movements.Append(ctx, m); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record movement")
	}
	return nil
}

func (s *Service) appendHistory(ctx context.Context, dossierID id.DossierID, action models.HistoryAction, details string, actor id.UserID, now time.Time) error {
	h := &models.HistoryEntry{
		ID:          id.NewHistoryID(),
		DossierID:   dossierID,
		Action:      action,
		Details:     details,
		ActorUserID: actor,
		Timestamp:   now,
	}
	if err := s.history.Append(ctx, h); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record history")
	}
	return nil
}

func (s *Service) broadcastProcessed(ctx context.Context, d *models.Dossier, now time.Time) {
	admins, err := s.recipients.ListRecipientsWithCapability(ctx, identity.CapabilityAdminister)
	if err != nil {
		s.logger.WarnContext(ctx, "finalize broadcast recipient lookup failed", "error", err)
		return
	}
	for _, admin := range admins {
		s.notifier.Notify(ctx, notification.Notification{
			Recipient: admin.ID,
			Type:      notification.TypeDossierProcessed,
			Title:     "Dossier processed",
			Message:   fmt.Sprintf("Dossier %s has completed its circuit", d.Numero),
			Link:      "/dossiers/" + d.ID.String(),
			CreatedAt: now,
		})
	}
}

func (s *Service) publish(ctx context.Context, d *models.Dossier, action string, actor id.UserID, now time.Time) {
	e := stream.Event{
		DossierID: d.ID,
		Numero:    d.Numero,
		Action:    action,
		ActorID:   actor,
		At:        now,
	}
	if d.CurrentStationID != nil {
		e.StationID = d.CurrentStationID.String()
	}
	s.publisher.Publish(ctx, e)
}
