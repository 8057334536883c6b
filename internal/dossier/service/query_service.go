package service

import (
	"context"
	"errors"

	"sged/internal/dossier/models"
	"sged/internal/dossier/ports"
	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
	"sged/pkg/platform/sentinel"
	"sged/pkg/requestcontext"
)

// Get fetches one dossier. The client payload is withheld from callers whose
// role does not grant access to it.
func (s *Service) Get(ctx context.Context, dossierID id.DossierID) (*models.Dossier, error) {
	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	d, err := s.dossiers.FindByID(ctx, dossierID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "dossier not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "dossier lookup failed")
	}
	if !ident.Capabilities.ViewClientInfo {
		return d.WithoutClientInfo(), nil
	}
	return d, nil
}

// List returns dossiers matching the filter, newest first. Client payloads
// follow the same visibility rule as Get.
func (s *Service) List(ctx context.Context, filter ports.DossierFilter) ([]*models.Dossier, error) {
	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.dossiers.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list dossiers")
	}
	return redactForCaller(out, ident.Capabilities.ViewClientInfo), nil
}

// ListMine returns the caller's working set: intake users see the dossiers
// they created, station users see the in_progress dossiers sitting at their
// station.
func (s *Service) ListMine(ctx context.Context) ([]*models.Dossier, error) {
	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var out []*models.Dossier
	if ident.Capabilities.Intake {
		out, err = s.dossiers.ListByCreator(ctx, ident.ID)
	} else {
		out, err = s.dossiers.ListInProgressAtStationOf(ctx, ident.ID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list dossiers")
	}
	return redactForCaller(out, ident.Capabilities.ViewClientInfo), nil
}

// Stats tallies dossiers by status. Caller must hold the administer
// capability.
func (s *Service) Stats(ctx context.Context) ([]models.StatusCount, error) {
	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if !ident.Capabilities.Administer {
		return nil, dErrors.New(dErrors.CodeForbidden, "administer capability required")
	}

	out, err := s.dossiers.CountByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count dossiers")
	}
	return out, nil
}

// Update applies an administrative field edit. It bypasses routing: station
// pointer and ledgers are untouched apart from the audit entry. Caller must
// hold the administer capability.
func (s *Service) Update(ctx context.Context, dossierID id.DossierID, patch models.Patch) (*models.Dossier, error) {
	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if !ident.Capabilities.Administer {
		return nil, dErrors.New(dErrors.CodeForbidden, "administer capability required")
	}

	now := requestcontext.Now(ctx)
	var d *models.Dossier
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.lockDossier(ctx, dossierID)
		if err != nil {
			return err
		}
		if err := patch.Apply(d, now); err != nil {
			return err
		}
		if err := s.dossiers.Update(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update dossier")
		}
		return s.appendHistory(ctx, d.ID, models.ActionDossierUpdated,
			"dossier fields updated", ident.ID, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "dossier updated", "dossier_id", d.ID)
	return d, nil
}

// MovementsFor returns the dossier's station-transition ledger, oldest first.
func (s *Service) MovementsFor(ctx context.Context, dossierID id.DossierID) ([]*models.MovementRecord, error) {
	if _, err := requireCaller(ctx); err != nil {
		return nil, err
	}
	if _, err := s.dossiers.FindByID(ctx, dossierID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "dossier not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "dossier lookup failed")
	}
	out, err := s.movements.ListFor(ctx, dossierID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list movements")
	}
	return out, nil
}

// HistoryFor returns the dossier's audit trail, newest first.
func (s *Service) HistoryFor(ctx context.Context, dossierID id.DossierID) ([]*models.HistoryRecord, error) {
	if _, err := requireCaller(ctx); err != nil {
		return nil, err
	}
	if _, err := s.dossiers.FindByID(ctx, dossierID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "dossier not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "dossier lookup failed")
	}
	out, err := s.history.ListFor(ctx, dossierID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list history")
	}
	return out, nil
}

// HistoryAll returns the filtered cross-dossier audit trail, newest first and
// capped. Caller must hold the administer capability.
func (s *Service) HistoryAll(ctx context.Context, filter models.HistoryFilter) ([]*models.HistoryRecord, error) {
	ident, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if !ident.Capabilities.Administer {
		return nil, dErrors.New(dErrors.CodeForbidden, "administer capability required")
	}

	out, err := s.history.ListAll(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list history")
	}
	return out, nil
}

func redactForCaller(dossiers []*models.Dossier, canView bool) []*models.Dossier {
	if canView {
		return dossiers
	}
	out := make([]*models.Dossier, len(dossiers))
	for i, d := range dossiers {
		out[i] = d.WithoutClientInfo()
	}
	return out
}
