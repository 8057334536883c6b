package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sged/internal/dossier/models"
	id "sged/pkg/domain"
	txcontext "sged/pkg/platform/tx"
)

// PostgresStore persists the audit ledger in PostgreSQL. Rows are only ever
// inserted.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, h *models.HistoryEntry) error {
	query := `
		INSERT INTO history (id, dossier_id, action, details, actor_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(h.ID),
		uuid.UUID(h.DossierID),
		string(h.Action),
		h.Details,
		uuid.UUID(h.ActorUserID),
		h.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

const selectHistory = `
	SELECT h.id, h.dossier_id, h.action, h.details, h.actor_user_id, h.created_at,
	       COALESCE(u.display_name, ''), COALESCE(d.numero, '')
	FROM history h
	LEFT JOIN users u ON h.actor_user_id = u.id
	LEFT JOIN dossiers d ON h.dossier_id = d.id`

func (s *PostgresStore) ListFor(ctx context.Context, dossierID id.DossierID) ([]*models.HistoryRecord, error) {
	query := selectHistory + `
		WHERE h.dossier_id = $1
		ORDER BY h.created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(dossierID))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	return collectHistory(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context, filter models.HistoryFilter) ([]*models.HistoryRecord, error) {
	query := selectHistory + `
		WHERE ($1::uuid IS NULL OR h.actor_user_id = $1)
		  AND ($2::date IS NULL OR h.created_at::date >= $2)
		  AND ($3::date IS NULL OR h.created_at::date <= $3)
		ORDER BY h.created_at DESC
		LIMIT $4
	`
	var actor, dateFrom, dateTo any
	if filter.ActorUserID != nil {
		actor = uuid.UUID(*filter.ActorUserID)
	}
	if filter.DateFrom != nil {
		dateFrom = *filter.DateFrom
	}
	if filter.DateTo != nil {
		dateTo = *filter.DateTo
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, actor, dateFrom, dateTo, models.HistoryListCap)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	return collectHistory(rows)
}

func collectHistory(rows *sql.Rows) ([]*models.HistoryRecord, error) {
	var out []*models.HistoryRecord
	for rows.Next() {
		var (
			rec        models.HistoryRecord
			rawID      uuid.UUID
			rawDossier uuid.UUID
			rawActor   uuid.UUID
			action     string
		)
		err := rows.Scan(&rawID, &rawDossier, &action, &rec.Details, &rawActor, &rec.Timestamp,
			&rec.ActorDisplayName, &rec.DossierNumero)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.ID = id.HistoryID(rawID)
		rec.DossierID = id.DossierID(rawDossier)
		rec.ActorUserID = id.UserID(rawActor)
		rec.Action = models.HistoryAction(action)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
