package movement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sged/internal/dossier/models"
	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
	txcontext "sged/pkg/platform/tx"
)

// PostgresStore persists the movement ledger in PostgreSQL. Rows are only ever
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

func (s *PostgresStore) Append(ctx context.Context, m *models.Movement) error {
	query := `
		INSERT INTO movements (id, dossier_id, station_id, kind, actor_user_id, observations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(m.ID),
		uuid.UUID(m.DossierID),
		uuid.UUID(m.StationID),
		string(m.Kind),
		uuid.UUID(m.ActorUserID),
		m.Observations,
		m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFor(ctx context.Context, dossierID id.DossierID) ([]*models.MovementRecord, error) {
	query := `
		SELECT m.id, m.dossier_id, m.station_id, m.kind, m.actor_user_id, m.observations, m.created_at,
		       COALESCE(u.display_name, ''), COALESCE(st.rank, 0)
		FROM movements m
		LEFT JOIN users u ON m.actor_user_id = u.id
		LEFT JOIN stations st ON m.station_id = st.id
		WHERE m.dossier_id = $1
		ORDER BY m.created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(dossierID))
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var out []*models.MovementRecord
	for rows.Next() {
		rec, err := scanMovementRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LastFor(ctx context.Context, dossierID id.DossierID) (*models.Movement, error) {
	query := `
		SELECT id, dossier_id, station_id, kind, actor_user_id, observations, created_at
		FROM movements
		WHERE dossier_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(dossierID))

	var (
		m           models.Movement
		rawID       uuid.UUID
		rawDossier  uuid.UUID
		rawStation  uuid.UUID
		rawActor    uuid.UUID
		kind        string
	)
	err := row.Scan(&rawID, &rawDossier, &rawStation, &kind, &rawActor, &m.Observations, &m.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movements of dossier %s: %w", dossierID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("last movement: %w", err)
	}
	m.ID = id.MovementID(rawID)
	m.DossierID = id.DossierID(rawDossier)
	m.StationID = id.StationID(rawStation)
	m.ActorUserID = id.UserID(rawActor)
	m.Kind = models.MovementKind(kind)
	return &m, nil
}

func scanMovementRecord(rows *sql.Rows) (*models.MovementRecord, error) {
	var (
		rec        models.MovementRecord
		rawID      uuid.UUID
		rawDossier uuid.UUID
		rawStation uuid.UUID
		rawActor   uuid.UUID
		kind       string
	)
	err := rows.Scan(&rawID, &rawDossier, &rawStation, &kind, &rawActor, &rec.Observations, &rec.Timestamp,
		&rec.ActorDisplayName, &rec.StationRank)
	if err != nil {
		return nil, err
	}
	rec.ID = id.MovementID(rawID)
	rec.DossierID = id.DossierID(rawDossier)
	rec.StationID = id.StationID(rawStation)
	rec.ActorUserID = id.UserID(rawActor)
	rec.Kind = models.MovementKind(kind)
	return &rec, nil
}
