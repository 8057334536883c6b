package dossier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sged/internal/dossier/models"
	"sged/internal/dossier/ports"
	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
	txcontext "sged/pkg/platform/tx"
)

// PostgresStore persists dossiers in PostgreSQL. The unique index on numero
// is the authority for dossier-number uniqueness.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed dossier store.
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

const selectDossiers = `
	SELECT id, numero, type, description, client_info, circuit_id, current_station_id, status, created_by, created_at, modified_at
	FROM dossiers`

func (s *PostgresStore) Create(ctx context.Context, d *models.Dossier) error {
	query := `
		INSERT INTO dossiers (id, numero, type, description, client_info, circuit_id, current_station_id, status, created_by, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(d.ID),
		d.Numero,
		d.Type,
		d.Description,
		nullJSON(d.ClientInfo),
		uuid.UUID(d.CircuitID),
		nullStationID(d.CurrentStationID),
		string(d.Status),
		uuid.UUID(d.CreatedBy),
		d.CreatedAt,
		d.ModifiedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("dossier numero %q: %w", d.Numero, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create dossier: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, dossierID id.DossierID) (*models.Dossier, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectDossiers+` WHERE id = $1`, uuid.UUID(dossierID))
	return s.oneDossier(row, dossierID.String())
}

// FindByIDForUpdate locks the dossier row for the remainder of the
// surrounding transaction so concurrent transitions on the same dossier
// serialize. Outside a transaction it degrades to a plain read.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, dossierID id.DossierID) (*models.Dossier, error) {
	query := selectDossiers + ` WHERE id = $1`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(dossierID))
	return s.oneDossier(row, dossierID.String())
}

func (s *PostgresStore) FindByNumero(ctx context.Context, numero string) (*models.Dossier, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectDossiers+` WHERE numero = $1`, numero)
	return s.oneDossier(row, numero)
}

func (s *PostgresStore) List(ctx context.Context, filter ports.DossierFilter) ([]*models.Dossier, error) {
	query := selectDossiers + `
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR type = $2)
		  AND ($3::uuid IS NULL OR circuit_id = $3)
		ORDER BY created_at DESC
	`
	var status, dossierType any
	var circuitID any
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	if filter.Type != nil {
		dossierType = *filter.Type
	}
	if filter.CircuitID != nil {
		circuitID = uuid.UUID(*filter.CircuitID)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, status, dossierType, circuitID)
	if err != nil {
		return nil, fmt.Errorf("list dossiers: %w", err)
	}
	defer rows.Close()
	return collectDossiers(rows)
}

func (s *PostgresStore) ListByCreator(ctx context.Context, userID id.UserID) ([]*models.Dossier, error) {
	query := selectDossiers + ` WHERE created_by = $1 ORDER BY created_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list dossiers by creator: %w", err)
	}
	defer rows.Close()
	return collectDossiers(rows)
}

func (s *PostgresStore) ListInProgressAtStationOf(ctx context.Context, userID id.UserID) ([]*models.Dossier, error) {
	query := `
		SELECT d.id, d.numero, d.type, d.description, d.client_info, d.circuit_id, d.current_station_id, d.status, d.created_by, d.created_at, d.modified_at
		FROM dossiers d
		INNER JOIN stations s ON d.current_station_id = s.id
		WHERE s.assigned_user_id = $1 AND d.status = $2
		ORDER BY d.modified_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(userID), string(models.StatusInProgress))
	if err != nil {
		return nil, fmt.Errorf("list station queue: %w", err)
	}
	defer rows.Close()
	return collectDossiers(rows)
}

func (s *PostgresStore) Update(ctx context.Context, d *models.Dossier) error {
	query := `
		UPDATE dossiers
		SET type = $2, description = $3, client_info = $4, current_station_id = $5, status = $6, modified_at = $7
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(d.ID),
		d.Type,
		d.Description,
		nullJSON(d.ClientInfo),
		nullStationID(d.CurrentStationID),
		string(d.Status),
		d.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("update dossier: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dossier: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("dossier %s: %w", d.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	query := `SELECT status, COUNT(*) FROM dossiers GROUP BY status ORDER BY status`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count dossiers: %w", err)
	}
	defer rows.Close()

	var out []models.StatusCount
	for rows.Next() {
		var sc models.StatusCount
		var status string
		if err := rows.Scan(&status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		sc.Status = models.Status(status)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) oneDossier(row *sql.Row, ref string) (*models.Dossier, error) {
	d, err := scanDossier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dossier %s: %w", ref, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find dossier: %w", err)
	}
	return d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDossier(row scanner) (*models.Dossier, error) {
	var (
		d          models.Dossier
		rawID      uuid.UUID
		circuitID  uuid.UUID
		createdBy  uuid.UUID
		stationID  uuid.NullUUID
		clientInfo []byte
		status     string
	)
	err := row.Scan(&rawID, &d.Numero, &d.Type, &d.Description, &clientInfo, &circuitID, &stationID, &status, &createdBy, &d.CreatedAt, &d.ModifiedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DossierID(rawID)
	d.CircuitID = id.CircuitID(circuitID)
	d.CreatedBy = id.UserID(createdBy)
	d.Status = models.Status(status)
	d.ClientInfo = clientInfo
	if stationID.Valid {
		sid := id.StationID(stationID.UUID)
		d.CurrentStationID = &sid
	}
	return &d, nil
}

func collectDossiers(rows *sql.Rows) ([]*models.Dossier, error) {
	var out []*models.Dossier
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dossier: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullStationID(stationID *id.StationID) uuid.NullUUID {
	if stationID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*stationID), Valid: true}
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
