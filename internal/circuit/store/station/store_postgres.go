package station

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sged/internal/circuit/models"
	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
	txcontext "sged/pkg/platform/tx"
)

// PostgresStore persists stations in PostgreSQL. The unique index on
// (circuit_id, rank) is the authority for rank occupancy.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed station store.
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

func (s *PostgresStore) Create(ctx context.Context, st *models.Station) error {
	query := `
		INSERT INTO stations (id, circuit_id, rank, assigned_user_id, conditions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(st.ID),
		uuid.UUID(st.CircuitID),
		st.Rank,
		uuid.UUID(st.AssignedUserID),
		st.Conditions,
		st.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("station rank %d on circuit %s: %w", st.Rank, st.CircuitID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create station: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, stationID id.StationID) (*models.Station, error) {
	query := selectStations + ` WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(stationID))
	st, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("station %s: %w", stationID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find station: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) ListByCircuit(ctx context.Context, circuitID id.CircuitID) ([]*models.Station, error) {
	query := selectStations + ` WHERE circuit_id = $1 ORDER BY rank ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(circuitID))
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var out []*models.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) First(ctx context.Context, circuitID id.CircuitID) (*models.Station, error) {
	query := selectStations + ` WHERE circuit_id = $1 ORDER BY rank ASC LIMIT 1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(circuitID))
	st, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("first station of circuit %s: %w", circuitID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("first station: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) Next(ctx context.Context, circuitID id.CircuitID, currentRank int) (*models.Station, error) {
	query := selectStations + ` WHERE circuit_id = $1 AND rank > $2 ORDER BY rank ASC LIMIT 1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(circuitID), currentRank)
	st, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("next station after rank %d on circuit %s: %w", currentRank, circuitID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("next station: %w", err)
	}
	return st, nil
}

const selectStations = `
	SELECT id, circuit_id, rank, assigned_user_id, conditions, created_at
	FROM stations`

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(row scanner) (*models.Station, error) {
	var (
		st        models.Station
		rawID     uuid.UUID
		circuitID uuid.UUID
		userID    uuid.UUID
	)
	if err := row.Scan(&rawID, &circuitID, &st.Rank, &userID, &st.Conditions, &st.CreatedAt); err != nil {
		return nil, err
	}
	st.ID = id.StationID(rawID)
	st.CircuitID = id.CircuitID(circuitID)
	st.AssignedUserID = id.UserID(userID)
	return &st, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
