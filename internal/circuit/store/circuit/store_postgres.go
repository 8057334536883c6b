package circuit

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

// PostgresStore persists circuits in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed circuit store.
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

func (s *PostgresStore) Create(ctx context.Context, c *models.Circuit) error {
	query := `
		INSERT INTO circuits (id, name, description, station_count, active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		c.Name,
		c.Description,
		c.StationCount,
		c.Active,
		uuid.UUID(c.CreatedBy),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("circuit %s: %w", c.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create circuit: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, circuitID id.CircuitID) (*models.Circuit, error) {
	query := `
		SELECT id, name, description, station_count, active, created_by, created_at, updated_at
		FROM circuits
		WHERE id = $1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(circuitID))
	c, err := scanCircuit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("circuit %s: %w", circuitID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find circuit: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Circuit, error) {
	query := `
		SELECT id, name, description, station_count, active, created_by, created_at, updated_at
		FROM circuits
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list circuits: %w", err)
	}
	defer rows.Close()

	var out []*models.Circuit
	for rows.Next() {
		c, err := scanCircuit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan circuit: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, c *models.Circuit) error {
	query := `
		UPDATE circuits
		SET name = $2, description = $3, station_count = $4, active = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		c.Name,
		c.Description,
		c.StationCount,
		c.Active,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update circuit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update circuit: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("circuit %s: %w", c.ID, sentinel.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCircuit(row scanner) (*models.Circuit, error) {
	var (
		c         models.Circuit
		rawID     uuid.UUID
		createdBy uuid.UUID
	)
	if err := row.Scan(&rawID, &c.Name, &c.Description, &c.StationCount, &c.Active, &createdBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ID = id.CircuitID(rawID)
	c.CreatedBy = id.UserID(createdBy)
	return &c, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// rejection (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
