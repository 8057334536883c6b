package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
)

// PostgresDirectory resolves identities from the users table.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Resolve(ctx context.Context, userID id.UserID) (Identity, error) {
	query := `
		SELECT id, role, display_name
		FROM users
		WHERE id = $1 AND active = TRUE
	`
	var (
		rawID       uuid.UUID
		role        string
		displayName string
	)
	err := d.db.QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(&rawID, &role, &displayName)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, fmt.Errorf("resolve user %s: %w", userID, sentinel.ErrNotFound)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("resolve user: %w", err)
	}
	return d.build(rawID, role, displayName), nil
}

func (d *PostgresDirectory) ListRecipientsWithCapability(ctx context.Context, cap Capability) ([]Identity, error) {
	roles := rolesWithCapability(cap)
	if len(roles) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, role, display_name
		FROM users
		WHERE active = TRUE AND role = ANY($1)
	`
	rows, err := d.db.QueryContext(ctx, query, pq.Array(roles))
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		var (
			rawID       uuid.UUID
			role        string
			displayName string
		)
		if err := rows.Scan(&rawID, &role, &displayName); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, d.build(rawID, role, displayName))
	}
	return out, rows.Err()
}

func (d *PostgresDirectory) build(rawID uuid.UUID, role, displayName string) Identity {
	r := Role(role)
	return Identity{
		ID:           id.UserID(rawID),
		Role:         r,
		DisplayName:  displayName,
		Capabilities: CapabilitiesOf(r),
		Active:       true,
	}
}

// rolesWithCapability inverts CapabilitiesOf so recipient queries stay in SQL.
func rolesWithCapability(cap Capability) []string {
	var out []string
	for _, role := range []Role{RoleAdmin, RoleIntake, RoleStandard} {
		if hasCapability(CapabilitiesOf(role), cap) {
			out = append(out, string(role))
		}
	}
	return out
}
