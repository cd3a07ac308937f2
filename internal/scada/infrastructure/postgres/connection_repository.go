package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	scada "wellpulse/internal/scada/domain"
)

const defaultConnectionsTable = "scada_connections"

// ConnectionRepository is a Postgres implementation for connections.
type ConnectionRepository struct {
	db    *sql.DB
	table string
}

// NewConnectionRepository constructs a repository.
func NewConnectionRepository(db *sql.DB, opts ...ConnectionOption) *ConnectionRepository {
	repo := &ConnectionRepository{db: db, table: defaultConnectionsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ConnectionOption configures the repository.
type ConnectionOption func(*ConnectionRepository)

// WithConnectionsTable overrides the table name.
func WithConnectionsTable(table string) ConnectionOption {
	return func(repo *ConnectionRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const connectionColumns = `id, tenant_id, well_id, name, description,
	endpoint_url, security_mode, security_policy, username, password,
	poll_interval_seconds, status, last_connected_at, last_error_message,
	enabled, created_at, updated_at, created_by, updated_by`

// FindByID loads one connection or nil.
func (r *ConnectionRepository) FindByID(ctx context.Context, tenantID, id string) (*scada.Connection, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("connection repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE tenant_id = $1 AND id = $2`, connectionColumns, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, tenantID, id))
}

// FindByWellID loads the connection bound to a well, or nil.
func (r *ConnectionRepository) FindByWellID(ctx context.Context, tenantID, wellID string) (*scada.Connection, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("connection repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE tenant_id = $1 AND well_id = $2`, connectionColumns, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, tenantID, wellID))
}

// ExistsByName reports whether a tenant already uses the name.
func (r *ConnectionRepository) ExistsByName(ctx context.Context, tenantID, name string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("connection repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT EXISTS (SELECT 1 FROM %s WHERE tenant_id = $1 AND name = $2)`, r.table)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, tenantID, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// List loads all connections for a tenant ordered by name.
func (r *ConnectionRepository) List(ctx context.Context, tenantID string) ([]scada.Connection, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("connection repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE tenant_id = $1
ORDER BY name ASC`, connectionColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []scada.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *conn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save upserts a connection. Unique violations surface as the domain's
// duplicate errors.
func (r *ConnectionRepository) Save(ctx context.Context, conn *scada.Connection) error {
	if r == nil || r.db == nil {
		return errors.New("connection repo: nil db")
	}
	if conn == nil {
		return errors.New("connection repo: nil connection")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	tenant_id,
	well_id,
	name,
	description,
	endpoint_url,
	security_mode,
	security_policy,
	username,
	password,
	poll_interval_seconds,
	status,
	last_connected_at,
	last_error_message,
	enabled,
	created_at,
	updated_at,
	created_by,
	updated_by
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
)
ON CONFLICT (id)
DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	endpoint_url = EXCLUDED.endpoint_url,
	security_mode = EXCLUDED.security_mode,
	security_policy = EXCLUDED.security_policy,
	username = EXCLUDED.username,
	password = EXCLUDED.password,
	poll_interval_seconds = EXCLUDED.poll_interval_seconds,
	status = EXCLUDED.status,
	last_connected_at = EXCLUDED.last_connected_at,
	last_error_message = EXCLUDED.last_error_message,
	enabled = EXCLUDED.enabled,
	updated_at = EXCLUDED.updated_at,
	updated_by = EXCLUDED.updated_by`, r.table)

	var lastConnected sql.NullTime
	if !conn.LastConnectedAt.IsZero() {
		lastConnected = sql.NullTime{Time: conn.LastConnectedAt.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		conn.ID,
		conn.TenantID,
		conn.WellID,
		conn.Name,
		conn.Description,
		conn.Endpoint.URL,
		string(conn.Endpoint.SecurityMode),
		string(conn.Endpoint.SecurityPolicy),
		conn.Endpoint.Username,
		conn.Endpoint.Password,
		conn.PollIntervalSeconds,
		string(conn.Status),
		lastConnected,
		conn.LastErrorMessage,
		conn.Enabled,
		conn.CreatedAt.UTC(),
		conn.UpdatedAt.UTC(),
		conn.CreatedBy,
		conn.UpdatedBy,
	)
	if err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

// Delete removes a connection; tag mappings cascade via foreign key.
func (r *ConnectionRepository) Delete(ctx context.Context, tenantID, id string) error {
	if r == nil || r.db == nil {
		return errors.New("connection repo: nil db")
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND id = $2`, r.table)
	_, err := r.db.ExecContext(ctx, query, tenantID, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ConnectionRepository) scanOne(row rowScanner) (*scada.Connection, error) {
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func scanConnection(row rowScanner) (*scada.Connection, error) {
	var conn scada.Connection
	var mode, policy string
	var lastConnected sql.NullTime
	if err := row.Scan(
		&conn.ID,
		&conn.TenantID,
		&conn.WellID,
		&conn.Name,
		&conn.Description,
		&conn.Endpoint.URL,
		&mode,
		&policy,
		&conn.Endpoint.Username,
		&conn.Endpoint.Password,
		&conn.PollIntervalSeconds,
		&conn.Status,
		&lastConnected,
		&conn.LastErrorMessage,
		&conn.Enabled,
		&conn.CreatedAt,
		&conn.UpdatedAt,
		&conn.CreatedBy,
		&conn.UpdatedBy,
	); err != nil {
		return nil, err
	}
	conn.Endpoint.SecurityMode = scada.SecurityMode(mode)
	conn.Endpoint.SecurityPolicy = scada.SecurityPolicy(policy)
	if lastConnected.Valid {
		conn.LastConnectedAt = lastConnected.Time.UTC()
	}
	conn.CreatedAt = conn.CreatedAt.UTC()
	conn.UpdatedAt = conn.UpdatedAt.UTC()
	return &conn, nil
}
