package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	wells "wellpulse/internal/wells/domain"
)

const defaultWellsTable = "wells"

// WellRepository is a Postgres read model for wells.
type WellRepository struct {
	db    *sql.DB
	table string
}

// NewWellRepository constructs a repository.
func NewWellRepository(db *sql.DB, opts ...WellOption) *WellRepository {
	repo := &WellRepository{db: db, table: defaultWellsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// WellOption configures the repository.
type WellOption func(*WellRepository)

// WithWellsTable overrides the table name.
func WithWellsTable(table string) WellOption {
	return func(repo *WellRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads one well or nil.
func (r *WellRepository) Get(ctx context.Context, tenantID, wellID string) (*wells.Well, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("well repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, name, api_number, status, created_at, updated_at
FROM %s
WHERE tenant_id = $1 AND id = $2`, r.table)

	var well wells.Well
	err := r.db.QueryRowContext(ctx, query, tenantID, wellID).Scan(
		&well.ID,
		&well.TenantID,
		&well.Name,
		&well.APINumber,
		&well.Status,
		&well.CreatedAt,
		&well.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	well.CreatedAt = well.CreatedAt.UTC()
	well.UpdatedAt = well.UpdatedAt.UTC()
	return &well, nil
}
