package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	scada "wellpulse/internal/scada/domain"
)

const defaultReadingsTable = "tag_readings"

// ReadingRepository appends accepted readings to history storage.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db *sql.DB, opts ...ReadingOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ReadingOption configures the repository.
type ReadingOption func(*ReadingRepository)

// WithReadingsTable overrides the table name.
func WithReadingsTable(table string) ReadingOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// InsertReadings writes a batch inside one transaction.
func (r *ReadingRepository) InsertReadings(ctx context.Context, readings []scada.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	if len(readings) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	tenant_id,
	connection_id,
	tag_mapping_id,
	node_id,
	value_kind,
	value_numeric,
	value_text,
	value_bool,
	quality,
	read_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, reading := range readings {
		kind, num, text, boolean := encodeTagValue(reading.Value)
		if _, err := tx.ExecContext(
			ctx,
			query,
			reading.TenantID,
			reading.ConnectionID,
			reading.TagMappingID,
			reading.NodeID,
			kind,
			num,
			text,
			boolean,
			reading.Quality,
			reading.At.UTC(),
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
