package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	scada "wellpulse/internal/scada/domain"
)

const defaultTagMappingsTable = "tag_mappings"

// TagMappingRepository is a Postgres implementation for tag mappings.
type TagMappingRepository struct {
	db    *sql.DB
	table string
}

// NewTagMappingRepository constructs a repository.
func NewTagMappingRepository(db *sql.DB, opts ...TagMappingOption) *TagMappingRepository {
	repo := &TagMappingRepository{db: db, table: defaultTagMappingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// TagMappingOption configures the repository.
type TagMappingOption func(*TagMappingRepository)

// WithTagMappingsTable overrides the table name.
func WithTagMappingsTable(table string) TagMappingOption {
	return func(repo *TagMappingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const tagMappingColumns = `id, tenant_id, connection_id, node_id, tag_name,
	field_property, data_type, unit, scaling_factor, deadband, enabled,
	last_value_kind, last_value_numeric, last_value_text, last_value_bool,
	last_read_at, created_at, updated_at, created_by, updated_by`

// ListByConnection loads a connection's mappings ordered by tag name.
func (r *TagMappingRepository) ListByConnection(ctx context.Context, tenantID, connectionID string) ([]scada.TagMapping, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tag mapping repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE tenant_id = $1 AND connection_id = $2
ORDER BY tag_name ASC`, tagMappingColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []scada.TagMapping
	for rows.Next() {
		mapping, err := scanTagMapping(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByID loads one mapping scoped to a connection, or nil.
func (r *TagMappingRepository) FindByID(ctx context.Context, tenantID, connectionID, id string) (*scada.TagMapping, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tag mapping repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE tenant_id = $1 AND connection_id = $2 AND id = $3`, tagMappingColumns, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, tenantID, connectionID, id))
}

// FindByNodeID loads the mapping for a node id within a connection, or nil.
func (r *TagMappingRepository) FindByNodeID(ctx context.Context, tenantID, connectionID, nodeID string) (*scada.TagMapping, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tag mapping repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE tenant_id = $1 AND connection_id = $2 AND node_id = $3`, tagMappingColumns, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, tenantID, connectionID, nodeID))
}

// ExistsByNodeID reports whether the node id is mapped in the connection.
func (r *TagMappingRepository) ExistsByNodeID(ctx context.Context, tenantID, connectionID, nodeID string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("tag mapping repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT EXISTS (SELECT 1 FROM %s WHERE tenant_id = $1 AND connection_id = $2 AND node_id = $3)`, r.table)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, tenantID, connectionID, nodeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ExistsByFieldProperty reports whether the property is mapped in the
// connection.
func (r *TagMappingRepository) ExistsByFieldProperty(ctx context.Context, tenantID, connectionID string, property scada.FieldProperty) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("tag mapping repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT EXISTS (SELECT 1 FROM %s WHERE tenant_id = $1 AND connection_id = $2 AND field_property = $3)`, r.table)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, tenantID, connectionID, string(property)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Save upserts one mapping.
func (r *TagMappingRepository) Save(ctx context.Context, mapping *scada.TagMapping) error {
	if r == nil || r.db == nil {
		return errors.New("tag mapping repo: nil db")
	}
	if mapping == nil {
		return errors.New("tag mapping repo: nil mapping")
	}
	return r.exec(ctx, r.db, mapping)
}

// SaveMany upserts a batch inside one transaction so a unique violation on
// any row rolls back the whole batch.
func (r *TagMappingRepository) SaveMany(ctx context.Context, mappings []*scada.TagMapping) error {
	if r == nil || r.db == nil {
		return errors.New("tag mapping repo: nil db")
	}
	if len(mappings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, mapping := range mappings {
		if mapping == nil {
			tx.Rollback()
			return errors.New("tag mapping repo: nil mapping in batch")
		}
		if err := r.exec(ctx, tx, mapping); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *TagMappingRepository) exec(ctx context.Context, db execer, mapping *scada.TagMapping) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	tenant_id,
	connection_id,
	node_id,
	tag_name,
	field_property,
	data_type,
	unit,
	scaling_factor,
	deadband,
	enabled,
	last_value_kind,
	last_value_numeric,
	last_value_text,
	last_value_bool,
	last_read_at,
	created_at,
	updated_at,
	created_by,
	updated_by
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
)
ON CONFLICT (id)
DO UPDATE SET
	enabled = EXCLUDED.enabled,
	last_value_kind = EXCLUDED.last_value_kind,
	last_value_numeric = EXCLUDED.last_value_numeric,
	last_value_text = EXCLUDED.last_value_text,
	last_value_bool = EXCLUDED.last_value_bool,
	last_read_at = EXCLUDED.last_read_at,
	updated_at = EXCLUDED.updated_at,
	updated_by = EXCLUDED.updated_by`, r.table)

	var deadband sql.NullFloat64
	if mapping.Config.Deadband != nil {
		deadband = sql.NullFloat64{Float64: *mapping.Config.Deadband, Valid: true}
	}
	kind, num, text, boolean := encodeTagValue(mapping.LastValue)
	var lastRead sql.NullTime
	if !mapping.LastReadAt.IsZero() {
		lastRead = sql.NullTime{Time: mapping.LastReadAt.UTC(), Valid: true}
	}

	_, err := db.ExecContext(
		ctx,
		query,
		mapping.ID,
		mapping.TenantID,
		mapping.ConnectionID,
		mapping.Config.NodeID,
		mapping.Config.TagName,
		string(mapping.Config.FieldProperty),
		string(mapping.Config.DataType),
		mapping.Config.Unit,
		mapping.Config.ScalingFactor,
		deadband,
		mapping.Enabled,
		kind,
		num,
		text,
		boolean,
		lastRead,
		mapping.CreatedAt.UTC(),
		mapping.UpdatedAt.UTC(),
		mapping.CreatedBy,
		mapping.UpdatedBy,
	)
	if err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

func (r *TagMappingRepository) scanOne(row rowScanner) (*scada.TagMapping, error) {
	mapping, err := scanTagMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

func scanTagMapping(row rowScanner) (*scada.TagMapping, error) {
	var mapping scada.TagMapping
	var property, dataType string
	var deadband sql.NullFloat64
	var kind sql.NullString
	var num sql.NullFloat64
	var text sql.NullString
	var boolean sql.NullBool
	var lastRead sql.NullTime
	if err := row.Scan(
		&mapping.ID,
		&mapping.TenantID,
		&mapping.ConnectionID,
		&mapping.Config.NodeID,
		&mapping.Config.TagName,
		&property,
		&dataType,
		&mapping.Config.Unit,
		&mapping.Config.ScalingFactor,
		&deadband,
		&mapping.Enabled,
		&kind,
		&num,
		&text,
		&boolean,
		&lastRead,
		&mapping.CreatedAt,
		&mapping.UpdatedAt,
		&mapping.CreatedBy,
		&mapping.UpdatedBy,
	); err != nil {
		return nil, err
	}
	mapping.Config.FieldProperty = scada.FieldProperty(property)
	mapping.Config.DataType = scada.DataType(dataType)
	if deadband.Valid {
		value := deadband.Float64
		mapping.Config.Deadband = &value
	}
	mapping.LastValue = decodeTagValue(kind, num, text, boolean)
	if lastRead.Valid {
		mapping.LastReadAt = lastRead.Time.UTC()
	}
	mapping.CreatedAt = mapping.CreatedAt.UTC()
	mapping.UpdatedAt = mapping.UpdatedAt.UTC()
	return &mapping, nil
}

// Tag values persist as a kind discriminator plus one typed column; absent
// readings keep every column NULL.
const (
	valueKindNumeric = "numeric"
	valueKindString  = "string"
	valueKindBool    = "bool"
)

func encodeTagValue(value scada.TagValue) (sql.NullString, sql.NullFloat64, sql.NullString, sql.NullBool) {
	var kind, text sql.NullString
	var num sql.NullFloat64
	var boolean sql.NullBool
	switch value.Kind() {
	case scada.TagValueNumeric:
		kind = sql.NullString{String: valueKindNumeric, Valid: true}
		v, _ := value.Numeric()
		num = sql.NullFloat64{Float64: v, Valid: true}
	case scada.TagValueString:
		kind = sql.NullString{String: valueKindString, Valid: true}
		v, _ := value.Text()
		text = sql.NullString{String: v, Valid: true}
	case scada.TagValueBool:
		kind = sql.NullString{String: valueKindBool, Valid: true}
		v, _ := value.Bool()
		boolean = sql.NullBool{Bool: v, Valid: true}
	}
	return kind, num, text, boolean
}

func decodeTagValue(kind sql.NullString, num sql.NullFloat64, text sql.NullString, boolean sql.NullBool) scada.TagValue {
	if !kind.Valid {
		return scada.TagValue{}
	}
	switch kind.String {
	case valueKindNumeric:
		return scada.NumericValue(num.Float64)
	case valueKindString:
		return scada.StringValue(text.String)
	case valueKindBool:
		return scada.BoolValue(boolean.Bool)
	default:
		return scada.TagValue{}
	}
}
