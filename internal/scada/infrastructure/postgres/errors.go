package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	scada "wellpulse/internal/scada/domain"
)

const uniqueViolationCode = "23505"

// Unique constraint names from the schema; violations are translated to the
// domain's duplicate errors so the services stay storage-agnostic.
const (
	constraintConnectionWell  = "scada_connections_tenant_well_key"
	constraintConnectionName  = "scada_connections_tenant_name_key"
	constraintMappingNodeID   = "tag_mappings_tenant_conn_node_key"
	constraintMappingProperty = "tag_mappings_tenant_conn_property_key"
	constraintMappingTagName  = "tag_mappings_tenant_conn_tag_name_key"
)

func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintConnectionWell:
		return scada.ErrDuplicateWellConnection
	case constraintConnectionName:
		return scada.ErrDuplicateConnectionName
	case constraintMappingNodeID, constraintMappingProperty, constraintMappingTagName:
		return scada.ErrDuplicateInConnection
	default:
		return err
	}
}
