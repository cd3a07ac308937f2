package scada

import (
	"context"
	"fmt"
	"time"
)

// TagMapping binds one tag config to a connection and tracks the last
// observation reported for it.
type TagMapping struct {
	ID           string
	TenantID     string
	ConnectionID string
	Config       TagConfig
	Enabled      bool
	LastValue    TagValue
	LastReadAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string
	UpdatedBy    string
}

// NewTagMapping builds an enabled mapping around a validated config.
func NewTagMapping(id, tenantID, connectionID string, config TagConfig, actor string, now time.Time) *TagMapping {
	now = now.UTC()
	return &TagMapping{
		ID:           id,
		TenantID:     tenantID,
		ConnectionID: connectionID,
		Config:       config,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    actor,
		UpdatedBy:    actor,
	}
}

// RecordReading overwrites the last observation unconditionally. Out-of-order
// timestamps are accepted; ordering is the ingestion client's concern.
func (m *TagMapping) RecordReading(value TagValue, at time.Time) {
	m.LastValue = value
	m.LastReadAt = at.UTC()
}

// IsSignificantChange reports whether a new value should be treated as a new
// observation. First readings and non-numeric values are always significant;
// numeric values are filtered through the configured deadband.
func (m *TagMapping) IsSignificantChange(value TagValue) bool {
	if m.LastValue.IsZero() {
		return true
	}
	current, ok := value.Numeric()
	if !ok {
		return true
	}
	previous, ok := m.LastValue.Numeric()
	if !ok {
		return true
	}
	return m.Config.ExceedsDeadband(current, previous)
}

// IsStale returns true when the mapping has never been read or its last
// reading is older than the threshold.
func (m *TagMapping) IsStale(now time.Time, threshold time.Duration) bool {
	if m.LastReadAt.IsZero() {
		return true
	}
	return now.UTC().Sub(m.LastReadAt) > threshold
}

// Enable turns the mapping on; enabling an enabled mapping is an error.
func (m *TagMapping) Enable(actor string, now time.Time) error {
	if m.Enabled {
		return fmt.Errorf("%w: tag mapping %s is already enabled", ErrAlreadyInState, m.ID)
	}
	m.Enabled = true
	m.UpdatedBy = actor
	m.UpdatedAt = now.UTC()
	return nil
}

// Disable turns the mapping off, with the same already-in-state policy.
func (m *TagMapping) Disable(actor string, now time.Time) error {
	if !m.Enabled {
		return fmt.Errorf("%w: tag mapping %s is already disabled", ErrAlreadyInState, m.ID)
	}
	m.Enabled = false
	m.UpdatedBy = actor
	m.UpdatedAt = now.UTC()
	return nil
}

// TagMappingRepository manages tag mapping persistence, scoped by tenant and
// connection. SaveMany must be atomic: either every mapping in the batch is
// written or none are.
type TagMappingRepository interface {
	ListByConnection(ctx context.Context, tenantID, connectionID string) ([]TagMapping, error)
	FindByID(ctx context.Context, tenantID, connectionID, id string) (*TagMapping, error)
	FindByNodeID(ctx context.Context, tenantID, connectionID, nodeID string) (*TagMapping, error)
	ExistsByNodeID(ctx context.Context, tenantID, connectionID, nodeID string) (bool, error)
	ExistsByFieldProperty(ctx context.Context, tenantID, connectionID string, property FieldProperty) (bool, error)
	Save(ctx context.Context, mapping *TagMapping) error
	SaveMany(ctx context.Context, mappings []*TagMapping) error
}

// Reading is one accepted observation written to history storage.
type Reading struct {
	TenantID     string
	ConnectionID string
	TagMappingID string
	NodeID       string
	Value        TagValue
	Quality      string
	At           time.Time
}

// ReadingRepository persists accepted readings in batches.
type ReadingRepository interface {
	InsertReadings(ctx context.Context, readings []Reading) error
}
