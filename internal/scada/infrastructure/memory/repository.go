package memory

import (
	"context"
	"sort"
	"sync"

	scada "wellpulse/internal/scada/domain"
	wells "wellpulse/internal/wells/domain"
)

// ConnectionRepository is an in-memory connection store keyed by tenant and id.
type ConnectionRepository struct {
	mu   sync.RWMutex
	data map[string]map[string]*scada.Connection
}

// NewConnectionRepository constructs a repository.
func NewConnectionRepository() *ConnectionRepository {
	return &ConnectionRepository{data: make(map[string]map[string]*scada.Connection)}
}

// FindByID loads one connection or nil.
func (r *ConnectionRepository) FindByID(ctx context.Context, tenantID, id string) (*scada.Connection, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn := r.data[tenantID][id]
	if conn == nil {
		return nil, nil
	}
	copied := *conn
	return &copied, nil
}

// FindByWellID loads the connection bound to a well, or nil.
func (r *ConnectionRepository) FindByWellID(ctx context.Context, tenantID, wellID string) (*scada.Connection, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conn := range r.data[tenantID] {
		if conn.WellID == wellID {
			copied := *conn
			return &copied, nil
		}
	}
	return nil, nil
}

// ExistsByName reports whether a tenant already uses the name.
func (r *ConnectionRepository) ExistsByName(ctx context.Context, tenantID, name string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conn := range r.data[tenantID] {
		if conn.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// List returns all connections for a tenant ordered by name.
func (r *ConnectionRepository) List(ctx context.Context, tenantID string) ([]scada.Connection, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]scada.Connection, 0, len(r.data[tenantID]))
	for _, conn := range r.data[tenantID] {
		conns = append(conns, *conn)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].Name < conns[j].Name })
	return conns, nil
}

// Save persists a connection, overwriting any existing row.
func (r *ConnectionRepository) Save(ctx context.Context, conn *scada.Connection) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data[conn.TenantID] == nil {
		r.data[conn.TenantID] = make(map[string]*scada.Connection)
	}
	copied := *conn
	r.data[conn.TenantID][conn.ID] = &copied
	return nil
}

// Delete removes a connection if present.
func (r *ConnectionRepository) Delete(ctx context.Context, tenantID, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data[tenantID], id)
	return nil
}

// TagMappingRepository is an in-memory tag mapping store.
type TagMappingRepository struct {
	mu   sync.RWMutex
	data map[string]map[string]*scada.TagMapping
}

// NewTagMappingRepository constructs a repository.
func NewTagMappingRepository() *TagMappingRepository {
	return &TagMappingRepository{data: make(map[string]map[string]*scada.TagMapping)}
}

// ListByConnection returns a connection's mappings ordered by tag name.
func (r *TagMappingRepository) ListByConnection(ctx context.Context, tenantID, connectionID string) ([]scada.TagMapping, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var mappings []scada.TagMapping
	for _, mapping := range r.data[tenantID] {
		if mapping.ConnectionID == connectionID {
			mappings = append(mappings, *mapping)
		}
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].Config.TagName < mappings[j].Config.TagName })
	return mappings, nil
}

// FindByID loads one mapping scoped to a connection, or nil.
func (r *TagMappingRepository) FindByID(ctx context.Context, tenantID, connectionID, id string) (*scada.TagMapping, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	mapping := r.data[tenantID][id]
	if mapping == nil || mapping.ConnectionID != connectionID {
		return nil, nil
	}
	copied := *mapping
	return &copied, nil
}

// FindByNodeID loads the mapping for a node id within a connection, or nil.
func (r *TagMappingRepository) FindByNodeID(ctx context.Context, tenantID, connectionID, nodeID string) (*scada.TagMapping, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, mapping := range r.data[tenantID] {
		if mapping.ConnectionID == connectionID && mapping.Config.NodeID == nodeID {
			copied := *mapping
			return &copied, nil
		}
	}
	return nil, nil
}

// ExistsByNodeID reports whether the node id is already mapped in the
// connection.
func (r *TagMappingRepository) ExistsByNodeID(ctx context.Context, tenantID, connectionID, nodeID string) (bool, error) {
	mapping, err := r.FindByNodeID(ctx, tenantID, connectionID, nodeID)
	return mapping != nil, err
}

// ExistsByFieldProperty reports whether the property is already mapped in the
// connection.
func (r *TagMappingRepository) ExistsByFieldProperty(ctx context.Context, tenantID, connectionID string, property scada.FieldProperty) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, mapping := range r.data[tenantID] {
		if mapping.ConnectionID == connectionID && mapping.Config.FieldProperty == property {
			return true, nil
		}
	}
	return false, nil
}

// Save persists one mapping, overwriting any existing row.
func (r *TagMappingRepository) Save(ctx context.Context, mapping *scada.TagMapping) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(mapping)
	return nil
}

// SaveMany persists a batch under one lock; the map writes cannot partially
// fail, which gives the all-or-nothing contract.
func (r *TagMappingRepository) SaveMany(ctx context.Context, mappings []*scada.TagMapping) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mapping := range mappings {
		r.put(mapping)
	}
	return nil
}

func (r *TagMappingRepository) put(mapping *scada.TagMapping) {
	if r.data[mapping.TenantID] == nil {
		r.data[mapping.TenantID] = make(map[string]*scada.TagMapping)
	}
	copied := *mapping
	r.data[mapping.TenantID][mapping.ID] = &copied
}

// ReadingRepository is an in-memory reading sink for tests.
type ReadingRepository struct {
	mu       sync.RWMutex
	Readings []scada.Reading
}

// NewReadingRepository constructs a repository.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{}
}

// InsertReadings appends a batch.
func (r *ReadingRepository) InsertReadings(ctx context.Context, readings []scada.Reading) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Readings = append(r.Readings, readings...)
	return nil
}

// Count returns the number of stored readings.
func (r *ReadingRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Readings)
}

// WellRepository is an in-memory well lookup for tests.
type WellRepository struct {
	mu   sync.RWMutex
	data map[string]map[string]*wells.Well
}

// NewWellRepository constructs a repository.
func NewWellRepository() *WellRepository {
	return &WellRepository{data: make(map[string]map[string]*wells.Well)}
}

// Put stores a well.
func (r *WellRepository) Put(well *wells.Well) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data[well.TenantID] == nil {
		r.data[well.TenantID] = make(map[string]*wells.Well)
	}
	copied := *well
	r.data[well.TenantID][well.ID] = &copied
}

// Get loads one well or nil.
func (r *WellRepository) Get(ctx context.Context, tenantID, wellID string) (*wells.Well, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	well := r.data[tenantID][wellID]
	if well == nil {
		return nil, nil
	}
	copied := *well
	return &copied, nil
}
