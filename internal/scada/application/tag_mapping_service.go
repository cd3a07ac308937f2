package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wellpulse/internal/observability/metrics"
	scada "wellpulse/internal/scada/domain"
)

// TagMappingService runs tag mapping configuration and reading workflows.
type TagMappingService struct {
	conns    scada.ConnectionRepository
	mappings scada.TagMappingRepository
	readings scada.ReadingRepository
	clock    Clock
	newID    func() string
}

// TagMappingServiceOption customizes the service.
type TagMappingServiceOption func(*TagMappingService)

// WithTagMappingClock assigns a clock.
func WithTagMappingClock(clock Clock) TagMappingServiceOption {
	return func(s *TagMappingService) {
		s.clock = clock
	}
}

// WithTagMappingIDFunc assigns an id generator.
func WithTagMappingIDFunc(newID func() string) TagMappingServiceOption {
	return func(s *TagMappingService) {
		s.newID = newID
	}
}

// NewTagMappingService constructs a tag mapping service. The reading
// repository may be nil when history persistence is not wired.
func NewTagMappingService(connRepo scada.ConnectionRepository, mappingRepo scada.TagMappingRepository, readingRepo scada.ReadingRepository, opts ...TagMappingServiceOption) (*TagMappingService, error) {
	if connRepo == nil {
		return nil, errors.New("tag mapping service: nil connection repository")
	}
	if mappingRepo == nil {
		return nil, errors.New("tag mapping service: nil tag mapping repository")
	}
	service := &TagMappingService{
		conns:    connRepo,
		mappings: mappingRepo,
		readings: readingRepo,
		clock:    systemClock{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// TagMappingSpec is one requested mapping in a batch.
type TagMappingSpec struct {
	NodeID        string
	TagName       string
	FieldProperty string
	DataType      string
	Unit          string
	ScalingFactor *float64
	Deadband      *float64
}

// CreateTagMappings runs the batch creation workflow. The whole batch is
// checked before anything is written: intra-batch duplicates first, then
// collisions against persisted mappings, then validation of every spec. A
// single failure rejects the entire batch.
func (s *TagMappingService) CreateTagMappings(ctx context.Context, tenantID, connectionID, actor string, specs []TagMappingSpec) (*TagMappingBatchView, error) {
	start := s.clock.Now()

	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", scada.ErrInvalidTagConfig)
	}

	conn, err := s.conns.FindByID(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		metrics.ObserveTagBatch(metrics.ResultError, len(specs), s.clock.Now().Sub(start))
		return nil, fmt.Errorf("%w: %s", scada.ErrConnectionNotFound, connectionID)
	}

	if err := checkBatchDuplicates(specs); err != nil {
		metrics.ObserveTagBatch(metrics.ResultError, len(specs), s.clock.Now().Sub(start))
		return nil, err
	}

	for _, spec := range specs {
		exists, err := s.mappings.ExistsByNodeID(ctx, tenantID, connectionID, spec.NodeID)
		if err != nil {
			return nil, err
		}
		if exists {
			metrics.ObserveTagBatch(metrics.ResultError, len(specs), s.clock.Now().Sub(start))
			return nil, fmt.Errorf("%w: node id %q", scada.ErrDuplicateInConnection, spec.NodeID)
		}
		exists, err = s.mappings.ExistsByFieldProperty(ctx, tenantID, connectionID, scada.FieldProperty(spec.FieldProperty))
		if err != nil {
			return nil, err
		}
		if exists {
			metrics.ObserveTagBatch(metrics.ResultError, len(specs), s.clock.Now().Sub(start))
			return nil, fmt.Errorf("%w: field property %q", scada.ErrDuplicateInConnection, spec.FieldProperty)
		}
	}

	now := s.clock.Now()
	mappings := make([]*scada.TagMapping, 0, len(specs))
	for _, spec := range specs {
		config, err := scada.NewTagConfig(
			spec.NodeID,
			spec.TagName,
			scada.FieldProperty(spec.FieldProperty),
			scada.DataType(spec.DataType),
			spec.Unit,
			spec.ScalingFactor,
			spec.Deadband,
		)
		if err != nil {
			metrics.ObserveTagBatch(metrics.ResultError, len(specs), s.clock.Now().Sub(start))
			return nil, fmt.Errorf("%w: tag %q: %w", scada.ErrInvalidTagConfig, spec.TagName, err)
		}
		mappings = append(mappings, scada.NewTagMapping(s.newID(), tenantID, connectionID, config, actor, now))
	}

	if err := s.mappings.SaveMany(ctx, mappings); err != nil {
		metrics.ObserveTagBatch(metrics.ResultError, len(specs), s.clock.Now().Sub(start))
		return nil, err
	}

	metrics.ObserveTagBatch(metrics.ResultSuccess, len(specs), s.clock.Now().Sub(start))

	views := make([]TagMappingView, 0, len(mappings))
	for _, mapping := range mappings {
		views = append(views, projectTagMapping(mapping))
	}
	return &TagMappingBatchView{Count: len(views), Mappings: views}, nil
}

// checkBatchDuplicates scans the batch for repeated node ids, field properties
// and tag names, in that order, naming the first offender.
func checkBatchDuplicates(specs []TagMappingSpec) error {
	nodeIDs := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if _, dup := nodeIDs[spec.NodeID]; dup {
			return fmt.Errorf("%w: node id %q", scada.ErrDuplicateInRequest, spec.NodeID)
		}
		nodeIDs[spec.NodeID] = struct{}{}
	}
	properties := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if _, dup := properties[spec.FieldProperty]; dup {
			return fmt.Errorf("%w: field property %q", scada.ErrDuplicateInRequest, spec.FieldProperty)
		}
		properties[spec.FieldProperty] = struct{}{}
	}
	tagNames := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if _, dup := tagNames[spec.TagName]; dup {
			return fmt.Errorf("%w: tag name %q", scada.ErrDuplicateInRequest, spec.TagName)
		}
		tagNames[spec.TagName] = struct{}{}
	}
	return nil
}

// ListTagMappings loads all mapping projections for a connection.
func (s *TagMappingService) ListTagMappings(ctx context.Context, tenantID, connectionID string) ([]TagMappingView, error) {
	conn, err := s.conns.FindByID(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", scada.ErrConnectionNotFound, connectionID)
	}
	mappings, err := s.mappings.ListByConnection(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	views := make([]TagMappingView, 0, len(mappings))
	for i := range mappings {
		views = append(views, projectTagMapping(&mappings[i]))
	}
	return views, nil
}

// EnableTagMapping turns a mapping on.
func (s *TagMappingService) EnableTagMapping(ctx context.Context, tenantID, connectionID, id, actor string) (*TagMappingView, error) {
	return s.setMappingEnabled(ctx, tenantID, connectionID, id, actor, true)
}

// DisableTagMapping turns a mapping off.
func (s *TagMappingService) DisableTagMapping(ctx context.Context, tenantID, connectionID, id, actor string) (*TagMappingView, error) {
	return s.setMappingEnabled(ctx, tenantID, connectionID, id, actor, false)
}

func (s *TagMappingService) setMappingEnabled(ctx context.Context, tenantID, connectionID, id, actor string, enabled bool) (*TagMappingView, error) {
	mapping, err := s.mappings.FindByID(ctx, tenantID, connectionID, id)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, fmt.Errorf("%w: %s", scada.ErrTagMappingNotFound, id)
	}
	now := s.clock.Now()
	if enabled {
		err = mapping.Enable(actor, now)
	} else {
		err = mapping.Disable(actor, now)
	}
	if err != nil {
		return nil, err
	}
	if err := s.mappings.Save(ctx, mapping); err != nil {
		return nil, err
	}
	view := projectTagMapping(mapping)
	return &view, nil
}

// ReadingInput is one raw observation from the ingestion client, addressed by
// node id.
type ReadingInput struct {
	NodeID  string
	Value   scada.TagValue
	Quality string
	At      time.Time
}

// ReadingBatchResult summarizes one processed reading batch.
type ReadingBatchResult struct {
	Accepted   int `json:"accepted"`
	Suppressed int `json:"suppressed"`
	Unmapped   int `json:"unmapped"`
}

// RecordReadings applies a batch of raw readings to a connection's mappings.
// Numeric values are scaled into engineering units first. The deadband gates
// everything: a suppressed reading neither updates the mapping state nor
// reaches history storage. Readings for disabled or unknown node ids are
// counted and dropped.
func (s *TagMappingService) RecordReadings(ctx context.Context, tenantID, connectionID string, inputs []ReadingInput) (*ReadingBatchResult, error) {
	conn, err := s.conns.FindByID(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", scada.ErrConnectionNotFound, connectionID)
	}

	mappings, err := s.mappings.ListByConnection(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	byNodeID := make(map[string]*scada.TagMapping, len(mappings))
	for i := range mappings {
		byNodeID[mappings[i].Config.NodeID] = &mappings[i]
	}

	result := &ReadingBatchResult{}
	var history []scada.Reading
	touched := make(map[string]*scada.TagMapping)

	for _, input := range inputs {
		mapping, ok := byNodeID[input.NodeID]
		if !ok || !mapping.Enabled {
			result.Unmapped++
			continue
		}

		value := input.Value
		if raw, isNum := value.Numeric(); isNum {
			value = scada.NumericValue(mapping.Config.ScaleValue(raw))
		}

		if !mapping.IsSignificantChange(value) {
			result.Suppressed++
			continue
		}

		at := input.At
		if at.IsZero() {
			at = s.clock.Now()
		}
		mapping.RecordReading(value, at)
		touched[mapping.ID] = mapping

		quality := input.Quality
		if quality == "" {
			quality = "good"
		}
		history = append(history, scada.Reading{
			TenantID:     tenantID,
			ConnectionID: connectionID,
			TagMappingID: mapping.ID,
			NodeID:       input.NodeID,
			Value:        value,
			Quality:      quality,
			At:           at.UTC(),
		})
		result.Accepted++
	}

	for _, mapping := range touched {
		if err := s.mappings.Save(ctx, mapping); err != nil {
			return nil, err
		}
	}
	if s.readings != nil && len(history) > 0 {
		if err := s.readings.InsertReadings(ctx, history); err != nil {
			return nil, err
		}
	}

	metrics.AddReadings(metrics.ReadingAccepted, result.Accepted)
	metrics.AddReadings(metrics.ReadingSuppressed, result.Suppressed)
	metrics.AddReadings(metrics.ReadingUnmapped, result.Unmapped)
	return result, nil
}
