package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wellpulse/internal/observability/metrics"
	scada "wellpulse/internal/scada/domain"
	wells "wellpulse/internal/wells/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// ConnectionService runs the connection configuration workflows.
type ConnectionService struct {
	wells     wells.WellRepository
	conns     scada.ConnectionRepository
	clock     Clock
	newID     func() string
	staleness time.Duration
	overrides map[string]time.Duration
}

// ConnectionServiceOption customizes the service.
type ConnectionServiceOption func(*ConnectionService)

// WithConnectionClock assigns a clock.
func WithConnectionClock(clock Clock) ConnectionServiceOption {
	return func(s *ConnectionService) {
		s.clock = clock
	}
}

// WithConnectionIDFunc assigns an id generator.
func WithConnectionIDFunc(newID func() string) ConnectionServiceOption {
	return func(s *ConnectionService) {
		s.newID = newID
	}
}

// WithStalenessThreshold overrides the health window used by projections.
func WithStalenessThreshold(threshold time.Duration) ConnectionServiceOption {
	return func(s *ConnectionService) {
		if threshold > 0 {
			s.staleness = threshold
		}
	}
}

// WithStalenessOverrides sets per-connection health windows; connections not
// listed keep the default threshold.
func WithStalenessOverrides(overrides map[string]time.Duration) ConnectionServiceOption {
	return func(s *ConnectionService) {
		s.overrides = overrides
	}
}

// NewConnectionService constructs a connection service.
func NewConnectionService(wellRepo wells.WellRepository, connRepo scada.ConnectionRepository, opts ...ConnectionServiceOption) (*ConnectionService, error) {
	if wellRepo == nil {
		return nil, errors.New("connection service: nil well repository")
	}
	if connRepo == nil {
		return nil, errors.New("connection service: nil connection repository")
	}
	service := &ConnectionService{
		wells:     wellRepo,
		conns:     connRepo,
		clock:     systemClock{},
		newID:     uuid.NewString,
		staleness: scada.DefaultStalenessThreshold,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

func (s *ConnectionService) stalenessFor(connectionID string) time.Duration {
	if override, ok := s.overrides[connectionID]; ok && override > 0 {
		return override
	}
	return s.staleness
}

// CreateConnectionInput carries the creation request.
type CreateConnectionInput struct {
	TenantID            string
	WellID              string
	Name                string
	Description         string
	EndpointURL         string
	SecurityMode        string
	SecurityPolicy      string
	Username            string
	Password            string
	PollIntervalSeconds *int
	Actor               string
}

// CreateConnection runs the creation workflow: well existence, the
// one-connection-per-well rule, name uniqueness, endpoint and connection
// validation, then a single upsert. Gates run strictly in that order so each
// failure mode stays distinguishable.
func (s *ConnectionService) CreateConnection(ctx context.Context, input CreateConnectionInput) (*ConnectionView, error) {
	start := s.clock.Now()

	well, err := s.wells.Get(ctx, input.TenantID, input.WellID)
	if err != nil {
		return nil, err
	}
	if well == nil {
		metrics.ObserveConnectionCreate(metrics.ResultError, s.clock.Now().Sub(start))
		return nil, fmt.Errorf("%w: %s", scada.ErrWellNotFound, input.WellID)
	}

	existing, err := s.conns.FindByWellID(ctx, input.TenantID, input.WellID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.ObserveConnectionCreate(metrics.ResultError, s.clock.Now().Sub(start))
		return nil, fmt.Errorf("%w: well %s", scada.ErrDuplicateWellConnection, input.WellID)
	}

	taken, err := s.conns.ExistsByName(ctx, input.TenantID, input.Name)
	if err != nil {
		return nil, err
	}
	if taken {
		metrics.ObserveConnectionCreate(metrics.ResultError, s.clock.Now().Sub(start))
		return nil, fmt.Errorf("%w: %q", scada.ErrDuplicateConnectionName, input.Name)
	}

	endpoint, err := scada.NewEndpointConfig(
		input.EndpointURL,
		scada.SecurityMode(input.SecurityMode),
		scada.SecurityPolicy(input.SecurityPolicy),
		input.Username,
		input.Password,
	)
	if err != nil {
		metrics.ObserveConnectionCreate(metrics.ResultError, s.clock.Now().Sub(start))
		return nil, fmt.Errorf("%w: %w", scada.ErrInvalidEndpointConfig, err)
	}

	now := s.clock.Now()
	conn, err := scada.NewConnection(s.newID(), input.TenantID, input.WellID, input.Name, input.Description, endpoint, input.PollIntervalSeconds, input.Actor, now)
	if err != nil {
		metrics.ObserveConnectionCreate(metrics.ResultError, s.clock.Now().Sub(start))
		return nil, fmt.Errorf("%w: %w", scada.ErrInvalidConnectionConfig, err)
	}

	if err := s.conns.Save(ctx, conn); err != nil {
		metrics.ObserveConnectionCreate(metrics.ResultError, s.clock.Now().Sub(start))
		return nil, err
	}

	metrics.ObserveConnectionCreate(metrics.ResultSuccess, s.clock.Now().Sub(start))
	view := projectConnection(conn, now, s.stalenessFor(conn.ID))
	return &view, nil
}

// UpdateConnectionInput carries a partial update; nil fields are untouched.
type UpdateConnectionInput struct {
	Name                *string
	Description         *string
	Endpoint            *EndpointInput
	PollIntervalSeconds *int
	Enabled             *bool
	Actor               string
}

// EndpointInput replaces the endpoint wholesale; the endpoint value itself is
// never patched field by field.
type EndpointInput struct {
	URL            string
	SecurityMode   string
	SecurityPolicy string
	Username       string
	Password       string
}

// UpdateConnection re-validates and applies the supplied fields.
func (s *ConnectionService) UpdateConnection(ctx context.Context, tenantID, id string, input UpdateConnectionInput) (*ConnectionView, error) {
	conn, err := s.conns.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", scada.ErrConnectionNotFound, id)
	}

	if input.Name != nil && *input.Name != conn.Name {
		taken, err := s.conns.ExistsByName(ctx, tenantID, *input.Name)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: %q", scada.ErrDuplicateConnectionName, *input.Name)
		}
	}

	update := scada.ConnectionUpdate{
		Name:                input.Name,
		Description:         input.Description,
		PollIntervalSeconds: input.PollIntervalSeconds,
		Enabled:             input.Enabled,
	}
	if input.Endpoint != nil {
		endpoint, err := scada.NewEndpointConfig(
			input.Endpoint.URL,
			scada.SecurityMode(input.Endpoint.SecurityMode),
			scada.SecurityPolicy(input.Endpoint.SecurityPolicy),
			input.Endpoint.Username,
			input.Endpoint.Password,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", scada.ErrInvalidEndpointConfig, err)
		}
		update.Endpoint = &endpoint
	}

	now := s.clock.Now()
	if err := conn.ApplyUpdate(update, input.Actor, now); err != nil {
		return nil, fmt.Errorf("%w: %w", scada.ErrInvalidConnectionConfig, err)
	}
	if err := s.conns.Save(ctx, conn); err != nil {
		return nil, err
	}
	view := projectConnection(conn, now, s.stalenessFor(conn.ID))
	return &view, nil
}

// EnableConnection turns a connection on.
func (s *ConnectionService) EnableConnection(ctx context.Context, tenantID, id, actor string) (*ConnectionView, error) {
	return s.setEnabled(ctx, tenantID, id, actor, true)
}

// DisableConnection turns a connection off.
func (s *ConnectionService) DisableConnection(ctx context.Context, tenantID, id, actor string) (*ConnectionView, error) {
	return s.setEnabled(ctx, tenantID, id, actor, false)
}

func (s *ConnectionService) setEnabled(ctx context.Context, tenantID, id, actor string, enabled bool) (*ConnectionView, error) {
	conn, err := s.conns.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", scada.ErrConnectionNotFound, id)
	}
	now := s.clock.Now()
	if enabled {
		err = conn.Enable(actor, now)
	} else {
		err = conn.Disable(actor, now)
	}
	if err != nil {
		return nil, err
	}
	if err := s.conns.Save(ctx, conn); err != nil {
		return nil, err
	}
	view := projectConnection(conn, now, s.stalenessFor(conn.ID))
	return &view, nil
}

// DeleteConnection removes a connection; tag mappings cascade in storage.
func (s *ConnectionService) DeleteConnection(ctx context.Context, tenantID, id string) error {
	conn, err := s.conns.FindByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if conn == nil {
		return fmt.Errorf("%w: %s", scada.ErrConnectionNotFound, id)
	}
	return s.conns.Delete(ctx, tenantID, id)
}

// GetConnection loads one connection projection.
func (s *ConnectionService) GetConnection(ctx context.Context, tenantID, id string) (*ConnectionView, error) {
	conn, err := s.conns.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", scada.ErrConnectionNotFound, id)
	}
	view := projectConnection(conn, s.clock.Now(), s.stalenessFor(conn.ID))
	return &view, nil
}

// ListConnections loads all connection projections for a tenant.
func (s *ConnectionService) ListConnections(ctx context.Context, tenantID string) ([]ConnectionView, error) {
	conns, err := s.conns.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	views := make([]ConnectionView, 0, len(conns))
	for i := range conns {
		views = append(views, projectConnection(&conns[i], now, s.stalenessFor(conns[i].ID)))
	}
	return views, nil
}

// Connection states the external ingestion client may report.
const (
	ReportStateConnecting = "connecting"
	ReportStateConnected  = "connected"
	ReportStateError      = "error"
)

// ReportStatusInput is a status report from the ingestion client.
type ReportStatusInput struct {
	TenantID     string
	ConnectionID string
	State        string
	Message      string
}

// ReportStatus applies a lifecycle report from the external OPC-UA client.
func (s *ConnectionService) ReportStatus(ctx context.Context, input ReportStatusInput) (*ConnectionView, error) {
	conn, err := s.conns.FindByID(ctx, input.TenantID, input.ConnectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", scada.ErrConnectionNotFound, input.ConnectionID)
	}

	now := s.clock.Now()
	switch input.State {
	case ReportStateConnecting:
		err = conn.MarkConnecting(now)
	case ReportStateConnected:
		err = conn.MarkConnected(now)
	case ReportStateError:
		err = conn.MarkError(input.Message, now)
	default:
		return nil, fmt.Errorf("connection service: unknown state %q", input.State)
	}
	if err != nil {
		return nil, err
	}

	if err := s.conns.Save(ctx, conn); err != nil {
		return nil, err
	}
	metrics.IncConnectionTransition(string(conn.Status))
	view := projectConnection(conn, now, s.stalenessFor(conn.ID))
	return &view, nil
}

// HealthCounts evaluates health across a tenant's connections, for the
// periodic sweep gauge.
func (s *ConnectionService) HealthCounts(ctx context.Context, tenantID string) (healthy, unhealthy int, err error) {
	conns, err := s.conns.List(ctx, tenantID)
	if err != nil {
		return 0, 0, err
	}
	now := s.clock.Now()
	for i := range conns {
		if conns[i].IsHealthy(now, s.stalenessFor(conns[i].ID)) {
			healthy++
		} else {
			unhealthy++
		}
	}
	return healthy, unhealthy, nil
}
