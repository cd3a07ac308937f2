package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	scada "wellpulse/internal/scada/domain"
	"wellpulse/internal/scada/infrastructure/memory"
	wells "wellpulse/internal/wells/domain"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type connectionFixture struct {
	service *ConnectionService
	wells   *memory.WellRepository
	conns   *memory.ConnectionRepository
	clock   *fixedClock
}

func newConnectionFixture(t *testing.T) *connectionFixture {
	t.Helper()
	clock := &fixedClock{now: time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)}
	wellRepo := memory.NewWellRepository()
	connRepo := memory.NewConnectionRepository()
	service, err := NewConnectionService(wellRepo, connRepo,
		WithConnectionClock(clock),
		WithConnectionIDFunc(sequentialIDs("conn")),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	wellRepo.Put(&wells.Well{ID: "well-1", TenantID: "tenant-1", Name: "Eagle Ford 23H"})
	return &connectionFixture{service: service, wells: wellRepo, conns: connRepo, clock: clock}
}

func validCreateInput() CreateConnectionInput {
	return CreateConnectionInput{
		TenantID:       "tenant-1",
		WellID:         "well-1",
		Name:           "Eagle Ford 23H RTU",
		EndpointURL:    "opc.tcp://10.0.4.17:4840",
		SecurityMode:   "None",
		SecurityPolicy: "None",
		Actor:          "user-1",
	}
}

func TestCreateConnection(t *testing.T) {
	f := newConnectionFixture(t)

	view, err := f.service.CreateConnection(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.ID != "conn-1" {
		t.Fatalf("expected generated id conn-1, got %s", view.ID)
	}
	if view.Status != "inactive" {
		t.Fatalf("expected initial status inactive, got %s", view.Status)
	}
	if view.PollIntervalSeconds != scada.DefaultPollIntervalSeconds {
		t.Fatalf("expected default poll interval, got %d", view.PollIntervalSeconds)
	}
	if !view.IsEnabled {
		t.Fatalf("new connection must be enabled")
	}
	if view.IsHealthy {
		t.Fatalf("inactive connection cannot be healthy")
	}

	saved, err := f.conns.FindByID(context.Background(), "tenant-1", "conn-1")
	if err != nil || saved == nil {
		t.Fatalf("expected connection persisted, got %v, %v", saved, err)
	}
}

func TestCreateConnection_WellNotFound(t *testing.T) {
	f := newConnectionFixture(t)
	input := validCreateInput()
	input.WellID = "well-missing"

	if _, err := f.service.CreateConnection(context.Background(), input); !errors.Is(err, scada.ErrWellNotFound) {
		t.Fatalf("expected ErrWellNotFound, got %v", err)
	}
}

func TestCreateConnection_DuplicateWell(t *testing.T) {
	f := newConnectionFixture(t)
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := validCreateInput()
	second.Name = "Eagle Ford 23H RTU Backup"
	if _, err := f.service.CreateConnection(context.Background(), second); !errors.Is(err, scada.ErrDuplicateWellConnection) {
		t.Fatalf("expected ErrDuplicateWellConnection, got %v", err)
	}
}

func TestCreateConnection_DuplicateName(t *testing.T) {
	f := newConnectionFixture(t)
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	f.wells.Put(&wells.Well{ID: "well-2", TenantID: "tenant-1", Name: "Eagle Ford 24H"})

	second := validCreateInput()
	second.WellID = "well-2"
	if _, err := f.service.CreateConnection(context.Background(), second); !errors.Is(err, scada.ErrDuplicateConnectionName) {
		t.Fatalf("expected ErrDuplicateConnectionName, got %v", err)
	}
}

func TestCreateConnection_InvalidEndpoint(t *testing.T) {
	f := newConnectionFixture(t)
	input := validCreateInput()
	input.EndpointURL = "http://10.0.4.17:4840"

	_, err := f.service.CreateConnection(context.Background(), input)
	if !errors.Is(err, scada.ErrInvalidEndpointConfig) {
		t.Fatalf("expected ErrInvalidEndpointConfig, got %v", err)
	}
	if !errors.Is(err, scada.ErrInvalidURL) {
		t.Fatalf("expected underlying ErrInvalidURL preserved, got %v", err)
	}
}

func TestCreateConnection_InvalidName(t *testing.T) {
	f := newConnectionFixture(t)
	input := validCreateInput()
	input.Name = "ab"

	_, err := f.service.CreateConnection(context.Background(), input)
	if !errors.Is(err, scada.ErrInvalidConnectionConfig) {
		t.Fatalf("expected ErrInvalidConnectionConfig, got %v", err)
	}
	if !errors.Is(err, scada.ErrInvalidName) {
		t.Fatalf("expected underlying ErrInvalidName preserved, got %v", err)
	}
}

func TestUpdateConnection(t *testing.T) {
	f := newConnectionFixture(t)
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Eagle Ford 23H RTU v2"
	interval := 30
	view, err := f.service.UpdateConnection(context.Background(), "tenant-1", "conn-1", UpdateConnectionInput{
		Name:                &name,
		PollIntervalSeconds: &interval,
		Actor:               "user-2",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if view.Name != name || view.PollIntervalSeconds != 30 {
		t.Fatalf("update not applied: %+v", view)
	}
	if view.UpdatedBy != "user-2" {
		t.Fatalf("expected updatedBy user-2, got %s", view.UpdatedBy)
	}
	// Untouched fields survive.
	if view.EndpointURL != "opc.tcp://10.0.4.17:4840" {
		t.Fatalf("endpoint must be untouched, got %s", view.EndpointURL)
	}
}

func TestUpdateConnection_RenameCollision(t *testing.T) {
	f := newConnectionFixture(t)
	f.wells.Put(&wells.Well{ID: "well-2", TenantID: "tenant-1", Name: "Eagle Ford 24H"})
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := validCreateInput()
	second.WellID = "well-2"
	second.Name = "Eagle Ford 24H RTU"
	if _, err := f.service.CreateConnection(context.Background(), second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	name := "Eagle Ford 23H RTU"
	if _, err := f.service.UpdateConnection(context.Background(), "tenant-1", "conn-2", UpdateConnectionInput{Name: &name}); !errors.Is(err, scada.ErrDuplicateConnectionName) {
		t.Fatalf("expected ErrDuplicateConnectionName, got %v", err)
	}
}

func TestReportStatus_Lifecycle(t *testing.T) {
	f := newConnectionFixture(t)
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	ctx := context.Background()

	view, err := f.service.ReportStatus(ctx, ReportStatusInput{TenantID: "tenant-1", ConnectionID: "conn-1", State: ReportStateConnecting})
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	if view.Status != "connecting" {
		t.Fatalf("expected connecting, got %s", view.Status)
	}

	view, err = f.service.ReportStatus(ctx, ReportStatusInput{TenantID: "tenant-1", ConnectionID: "conn-1", State: ReportStateConnected})
	if err != nil {
		t.Fatalf("connected: %v", err)
	}
	if view.Status != "active" || view.LastConnectedAt == nil {
		t.Fatalf("expected active with heartbeat, got %+v", view)
	}
	if !view.IsHealthy {
		t.Fatalf("freshly connected connection must be healthy")
	}

	view, err = f.service.ReportStatus(ctx, ReportStatusInput{TenantID: "tenant-1", ConnectionID: "conn-1", State: ReportStateError, Message: "session timeout"})
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if view.Status != "error" || view.LastErrorMessage != "session timeout" {
		t.Fatalf("expected error with message, got %+v", view)
	}

	// Recovery straight from error to active clears the fault.
	view, err = f.service.ReportStatus(ctx, ReportStatusInput{TenantID: "tenant-1", ConnectionID: "conn-1", State: ReportStateConnected})
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if view.Status != "active" || view.LastErrorMessage != "" {
		t.Fatalf("expected recovered active, got %+v", view)
	}
}

func TestReportStatus_InvalidJump(t *testing.T) {
	f := newConnectionFixture(t)
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := f.service.ReportStatus(context.Background(), ReportStatusInput{TenantID: "tenant-1", ConnectionID: "conn-1", State: ReportStateConnected})
	if !errors.Is(err, scada.ErrInvalidTransition) {
		t.Fatalf("inactive cannot go straight to active, got %v", err)
	}
}

func TestConnectionHealthSweep(t *testing.T) {
	f := newConnectionFixture(t)
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	ctx := context.Background()
	mustReport := func(state string) {
		t.Helper()
		if _, err := f.service.ReportStatus(ctx, ReportStatusInput{TenantID: "tenant-1", ConnectionID: "conn-1", State: state}); err != nil {
			t.Fatalf("report %s: %v", state, err)
		}
	}
	mustReport(ReportStateConnecting)
	mustReport(ReportStateConnected)

	healthy, unhealthy, err := f.service.HealthCounts(ctx, "tenant-1")
	if err != nil || healthy != 1 || unhealthy != 0 {
		t.Fatalf("expected 1 healthy: %d/%d, %v", healthy, unhealthy, err)
	}

	// Heartbeat older than the staleness window flips the connection.
	f.clock.Advance(2 * time.Minute)
	healthy, unhealthy, err = f.service.HealthCounts(ctx, "tenant-1")
	if err != nil || healthy != 0 || unhealthy != 1 {
		t.Fatalf("expected 1 unhealthy after staleness: %d/%d, %v", healthy, unhealthy, err)
	}
}

func TestEnableDisableConnection(t *testing.T) {
	f := newConnectionFixture(t)
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	ctx := context.Background()

	if _, err := f.service.EnableConnection(ctx, "tenant-1", "conn-1", "user-1"); !errors.Is(err, scada.ErrAlreadyInState) {
		t.Fatalf("enable while enabled: expected ErrAlreadyInState, got %v", err)
	}
	view, err := f.service.DisableConnection(ctx, "tenant-1", "conn-1", "user-1")
	if err != nil || view.IsEnabled {
		t.Fatalf("disable: %+v, %v", view, err)
	}
	view, err = f.service.EnableConnection(ctx, "tenant-1", "conn-1", "user-1")
	if err != nil || !view.IsEnabled {
		t.Fatalf("re-enable: %+v, %v", view, err)
	}
}

func TestDeleteConnection(t *testing.T) {
	f := newConnectionFixture(t)
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	ctx := context.Background()

	if err := f.service.DeleteConnection(ctx, "tenant-1", "conn-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.service.GetConnection(ctx, "tenant-1", "conn-1"); !errors.Is(err, scada.ErrConnectionNotFound) {
		t.Fatalf("expected ErrConnectionNotFound after delete, got %v", err)
	}
	if err := f.service.DeleteConnection(ctx, "tenant-1", "conn-1"); !errors.Is(err, scada.ErrConnectionNotFound) {
		t.Fatalf("second delete: expected ErrConnectionNotFound, got %v", err)
	}
}

func TestListConnections_TenantScoped(t *testing.T) {
	f := newConnectionFixture(t)
	if _, err := f.service.CreateConnection(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	views, err := f.service.ListConnections(context.Background(), "tenant-1")
	if err != nil || len(views) != 1 {
		t.Fatalf("expected 1 connection for tenant-1, got %d, %v", len(views), err)
	}
	views, err = f.service.ListConnections(context.Background(), "tenant-2")
	if err != nil || len(views) != 0 {
		t.Fatalf("expected no connections for tenant-2, got %d, %v", len(views), err)
	}
}

func TestHealthCounts_PerConnectionStalenessOverride(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)}
	wellRepo := memory.NewWellRepository()
	connRepo := memory.NewConnectionRepository()
	wellRepo.Put(&wells.Well{ID: "well-1", TenantID: "tenant-1", Name: "Eagle Ford 23H"})
	wellRepo.Put(&wells.Well{ID: "well-2", TenantID: "tenant-1", Name: "Eagle Ford 24H"})

	// conn-1 is a slow RTU allowed a five-minute heartbeat; conn-2 keeps the
	// one-minute default.
	service, err := NewConnectionService(wellRepo, connRepo,
		WithConnectionClock(clock),
		WithConnectionIDFunc(sequentialIDs("conn")),
		WithStalenessThreshold(time.Minute),
		WithStalenessOverrides(map[string]time.Duration{"conn-1": 5 * time.Minute}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx := context.Background()
	if _, err := service.CreateConnection(ctx, validCreateInput()); err != nil {
		t.Fatalf("create conn-1: %v", err)
	}
	second := validCreateInput()
	second.WellID = "well-2"
	second.Name = "Eagle Ford 24H RTU"
	if _, err := service.CreateConnection(ctx, second); err != nil {
		t.Fatalf("create conn-2: %v", err)
	}
	for _, id := range []string{"conn-1", "conn-2"} {
		for _, state := range []string{ReportStateConnecting, ReportStateConnected} {
			if _, err := service.ReportStatus(ctx, ReportStatusInput{TenantID: "tenant-1", ConnectionID: id, State: state}); err != nil {
				t.Fatalf("report %s on %s: %v", state, id, err)
			}
		}
	}

	clock.Advance(2 * time.Minute)
	healthy, unhealthy, err := service.HealthCounts(ctx, "tenant-1")
	if err != nil || healthy != 1 || unhealthy != 1 {
		t.Fatalf("expected override to keep conn-1 healthy: %d/%d, %v", healthy, unhealthy, err)
	}

	view, err := service.GetConnection(ctx, "tenant-1", "conn-1")
	if err != nil || !view.IsHealthy {
		t.Fatalf("expected conn-1 healthy under override, got %+v, %v", view, err)
	}
	view, err = service.GetConnection(ctx, "tenant-1", "conn-2")
	if err != nil || view.IsHealthy {
		t.Fatalf("expected conn-2 stale under default window, got %+v, %v", view, err)
	}
}
