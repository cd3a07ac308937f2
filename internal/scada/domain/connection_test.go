package scada

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func testEndpoint(t *testing.T) EndpointConfig {
	t.Helper()
	endpoint, err := NewEndpointConfig("opc.tcp://10.0.0.1:4840", SecurityModeNone, SecurityPolicyNone, "", "")
	if err != nil {
		t.Fatalf("build endpoint: %v", err)
	}
	return endpoint
}

func testConnection(t *testing.T) *Connection {
	t.Helper()
	conn, err := NewConnection("conn-1", "tenant-1", "well-1", "Pad A Well 7", "", testEndpoint(t), nil, "user-1", time.Now())
	if err != nil {
		t.Fatalf("build connection: %v", err)
	}
	return conn
}

func TestNewConnection_Defaults(t *testing.T) {
	conn := testConnection(t)
	if conn.Status != StatusInactive {
		t.Fatalf("expected initial status inactive, got %s", conn.Status)
	}
	if conn.PollIntervalSeconds != DefaultPollIntervalSeconds {
		t.Fatalf("expected default poll interval %d, got %d", DefaultPollIntervalSeconds, conn.PollIntervalSeconds)
	}
	if !conn.Enabled {
		t.Fatalf("expected connection enabled by default")
	}
}

func TestNewConnection_NameBounds(t *testing.T) {
	endpoint := testEndpoint(t)
	if _, err := NewConnection("c", "t", "w", "ab", "", endpoint, nil, "u", time.Now()); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("2-char name: expected ErrInvalidName, got %v", err)
	}
	if _, err := NewConnection("c", "t", "w", strings.Repeat("x", 101), "", endpoint, nil, "u", time.Now()); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("101-char name: expected ErrInvalidName, got %v", err)
	}
	if _, err := NewConnection("c", "t", "w", "abc", "", endpoint, nil, "u", time.Now()); err != nil {
		t.Fatalf("3-char name rejected: %v", err)
	}
	if _, err := NewConnection("c", "t", "w", strings.Repeat("x", 100), "", endpoint, nil, "u", time.Now()); err != nil {
		t.Fatalf("100-char name rejected: %v", err)
	}
}

func TestNewConnection_PollIntervalBounds(t *testing.T) {
	endpoint := testEndpoint(t)
	for _, seconds := range []int{0, -5, 301} {
		if _, err := NewConnection("c", "t", "w", "Pad A", "", endpoint, intPtr(seconds), "u", time.Now()); !errors.Is(err, ErrInvalidPollInterval) {
			t.Fatalf("interval %d: expected ErrInvalidPollInterval, got %v", seconds, err)
		}
	}
	for _, seconds := range []int{1, 300} {
		conn, err := NewConnection("c", "t", "w", "Pad A", "", endpoint, intPtr(seconds), "u", time.Now())
		if err != nil {
			t.Fatalf("interval %d rejected: %v", seconds, err)
		}
		if conn.PollIntervalSeconds != seconds {
			t.Fatalf("expected interval %d, got %d", seconds, conn.PollIntervalSeconds)
		}
	}
}

func TestConnection_StateMachine(t *testing.T) {
	conn := testConnection(t)
	now := time.Now()

	if err := conn.MarkConnected(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("inactive->active: expected ErrInvalidTransition, got %v", err)
	}
	if err := conn.MarkError("boom", now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("inactive->error: expected ErrInvalidTransition, got %v", err)
	}

	if err := conn.MarkConnecting(now); err != nil {
		t.Fatalf("mark connecting: %v", err)
	}
	if conn.Status != StatusConnecting {
		t.Fatalf("expected connecting, got %s", conn.Status)
	}

	if err := conn.MarkError("session refused", now); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	if conn.Status != StatusError || conn.LastErrorMessage != "session refused" {
		t.Fatalf("expected error state with message, got %s %q", conn.Status, conn.LastErrorMessage)
	}

	// Error -> Active without an explicit reconnect step.
	if err := conn.MarkConnected(now); err != nil {
		t.Fatalf("error->active: %v", err)
	}
	if conn.Status != StatusActive {
		t.Fatalf("expected active, got %s", conn.Status)
	}
	if conn.LastErrorMessage != "" {
		t.Fatalf("expected last error cleared, got %q", conn.LastErrorMessage)
	}
	if conn.LastConnectedAt.IsZero() {
		t.Fatalf("expected last connected stamp")
	}

	// Active -> Connecting on forced reconnect.
	if err := conn.MarkConnecting(now); err != nil {
		t.Fatalf("active->connecting: %v", err)
	}
	if err := conn.MarkConnected(now); err != nil {
		t.Fatalf("connecting->active: %v", err)
	}

	// Repeated success reports while Active refresh the heartbeat.
	later := now.Add(30 * time.Second)
	if err := conn.MarkConnected(later); err != nil {
		t.Fatalf("active->active refresh: %v", err)
	}
	if !conn.LastConnectedAt.Equal(later.UTC()) {
		t.Fatalf("expected heartbeat refreshed to %v, got %v", later.UTC(), conn.LastConnectedAt)
	}
}

func TestConnection_IsHealthy(t *testing.T) {
	conn := testConnection(t)
	now := time.Now()

	if conn.IsHealthy(now, DefaultStalenessThreshold) {
		t.Fatalf("inactive connection should not be healthy")
	}

	if err := conn.MarkConnecting(now); err != nil {
		t.Fatalf("mark connecting: %v", err)
	}
	if err := conn.MarkConnected(now); err != nil {
		t.Fatalf("mark connected: %v", err)
	}
	if !conn.IsHealthy(now, 0) {
		t.Fatalf("freshly connected connection should be healthy at any threshold >= 0")
	}
	if conn.IsHealthy(now.Add(2*time.Minute), DefaultStalenessThreshold) {
		t.Fatalf("stale heartbeat should not be healthy")
	}

	if err := conn.Disable("user-1", now); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if conn.IsHealthy(now, DefaultStalenessThreshold) {
		t.Fatalf("disabled connection should not be healthy")
	}
}

func TestConnection_EnableDisableIdempotencyErrors(t *testing.T) {
	conn := testConnection(t)
	now := time.Now()

	if err := conn.Enable("user-1", now); !errors.Is(err, ErrAlreadyInState) {
		t.Fatalf("enable while enabled: expected ErrAlreadyInState, got %v", err)
	}
	if err := conn.Disable("user-1", now); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := conn.Disable("user-1", now); !errors.Is(err, ErrAlreadyInState) {
		t.Fatalf("disable while disabled: expected ErrAlreadyInState, got %v", err)
	}
	if err := conn.Enable("user-1", now); err != nil {
		t.Fatalf("enable: %v", err)
	}
}

func TestConnection_ApplyUpdate(t *testing.T) {
	conn := testConnection(t)
	now := time.Now()

	if err := conn.ApplyUpdate(ConnectionUpdate{PollIntervalSeconds: intPtr(301)}, "user-2", now); !errors.Is(err, ErrInvalidPollInterval) {
		t.Fatalf("expected ErrInvalidPollInterval, got %v", err)
	}
	if conn.UpdatedBy != "user-1" {
		t.Fatalf("failed update must not touch audit fields")
	}

	name := "Pad A Well 7 (rev)"
	description := "updated"
	if err := conn.ApplyUpdate(ConnectionUpdate{Name: &name, Description: &description, PollIntervalSeconds: intPtr(30)}, "user-2", now); err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if conn.Name != name || conn.Description != description || conn.PollIntervalSeconds != 30 {
		t.Fatalf("update not applied: %+v", conn)
	}
	if conn.UpdatedBy != "user-2" {
		t.Fatalf("expected updated-by user-2, got %s", conn.UpdatedBy)
	}
	// Omitted fields stay put.
	if conn.Endpoint.URL != "opc.tcp://10.0.0.1:4840" {
		t.Fatalf("endpoint should be unchanged, got %s", conn.Endpoint.URL)
	}
}
