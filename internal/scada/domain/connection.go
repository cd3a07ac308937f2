package scada

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
)

// ConnectionStatus is the lifecycle state of a connection.
type ConnectionStatus string

const (
	StatusInactive   ConnectionStatus = "inactive"
	StatusConnecting ConnectionStatus = "connecting"
	StatusActive     ConnectionStatus = "active"
	StatusError      ConnectionStatus = "error"
)

const (
	// MinNameLength and MaxNameLength bound the connection name.
	MinNameLength = 3
	MaxNameLength = 100

	// Poll interval bounds in seconds; DefaultPollIntervalSeconds applies
	// when the caller omits the interval.
	MinPollIntervalSeconds     = 1
	MaxPollIntervalSeconds     = 300
	DefaultPollIntervalSeconds = 5

	// DefaultStalenessThreshold is the health window when the caller does
	// not supply one.
	DefaultStalenessThreshold = 60 * time.Second
)

const (
	eventConnect   = "connect"
	eventConnected = "connected"
	eventFault     = "fault"
)

// statusMachine builds the transition table positioned at the current status.
// Self loops on active/error are permitted: the ingestion client reports
// every poll cycle and active connections must re-stamp their heartbeat.
func statusMachine(current ConnectionStatus) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			{Name: eventConnect, Src: []string{
				string(StatusInactive), string(StatusConnecting), string(StatusActive), string(StatusError),
			}, Dst: string(StatusConnecting)},
			{Name: eventConnected, Src: []string{
				string(StatusConnecting), string(StatusActive), string(StatusError),
			}, Dst: string(StatusActive)},
			{Name: eventFault, Src: []string{
				string(StatusConnecting), string(StatusActive), string(StatusError),
			}, Dst: string(StatusError)},
		},
		nil,
	)
}

// Connection is the aggregate root for one well's data-collection link.
type Connection struct {
	ID                  string
	TenantID            string
	WellID              string
	Name                string
	Description         string
	Endpoint            EndpointConfig
	PollIntervalSeconds int
	Status              ConnectionStatus
	LastConnectedAt     time.Time
	LastErrorMessage    string
	Enabled             bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CreatedBy           string
	UpdatedBy           string
}

// NewConnection validates creation input and builds a connection in the
// initial Inactive state. pollIntervalSeconds may be nil to take the default.
func NewConnection(id, tenantID, wellID, name, description string, endpoint EndpointConfig, pollIntervalSeconds *int, actor string, now time.Time) (*Connection, error) {
	if err := validateConnectionName(name); err != nil {
		return nil, err
	}
	interval := DefaultPollIntervalSeconds
	if pollIntervalSeconds != nil {
		if err := validatePollInterval(*pollIntervalSeconds); err != nil {
			return nil, err
		}
		interval = *pollIntervalSeconds
	}
	now = now.UTC()
	return &Connection{
		ID:                  id,
		TenantID:            tenantID,
		WellID:              wellID,
		Name:                name,
		Description:         description,
		Endpoint:            endpoint,
		PollIntervalSeconds: interval,
		Status:              StatusInactive,
		Enabled:             true,
		CreatedAt:           now,
		UpdatedAt:           now,
		CreatedBy:           actor,
		UpdatedBy:           actor,
	}, nil
}

// MarkConnecting moves the connection to Connecting. Allowed from any state.
func (c *Connection) MarkConnecting(now time.Time) error {
	if err := c.transition(eventConnect); err != nil {
		return err
	}
	c.UpdatedAt = now.UTC()
	return nil
}

// MarkConnected moves the connection to Active, stamps the heartbeat and
// clears the last error.
func (c *Connection) MarkConnected(now time.Time) error {
	if err := c.transition(eventConnected); err != nil {
		return err
	}
	now = now.UTC()
	c.LastConnectedAt = now
	c.LastErrorMessage = ""
	c.UpdatedAt = now
	return nil
}

// MarkError moves the connection to Error and records the fault message.
func (c *Connection) MarkError(message string, now time.Time) error {
	if err := c.transition(eventFault); err != nil {
		return err
	}
	c.LastErrorMessage = message
	c.UpdatedAt = now.UTC()
	return nil
}

// Enable turns the connection on. Enabling an enabled connection is an
// error: it signals a caller bug, not an idempotent retry.
func (c *Connection) Enable(actor string, now time.Time) error {
	if c.Enabled {
		return fmt.Errorf("%w: connection %s is already enabled", ErrAlreadyInState, c.ID)
	}
	c.Enabled = true
	c.UpdatedBy = actor
	c.UpdatedAt = now.UTC()
	return nil
}

// Disable turns the connection off, with the same already-in-state policy.
func (c *Connection) Disable(actor string, now time.Time) error {
	if !c.Enabled {
		return fmt.Errorf("%w: connection %s is already disabled", ErrAlreadyInState, c.ID)
	}
	c.Enabled = false
	c.UpdatedBy = actor
	c.UpdatedAt = now.UTC()
	return nil
}

// IsHealthy returns true when the connection is enabled, Active and has a
// heartbeat within the staleness threshold.
func (c *Connection) IsHealthy(now time.Time, staleness time.Duration) bool {
	if !c.Enabled || c.Status != StatusActive || c.LastConnectedAt.IsZero() {
		return false
	}
	return now.UTC().Sub(c.LastConnectedAt) <= staleness
}

// ConnectionUpdate is a partial update; nil fields are left unchanged.
type ConnectionUpdate struct {
	Name                *string
	Description         *string
	Endpoint            *EndpointConfig
	PollIntervalSeconds *int
	Enabled             *bool
}

// ApplyUpdate re-validates and applies the supplied fields.
func (c *Connection) ApplyUpdate(update ConnectionUpdate, actor string, now time.Time) error {
	if update.Name != nil {
		if err := validateConnectionName(*update.Name); err != nil {
			return err
		}
	}
	if update.PollIntervalSeconds != nil {
		if err := validatePollInterval(*update.PollIntervalSeconds); err != nil {
			return err
		}
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.Description != nil {
		c.Description = *update.Description
	}
	if update.Endpoint != nil {
		c.Endpoint = *update.Endpoint
	}
	if update.PollIntervalSeconds != nil {
		c.PollIntervalSeconds = *update.PollIntervalSeconds
	}
	if update.Enabled != nil {
		c.Enabled = *update.Enabled
	}
	c.UpdatedBy = actor
	c.UpdatedAt = now.UTC()
	return nil
}

func (c *Connection) transition(event string) error {
	machine := statusMachine(c.Status)
	if err := machine.Event(context.Background(), event); err != nil {
		var noop fsm.NoTransitionError
		if errors.As(err, &noop) {
			return nil
		}
		return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, c.Status)
	}
	c.Status = ConnectionStatus(machine.Current())
	return nil
}

func validateConnectionName(name string) error {
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return fmt.Errorf("%w: got %d characters", ErrInvalidName, len(name))
	}
	return nil
}

func validatePollInterval(seconds int) error {
	if seconds < MinPollIntervalSeconds || seconds > MaxPollIntervalSeconds {
		return fmt.Errorf("%w: got %d", ErrInvalidPollInterval, seconds)
	}
	return nil
}

// ConnectionRepository manages connection persistence, tenant-scoped. Lookups
// return nil without error when no row matches.
type ConnectionRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*Connection, error)
	FindByWellID(ctx context.Context, tenantID, wellID string) (*Connection, error)
	ExistsByName(ctx context.Context, tenantID, name string) (bool, error)
	List(ctx context.Context, tenantID string) ([]Connection, error)
	Save(ctx context.Context, conn *Connection) error
	Delete(ctx context.Context, tenantID, id string) error
}
