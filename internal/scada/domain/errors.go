package scada

import "errors"

// Validation faults. Each rule has its own sentinel so callers can report the
// exact constraint that failed; constructors wrap these with the offending
// value.
var (
	ErrInvalidURL              = errors.New("scada: endpoint url must start with opc.tcp://")
	ErrSecurityMismatch        = errors.New("scada: security mode and policy mismatch")
	ErrIncompleteCredentials   = errors.New("scada: username and password must both be set or both be empty")
	ErrInvalidNodeID           = errors.New("scada: node id must contain a namespace marker")
	ErrInvalidTagName          = errors.New("scada: tag name must start with a letter and contain only letters, digits and underscores")
	ErrInvalidFieldProperty    = errors.New("scada: unknown field property")
	ErrInvalidDataType         = errors.New("scada: unknown data type")
	ErrInvalidScalingFactor    = errors.New("scada: scaling factor must be greater than zero")
	ErrInvalidDeadband         = errors.New("scada: deadband must not be negative")
	ErrInvalidName             = errors.New("scada: connection name must be 3-100 characters")
	ErrInvalidPollInterval     = errors.New("scada: poll interval must be between 1 and 300 seconds")
	ErrInvalidTransition       = errors.New("scada: invalid status transition")
	ErrAlreadyInState          = errors.New("scada: already in requested state")
	ErrInvalidEndpointConfig   = errors.New("scada: invalid endpoint configuration")
	ErrInvalidConnectionConfig = errors.New("scada: invalid connection configuration")
	ErrInvalidTagConfig        = errors.New("scada: invalid tag configuration")
)

// Lookup and conflict faults raised by the creation workflows and, on
// constraint violations, by the Postgres repositories.
var (
	ErrWellNotFound            = errors.New("scada: well not found")
	ErrConnectionNotFound      = errors.New("scada: connection not found")
	ErrTagMappingNotFound      = errors.New("scada: tag mapping not found")
	ErrDuplicateWellConnection = errors.New("scada: well already has a connection")
	ErrDuplicateConnectionName = errors.New("scada: connection name already in use")
	ErrDuplicateInRequest      = errors.New("scada: duplicate tag in request")
	ErrDuplicateInConnection   = errors.New("scada: tag already mapped on this connection")
)
