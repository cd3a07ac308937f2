package application

import (
	"time"

	scada "wellpulse/internal/scada/domain"
)

// timestampLayout renders ISO-8601 UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// ConnectionView is the serializable projection of a connection handed to
// presentation adapters. Credentials never leave the domain; only the
// hasCredentials flag is exposed.
type ConnectionView struct {
	ID                  string  `json:"id"`
	TenantID            string  `json:"tenantId"`
	WellID              string  `json:"wellId"`
	Name                string  `json:"name"`
	Description         string  `json:"description,omitempty"`
	EndpointURL         string  `json:"endpointUrl"`
	SecurityMode        string  `json:"securityMode"`
	SecurityPolicy      string  `json:"securityPolicy"`
	HasCredentials      bool    `json:"hasCredentials"`
	PollIntervalSeconds int     `json:"pollIntervalSeconds"`
	Status              string  `json:"status"`
	LastConnectedAt     *string `json:"lastConnectedAt,omitempty"`
	LastErrorMessage    string  `json:"lastErrorMessage,omitempty"`
	IsEnabled           bool    `json:"isEnabled"`
	IsHealthy           bool    `json:"isHealthy"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
	CreatedBy           string  `json:"createdBy"`
	UpdatedBy           string  `json:"updatedBy"`
}

// TagMappingView is the serializable projection of a tag mapping.
type TagMappingView struct {
	ID                 string   `json:"id"`
	TenantID           string   `json:"tenantId"`
	ScadaConnectionID  string   `json:"scadaConnectionId"`
	NodeID             string   `json:"nodeId"`
	TagName            string   `json:"tagName"`
	FieldEntryProperty string   `json:"fieldEntryProperty"`
	DataType           string   `json:"dataType"`
	Unit               string   `json:"unit,omitempty"`
	ScalingFactor      float64  `json:"scalingFactor"`
	Deadband           *float64 `json:"deadband,omitempty"`
	IsEnabled          bool     `json:"isEnabled"`
	LastValue          any      `json:"lastValue,omitempty"`
	LastReadAt         *string  `json:"lastReadAt,omitempty"`
	CreatedAt          string   `json:"createdAt"`
	UpdatedAt          string   `json:"updatedAt"`
	CreatedBy          string   `json:"createdBy"`
	UpdatedBy          string   `json:"updatedBy"`
}

// TagMappingBatchView reports a batch creation result in input order.
type TagMappingBatchView struct {
	Count    int              `json:"count"`
	Mappings []TagMappingView `json:"mappings"`
}

func projectConnection(conn *scada.Connection, now time.Time, staleness time.Duration) ConnectionView {
	return ConnectionView{
		ID:                  conn.ID,
		TenantID:            conn.TenantID,
		WellID:              conn.WellID,
		Name:                conn.Name,
		Description:         conn.Description,
		EndpointURL:         conn.Endpoint.URL,
		SecurityMode:        string(conn.Endpoint.SecurityMode),
		SecurityPolicy:      string(conn.Endpoint.SecurityPolicy),
		HasCredentials:      conn.Endpoint.HasCredentials(),
		PollIntervalSeconds: conn.PollIntervalSeconds,
		Status:              string(conn.Status),
		LastConnectedAt:     formatOptionalTimestamp(conn.LastConnectedAt),
		LastErrorMessage:    conn.LastErrorMessage,
		IsEnabled:           conn.Enabled,
		IsHealthy:           conn.IsHealthy(now, staleness),
		CreatedAt:           formatTimestamp(conn.CreatedAt),
		UpdatedAt:           formatTimestamp(conn.UpdatedAt),
		CreatedBy:           conn.CreatedBy,
		UpdatedBy:           conn.UpdatedBy,
	}
}

func projectTagMapping(mapping *scada.TagMapping) TagMappingView {
	return TagMappingView{
		ID:                 mapping.ID,
		TenantID:           mapping.TenantID,
		ScadaConnectionID:  mapping.ConnectionID,
		NodeID:             mapping.Config.NodeID,
		TagName:            mapping.Config.TagName,
		FieldEntryProperty: string(mapping.Config.FieldProperty),
		DataType:           string(mapping.Config.DataType),
		Unit:               mapping.Config.Unit,
		ScalingFactor:      mapping.Config.ScalingFactor,
		Deadband:           mapping.Config.Deadband,
		IsEnabled:          mapping.Enabled,
		LastValue:          mapping.LastValue.Raw(),
		LastReadAt:         formatOptionalTimestamp(mapping.LastReadAt),
		CreatedAt:          formatTimestamp(mapping.CreatedAt),
		UpdatedAt:          formatTimestamp(mapping.UpdatedAt),
		CreatedBy:          mapping.CreatedBy,
		UpdatedBy:          mapping.UpdatedBy,
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatOptionalTimestamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	value := formatTimestamp(t)
	return &value
}
