package wells

import (
	"context"
	"time"
)

// Well is the minimal projection of a well needed by the SCADA subsystem:
// existence and tenant ownership. Well management lives elsewhere.
type Well struct {
	ID        string
	TenantID  string
	Name      string
	APINumber string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WellRepository looks up wells within a tenant. Get returns nil without
// error when the well does not exist.
type WellRepository interface {
	Get(ctx context.Context, tenantID, wellID string) (*Well, error)
}
