package models

import "github.com/google/uuid"

// Asset is the read view used for name resolution and site rollups.
type Asset struct {
	ID       uuid.UUID  `json:"id"`
	TenantID uuid.UUID  `json:"tenant_id"`
	Name     string     `json:"name"`
	SiteID   *uuid.UUID `json:"site_id,omitempty"`
}

// Site is the read view used for name resolution and corporate rollups.
type Site struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
}
