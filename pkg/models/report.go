package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/machinaops/machina-engine/pkg/reporting"
)

// VisibilityScope controls who can read a report template.
type VisibilityScope string

const (
	// VisibilityPrivate restricts the template to its owner.
	VisibilityPrivate VisibilityScope = "private"
	// VisibilityTenant exposes the template to every tenant member.
	VisibilityTenant VisibilityScope = "tenant"
	// VisibilityRoles exposes the template to members holding a listed role.
	VisibilityRoles VisibilityScope = "roles"
)

// Visibility is a template's read-access descriptor. Roles is only
// meaningful when Scope is VisibilityRoles.
type Visibility struct {
	Scope VisibilityScope `json:"scope"`
	Roles []string        `json:"roles,omitempty"`
}

// ReportTemplate is a persisted, shareable report definition. It is the only
// persistent state this subsystem owns. Templates are never hard-deleted;
// visibility determines read access independent of ownership.
type ReportTemplate struct {
	ID          uuid.UUID         `json:"id"`
	TenantID    uuid.UUID         `json:"tenant_id"`
	OwnerID     string            `json:"owner_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Definition  reporting.Request `json:"definition"`
	Visibility  Visibility        `json:"visibility"`
	ShareID     string            `json:"share_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
