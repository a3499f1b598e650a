package auth

import (
	"fmt"

	"github.com/machinaops/machina-engine/pkg/apperrors"
)

// Resources and actions used in permission checks.
const (
	ResourceAnalytics = "analytics"
	ResourceReports   = "reports"

	ActionRead  = "read"
	ActionBuild = "build"
)

// Well-known roles. The role set is open-ended (templates can name arbitrary
// roles in their visibility descriptor); these are the ones the permission
// matrix knows about.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleAnalyst    = "analyst"
	RoleTechnician = "technician"
	RoleViewer     = "viewer"
)

// Checker decides whether a caller may perform an action on a resource.
type Checker interface {
	Require(claims *Claims, resource, action string) error
}

// RoleChecker authorizes callers against a static role matrix.
type RoleChecker struct{}

// NewRoleChecker creates the default role-matrix permission checker.
func NewRoleChecker() *RoleChecker {
	return &RoleChecker{}
}

var _ Checker = (*RoleChecker)(nil)

// permission matrix: resource/action -> roles allowed. Admin is implicit.
var permissions = map[string][]string{
	ResourceAnalytics + ":" + ActionRead: {RoleManager, RoleAnalyst, RoleTechnician, RoleViewer},
	ResourceReports + ":" + ActionRead:   {RoleManager, RoleAnalyst, RoleTechnician, RoleViewer},
	ResourceReports + ":" + ActionBuild:  {RoleManager, RoleAnalyst},
}

// Require returns nil when the caller holds a role permitted for the
// resource/action pair, and a permission-denied error otherwise.
func (c *RoleChecker) Require(claims *Claims, resource, action string) error {
	if claims == nil {
		return fmt.Errorf("%w: no caller identity", apperrors.ErrPermissionDenied)
	}
	if claims.HasRole(RoleAdmin) {
		return nil
	}
	allowed, ok := permissions[resource+":"+action]
	if ok && claims.HasAnyRole(allowed) {
		return nil
	}
	return fmt.Errorf("%w: %s %s requires elevated role", apperrors.ErrPermissionDenied, action, resource)
}
