package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/machinaops/machina-engine/pkg/apperrors"
	"github.com/machinaops/machina-engine/pkg/auth"
	"github.com/machinaops/machina-engine/pkg/models"
	"github.com/machinaops/machina-engine/pkg/reporting"
	"github.com/machinaops/machina-engine/pkg/repositories"
)

// ReportService runs ad-hoc report queries and manages persisted report
// templates. Reading reports and building them are separate permissions;
// template visibility further narrows who can read a given template.
type ReportService interface {
	RunQuery(ctx context.Context, claims *auth.Claims, req *reporting.Request) (*reporting.Result, error)
	CreateTemplate(ctx context.Context, claims *auth.Claims, tpl *models.ReportTemplate) (*models.ReportTemplate, error)
	UpdateTemplate(ctx context.Context, claims *auth.Claims, templateID uuid.UUID, tpl *models.ReportTemplate) (*models.ReportTemplate, error)
	ListTemplates(ctx context.Context, claims *auth.Claims) ([]*models.ReportTemplate, error)
	// GetTemplate resolves by template ID or share ID. A template that exists
	// but is not visible to the caller yields ErrForbidden, not ErrNotFound.
	GetTemplate(ctx context.Context, claims *auth.Claims, idOrShareID string) (*models.ReportTemplate, error)
}

type reportService struct {
	templates repositories.ReportTemplateRepository
	source    reporting.Source
	checker   auth.Checker
	logger    *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	templates repositories.ReportTemplateRepository,
	source reporting.Source,
	checker auth.Checker,
	logger *zap.Logger,
) ReportService {
	return &reportService{
		templates: templates,
		source:    source,
		checker:   checker,
		logger:    logger,
	}
}

var _ ReportService = (*reportService)(nil)

func (s *reportService) RunQuery(ctx context.Context, claims *auth.Claims, req *reporting.Request) (*reporting.Result, error) {
	if err := s.checker.Require(claims, auth.ResourceReports, auth.ActionRead); err != nil {
		return nil, err
	}
	tenantID, _, err := auth.ExtractClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	result, err := reporting.Execute(ctx, s.source, tenantID, req)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("report query executed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("model", string(req.Model)),
		zap.Int("rows", result.Total),
	)
	return result, nil
}

func (s *reportService) CreateTemplate(ctx context.Context, claims *auth.Claims, tpl *models.ReportTemplate) (*models.ReportTemplate, error) {
	if err := s.checker.Require(claims, auth.ResourceReports, auth.ActionBuild); err != nil {
		return nil, err
	}
	tenantID, userID, err := auth.ExtractClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateTemplate(tpl); err != nil {
		return nil, err
	}

	tpl.TenantID = tenantID
	tpl.OwnerID = userID
	tpl.ShareID = newShareID()

	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, err
	}

	s.logger.Info("report template created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("template_id", tpl.ID.String()),
	)
	return tpl, nil
}

func (s *reportService) UpdateTemplate(ctx context.Context, claims *auth.Claims, templateID uuid.UUID, tpl *models.ReportTemplate) (*models.ReportTemplate, error) {
	if err := s.checker.Require(claims, auth.ResourceReports, auth.ActionBuild); err != nil {
		return nil, err
	}
	tenantID, userID, err := auth.ExtractClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateTemplate(tpl); err != nil {
		return nil, err
	}

	existing, err := s.templates.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != userID && !claims.HasRole(auth.RoleAdmin) {
		return nil, fmt.Errorf("%w: only the owner can modify a template", apperrors.ErrForbidden)
	}

	// Identity and the share link survive edits.
	existing.Name = tpl.Name
	existing.Description = tpl.Description
	existing.Definition = tpl.Definition
	existing.Visibility = tpl.Visibility

	if err := s.templates.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *reportService) ListTemplates(ctx context.Context, claims *auth.Claims) ([]*models.ReportTemplate, error) {
	if err := s.checker.Require(claims, auth.ResourceReports, auth.ActionRead); err != nil {
		return nil, err
	}
	tenantID, _, err := auth.ExtractClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	all, err := s.templates.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	visible := make([]*models.ReportTemplate, 0, len(all))
	for _, tpl := range all {
		if templateVisibleTo(tpl, claims) {
			visible = append(visible, tpl)
		}
	}
	return visible, nil
}

func (s *reportService) GetTemplate(ctx context.Context, claims *auth.Claims, idOrShareID string) (*models.ReportTemplate, error) {
	if err := s.checker.Require(claims, auth.ResourceReports, auth.ActionRead); err != nil {
		return nil, err
	}
	tenantID, _, err := auth.ExtractClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var tpl *models.ReportTemplate
	if templateID, parseErr := uuid.Parse(idOrShareID); parseErr == nil {
		tpl, err = s.templates.GetByID(ctx, tenantID, templateID)
	} else {
		tpl, err = s.templates.GetByShareID(ctx, tenantID, idOrShareID)
	}
	if err != nil {
		return nil, err
	}

	if !templateVisibleTo(tpl, claims) {
		return nil, fmt.Errorf("%w: template is not shared with you", apperrors.ErrForbidden)
	}
	return tpl, nil
}

// templateVisibleTo is the single read-access predicate for templates. The
// owner and tenant admins always pass; otherwise the visibility scope
// decides.
func templateVisibleTo(tpl *models.ReportTemplate, claims *auth.Claims) bool {
	if claims == nil {
		return false
	}
	if tpl.OwnerID != "" && tpl.OwnerID == claims.Subject {
		return true
	}
	if claims.HasRole(auth.RoleAdmin) {
		return true
	}
	switch tpl.Visibility.Scope {
	case models.VisibilityTenant:
		return true
	case models.VisibilityRoles:
		return claims.HasAnyRole(tpl.Visibility.Roles)
	default:
		return false
	}
}

func validateTemplate(tpl *models.ReportTemplate) error {
	if strings.TrimSpace(tpl.Name) == "" {
		return fmt.Errorf("%w: template name is required", apperrors.ErrInvalidQuery)
	}
	switch tpl.Visibility.Scope {
	case "":
		tpl.Visibility.Scope = models.VisibilityPrivate
	case models.VisibilityPrivate, models.VisibilityTenant:
	case models.VisibilityRoles:
		if len(tpl.Visibility.Roles) == 0 {
			return fmt.Errorf("%w: roles visibility requires at least one role", apperrors.ErrInvalidQuery)
		}
	default:
		return fmt.Errorf("%w: unknown visibility scope %q", apperrors.ErrInvalidQuery, tpl.Visibility.Scope)
	}

	// The stored definition must be buildable so sharing never hands out a
	// broken query.
	if _, err := reporting.BuildPlan(&tpl.Definition); err != nil {
		return err
	}
	return nil
}

func newShareID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
