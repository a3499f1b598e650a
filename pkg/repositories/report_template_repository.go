package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/machinaops/machina-engine/pkg/apperrors"
	"github.com/machinaops/machina-engine/pkg/database"
	"github.com/machinaops/machina-engine/pkg/models"
)

// ReportTemplateRepository provides data access for persisted report
// templates, the only table this subsystem owns. Templates are never
// hard-deleted.
type ReportTemplateRepository interface {
	Create(ctx context.Context, tpl *models.ReportTemplate) error
	Update(ctx context.Context, tpl *models.ReportTemplate) error
	GetByID(ctx context.Context, tenantID, templateID uuid.UUID) (*models.ReportTemplate, error)
	GetByShareID(ctx context.Context, tenantID uuid.UUID, shareID string) (*models.ReportTemplate, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.ReportTemplate, error)
}

type reportTemplateRepository struct{}

// NewReportTemplateRepository creates a new ReportTemplateRepository.
func NewReportTemplateRepository() ReportTemplateRepository {
	return &reportTemplateRepository{}
}

var _ ReportTemplateRepository = (*reportTemplateRepository)(nil)

func (r *reportTemplateRepository) Create(ctx context.Context, tpl *models.ReportTemplate) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	now := time.Now()
	tpl.ID = uuid.New()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	sql := `
		INSERT INTO report_templates (
			id, tenant_id, owner_id, name, description, definition,
			visibility, share_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := scope.Conn.Exec(ctx, sql,
		tpl.ID, tpl.TenantID, tpl.OwnerID, tpl.Name, tpl.Description, tpl.Definition,
		tpl.Visibility, tpl.ShareID, tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report template: %w", err)
	}

	return nil
}

func (r *reportTemplateRepository) Update(ctx context.Context, tpl *models.ReportTemplate) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tpl.UpdatedAt = time.Now()

	sql := `
		UPDATE report_templates
		SET name = $3,
		    description = $4,
		    definition = $5,
		    visibility = $6,
		    share_id = $7,
		    updated_at = $8
		WHERE tenant_id = $1 AND id = $2`

	result, err := scope.Conn.Exec(ctx, sql,
		tpl.TenantID, tpl.ID,
		tpl.Name, tpl.Description, tpl.Definition, tpl.Visibility,
		tpl.ShareID, tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update report template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *reportTemplateRepository) GetByID(ctx context.Context, tenantID, templateID uuid.UUID) (*models.ReportTemplate, error) {
	return r.getWhere(ctx, "tenant_id = $1 AND id = $2", tenantID, templateID)
}

func (r *reportTemplateRepository) GetByShareID(ctx context.Context, tenantID uuid.UUID, shareID string) (*models.ReportTemplate, error) {
	return r.getWhere(ctx, "tenant_id = $1 AND share_id = $2", tenantID, shareID)
}

func (r *reportTemplateRepository) getWhere(ctx context.Context, where string, args ...any) (*models.ReportTemplate, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql := `
		SELECT id, tenant_id, owner_id, name, description, definition,
		       visibility, share_id, created_at, updated_at
		FROM report_templates
		WHERE ` + where

	row := scope.Conn.QueryRow(ctx, sql, args...)
	tpl, err := scanReportTemplateRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report template: %w", err)
	}

	return tpl, nil
}

func (r *reportTemplateRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.ReportTemplate, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql := `
		SELECT id, tenant_id, owner_id, name, description, definition,
		       visibility, share_id, created_at, updated_at
		FROM report_templates
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, sql, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list report templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*models.ReportTemplate, 0)
	for rows.Next() {
		tpl, err := scanReportTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report templates: %w", err)
	}

	return templates, nil
}

func scanReportTemplate(rows pgx.Rows) (*models.ReportTemplate, error) {
	var tpl models.ReportTemplate
	err := rows.Scan(
		&tpl.ID, &tpl.TenantID, &tpl.OwnerID, &tpl.Name, &tpl.Description, &tpl.Definition,
		&tpl.Visibility, &tpl.ShareID, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan report template: %w", err)
	}
	return &tpl, nil
}

func scanReportTemplateRow(row pgx.Row) (*models.ReportTemplate, error) {
	var tpl models.ReportTemplate
	err := row.Scan(
		&tpl.ID, &tpl.TenantID, &tpl.OwnerID, &tpl.Name, &tpl.Description, &tpl.Definition,
		&tpl.Visibility, &tpl.ShareID, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}
