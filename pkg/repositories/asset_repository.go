package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/machinaops/machina-engine/pkg/database"
	"github.com/machinaops/machina-engine/pkg/models"
)

// AssetRepository provides read access to asset and site reference data,
// used for name resolution and site-to-asset scoping.
type AssetRepository interface {
	ListAssets(ctx context.Context, tenantID uuid.UUID) ([]*models.Asset, error)
	// ListAssetIDsBySites resolves the asset IDs belonging to the sites.
	ListAssetIDsBySites(ctx context.Context, tenantID uuid.UUID, siteIDs []uuid.UUID) ([]uuid.UUID, error)
	ListSites(ctx context.Context, tenantID uuid.UUID) ([]*models.Site, error)
}

type assetRepository struct{}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository() AssetRepository {
	return &assetRepository{}
}

var _ AssetRepository = (*assetRepository)(nil)

func (r *assetRepository) ListAssets(ctx context.Context, tenantID uuid.UUID) ([]*models.Asset, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql := `SELECT id, tenant_id, name, site_id FROM assets WHERE tenant_id = $1`
	rows, err := scope.Conn.Query(ctx, sql, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	assets := make([]*models.Asset, 0)
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &a.SiteID); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

func (r *assetRepository) ListAssetIDsBySites(ctx context.Context, tenantID uuid.UUID, siteIDs []uuid.UUID) ([]uuid.UUID, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql := `SELECT id FROM assets WHERE tenant_id = $1 AND site_id = ANY($2)`
	rows, err := scope.Conn.Query(ctx, sql, tenantID, siteIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve site assets: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan asset id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset ids: %w", err)
	}

	return ids, nil
}

func (r *assetRepository) ListSites(ctx context.Context, tenantID uuid.UUID) ([]*models.Site, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql := `SELECT id, tenant_id, name FROM sites WHERE tenant_id = $1`
	rows, err := scope.Conn.Query(ctx, sql, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := make([]*models.Site, 0)
	for rows.Next() {
		var s models.Site
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sites: %w", err)
	}

	return sites, nil
}
