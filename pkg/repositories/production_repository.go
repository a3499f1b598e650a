package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/machinaops/machina-engine/pkg/database"
	"github.com/machinaops/machina-engine/pkg/models"
)

// ProductionRepository provides read access to externally owned production
// counter records.
type ProductionRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) ([]*models.ProductionRecord, error)
}

type productionRepository struct{}

// NewProductionRepository creates a new ProductionRepository.
func NewProductionRepository() ProductionRepository {
	return &productionRepository{}
}

var _ ProductionRepository = (*productionRepository)(nil)

func (r *productionRepository) List(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) ([]*models.ProductionRecord, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql := `
		SELECT id, tenant_id, asset_id, site_id, recorded_at, planned_units,
		       actual_units, good_units, ideal_cycle_time_sec, planned_time_min,
		       run_time_min, downtime_min, downtime_reason, energy_kwh
		FROM production_records
		WHERE tenant_id = $1`
	args := []any{tenantID}
	sql, args = appendRecordFilters(sql, args, "recorded_at", filters)

	rows, err := scope.Conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list production records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.ProductionRecord, 0)
	for rows.Next() {
		p, err := scanProductionRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating production records: %w", err)
	}

	return records, nil
}

func scanProductionRecord(rows pgx.Rows) (*models.ProductionRecord, error) {
	var p models.ProductionRecord
	err := rows.Scan(
		&p.ID, &p.TenantID, &p.AssetID, &p.SiteID, &p.RecordedAt, &p.PlannedUnits,
		&p.ActualUnits, &p.GoodUnits, &p.IdealCycleTimeSec, &p.PlannedTimeMin,
		&p.RunTimeMin, &p.DowntimeMin, &p.DowntimeReason, &p.EnergyKWh,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan production record: %w", err)
	}
	return &p, nil
}
