package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/machinaops/machina-engine/pkg/database"
	"github.com/machinaops/machina-engine/pkg/models"
)

// WorkOrderRepository provides read access to externally owned work order
// records. This subsystem never writes work orders.
type WorkOrderRepository interface {
	// List returns the tenant's work orders narrowed by the filters. Site
	// IDs are expected to be resolved to asset IDs by the caller; both are
	// still applied when present.
	List(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) ([]*models.WorkOrder, error)
}

type workOrderRepository struct{}

// NewWorkOrderRepository creates a new WorkOrderRepository.
func NewWorkOrderRepository() WorkOrderRepository {
	return &workOrderRepository{}
}

var _ WorkOrderRepository = (*workOrderRepository)(nil)

func (r *workOrderRepository) List(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) ([]*models.WorkOrder, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql := `
		SELECT id, tenant_id, status, wo_type, failure_code, created_at,
		       completed_at, due_date, time_spent_min, asset_id, site_id,
		       pm_task_id, parts_used
		FROM work_orders
		WHERE tenant_id = $1`
	args := []any{tenantID}
	sql, args = appendRecordFilters(sql, args, "created_at", filters)

	rows, err := scope.Conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.WorkOrder, 0)
	for rows.Next() {
		w, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work orders: %w", err)
	}

	return orders, nil
}

func scanWorkOrder(rows pgx.Rows) (*models.WorkOrder, error) {
	var w models.WorkOrder
	err := rows.Scan(
		&w.ID, &w.TenantID, &w.Status, &w.Type, &w.FailureCode, &w.CreatedAt,
		&w.CompletedAt, &w.DueDate, &w.TimeSpentMin, &w.AssetID, &w.SiteID,
		&w.PMTaskID, &w.PartsUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan work order: %w", err)
	}
	return &w, nil
}

// appendRecordFilters appends date-range, asset, and site predicates shared
// by the operational record repositories.
func appendRecordFilters(sql string, args []any, timeColumn string, filters models.AnalyticsFilters) (string, []any) {
	var sb strings.Builder
	sb.WriteString(sql)

	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		fmt.Fprintf(&sb, " AND %s >= $%d", timeColumn, len(args))
	}
	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		fmt.Fprintf(&sb, " AND %s <= $%d", timeColumn, len(args))
	}
	if len(filters.AssetIDs) > 0 {
		args = append(args, filters.AssetIDs)
		fmt.Fprintf(&sb, " AND asset_id = ANY($%d)", len(args))
	} else if len(filters.SiteIDs) > 0 {
		args = append(args, filters.SiteIDs)
		fmt.Fprintf(&sb, " AND site_id = ANY($%d)", len(args))
	}

	return sb.String(), args
}
