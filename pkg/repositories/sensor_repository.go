package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/machinaops/machina-engine/pkg/database"
	"github.com/machinaops/machina-engine/pkg/models"
)

// SensorRepository provides read access to externally owned sensor readings.
// The analytics engine only consumes the energy metric.
type SensorRepository interface {
	ListEnergy(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) ([]*models.SensorReading, error)
}

type sensorRepository struct{}

// NewSensorRepository creates a new SensorRepository.
func NewSensorRepository() SensorRepository {
	return &sensorRepository{}
}

var _ SensorRepository = (*sensorRepository)(nil)

func (r *sensorRepository) ListEnergy(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) ([]*models.SensorReading, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql := `
		SELECT id, tenant_id, asset_id, recorded_at, metric, value
		FROM sensor_readings
		WHERE tenant_id = $1 AND metric = $2`
	args := []any{tenantID, models.MetricEnergy}

	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		sql += fmt.Sprintf(" AND recorded_at >= $%d", len(args))
	}
	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		sql += fmt.Sprintf(" AND recorded_at <= $%d", len(args))
	}
	if len(filters.AssetIDs) > 0 {
		args = append(args, filters.AssetIDs)
		sql += fmt.Sprintf(" AND asset_id = ANY($%d)", len(args))
	}

	rows, err := scope.Conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensor readings: %w", err)
	}
	defer rows.Close()

	readings := make([]*models.SensorReading, 0)
	for rows.Next() {
		var s models.SensorReading
		if err := rows.Scan(&s.ID, &s.TenantID, &s.AssetID, &s.Timestamp, &s.Metric, &s.Value); err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		readings = append(readings, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sensor readings: %w", err)
	}

	return readings, nil
}
