package models

import (
	"time"

	"github.com/google/uuid"
)

// MetricEnergy is the only sensor metric this subsystem consumes.
const MetricEnergy = "energy"

// SensorReading is the read view over an externally owned sensor data point.
type SensorReading struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	AssetID   uuid.UUID `json:"asset_id"`
	Timestamp time.Time `json:"timestamp"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
}
