package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductionRecord is the read view over an externally owned production
// counter record for one asset over one recording interval.
type ProductionRecord struct {
	ID                uuid.UUID  `json:"id"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	AssetID           *uuid.UUID `json:"asset_id,omitempty"`
	SiteID            *uuid.UUID `json:"site_id,omitempty"`
	RecordedAt        time.Time  `json:"recorded_at"`
	PlannedUnits      float64    `json:"planned_units"`
	ActualUnits       float64    `json:"actual_units"`
	GoodUnits         *float64   `json:"good_units,omitempty"`
	IdealCycleTimeSec float64    `json:"ideal_cycle_time_sec"`
	PlannedTimeMin    float64    `json:"planned_time_min"`
	RunTimeMin        *float64   `json:"run_time_min,omitempty"`
	DowntimeMin       float64    `json:"downtime_min"`
	DowntimeReason    string     `json:"downtime_reason,omitempty"`
	EnergyKWh         float64    `json:"energy_kwh"`
}

// EffectiveRunTimeMin returns the recorded run time, defaulting to planned
// time minus downtime when no explicit run time was captured.
func (p *ProductionRecord) EffectiveRunTimeMin() float64 {
	if p.RunTimeMin != nil {
		return *p.RunTimeMin
	}
	return p.PlannedTimeMin - p.DowntimeMin
}

// EffectiveGoodUnits defaults good units to actual units when no scrap was
// recorded, so quality reads as 1 rather than 0 for scrap-free intervals.
func (p *ProductionRecord) EffectiveGoodUnits() float64 {
	if p.GoodUnits != nil {
		return *p.GoodUnits
	}
	return p.ActualUnits
}
