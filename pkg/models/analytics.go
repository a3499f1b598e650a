package models

import "github.com/google/uuid"

// OEEFactors holds the three OEE factors and their product. All four values
// are pure functions of a production record set: availability and quality are
// clamped ratios, performance is capped at 1, and OEE is exactly the product
// of the three.
type OEEFactors struct {
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	OEE          float64 `json:"oee"`
}

// EntityEnergy is the energy consumption attributed to one asset or site.
type EntityEnergy struct {
	EntityID string  `json:"entity_id"`
	Name     string  `json:"name"`
	TotalKWh float64 `json:"total_kwh"`
}

// EnergySummary aggregates sensor and production energy for the filtered set.
type EnergySummary struct {
	TotalKWh      float64        `json:"total_kwh"`
	AvgPerHourKWh float64        `json:"avg_per_hour_kwh"`
	ByAsset       []EntityEnergy `json:"by_asset"`
	BySite        []EntityEnergy `json:"by_site"`
}

// FailureCodeDowntime is downtime attributed to one failure code.
type FailureCodeDowntime struct {
	FailureCode string  `json:"failure_code"`
	Minutes     float64 `json:"minutes"`
}

// DowntimePoint is downtime within one calendar-day bucket.
type DowntimePoint struct {
	Period  string  `json:"period"`
	Minutes float64 `json:"minutes"`
}

// DowntimeSummary breaks work order downtime down by failure code and day.
type DowntimeSummary struct {
	TotalMin      float64               `json:"total_min"`
	ByFailureCode []FailureCodeDowntime `json:"by_failure_code"`
	ByDay         []DowntimePoint       `json:"by_day"`
}

// EntityBenchmark is one row of a per-asset or per-site OEE leaderboard.
// Benchmark lists are sorted descending by OEE.
type EntityBenchmark struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
	Records  int    `json:"records"`
	OEEFactors
}

// KPIResult is the point-in-time reliability and production summary for a
// tenant under a filter set.
type KPIResult struct {
	MTTRHours float64 `json:"mttr_hours"`
	MTBFHours float64 `json:"mtbf_hours"`
	Backlog   int     `json:"backlog"`
	OEEFactors
	Energy          EnergySummary     `json:"energy"`
	Downtime        DowntimeSummary   `json:"downtime"`
	AssetBenchmarks []EntityBenchmark `json:"asset_benchmarks"`
	SiteBenchmarks  []EntityBenchmark `json:"site_benchmarks"`
}

// TrendPoint is one calendar-day bucket of the trend series. Each bucket is
// computed independently with the same formulas as the point-in-time KPIs.
type TrendPoint struct {
	Period string `json:"period"`
	OEEFactors
	EnergyKWh   float64 `json:"energy_kwh"`
	DowntimeMin float64 `json:"downtime_min"`
}

// TrendResult is the day-bucketed metric series, sorted ascending by period.
type TrendResult struct {
	Points []TrendPoint `json:"points"`
}

// StatusCount is one bucket of the work order status histogram.
type StatusCount struct {
	Status WorkOrderStatus `json:"status"`
	Count  int             `json:"count"`
}

// DashboardKPIResult is the work-order-centric dashboard summary.
type DashboardKPIResult struct {
	StatusCounts         []StatusCount `json:"status_counts"`
	TotalWorkOrders      int           `json:"total_work_orders"`
	Overdue              int           `json:"overdue"`
	PMCompliancePct      float64       `json:"pm_compliance_pct"`
	TotalMaintenanceCost float64       `json:"total_maintenance_cost"`
	MTTRHours            float64       `json:"mttr_hours"`
	MTBFHours            float64       `json:"mtbf_hours"`
}

// CorporateSiteSummary is one site's rollup within the corporate overview.
// Work orders with no site land in the "unassigned" bucket.
type CorporateSiteSummary struct {
	SiteID     string  `json:"site_id"`
	SiteName   string  `json:"site_name"`
	WorkOrders int     `json:"work_orders"`
	Completed  int     `json:"completed"`
	Backlog    int     `json:"backlog"`
	MTTRHours  float64 `json:"mttr_hours"`
	MTBFHours  float64 `json:"mtbf_hours"`
}

// CorporateOverview is the tenant-wide aggregate across site summaries.
type CorporateOverview struct {
	Sites           []CorporateSiteSummary `json:"sites"`
	TotalWorkOrders int                    `json:"total_work_orders"`
	TotalCompleted  int                    `json:"total_completed"`
	TotalBacklog    int                    `json:"total_backlog"`
	AvgMTTRHours    float64                `json:"avg_mttr_hours"`
	AvgMTBFHours    float64                `json:"avg_mtbf_hours"`
}

// AssetImpact scores one asset's preventive maintenance risk over the
// lookback window. ImpactScore is capped at 100.
type AssetImpact struct {
	AssetID            uuid.UUID `json:"asset_id"`
	AssetName          string    `json:"asset_name"`
	DailyRunHours      float64   `json:"daily_run_hours"`
	DailyCycles        float64   `json:"daily_cycles"`
	FailureProbability float64   `json:"failure_probability"`
	CompliancePct      float64   `json:"compliance_pct"`
	OverdueCount       int       `json:"overdue_count"`
	ImpactScore        float64   `json:"impact_score"`
}

// WhatIfScenario is one fixed PM scheduling scenario derived from the
// averaged asset impacts.
type WhatIfScenario struct {
	Name               string  `json:"name"`
	FailureProbability float64 `json:"failure_probability"`
	CompliancePct      float64 `json:"compliance_pct"`
}

// PmOptimizationWhatIfResponse ranks the highest-impact assets and derives
// the fixed what-if scenarios from their averages.
type PmOptimizationWhatIfResponse struct {
	Assets    []AssetImpact    `json:"assets"`
	Scenarios []WhatIfScenario `json:"scenarios"`
}
