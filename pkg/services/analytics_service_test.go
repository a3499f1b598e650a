package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/machinaops/machina-engine/pkg/config"
	"github.com/machinaops/machina-engine/pkg/models"
)

func newTestAnalyticsService(wo *mockWorkOrderRepo, prod *mockProductionRepo, sens *mockSensorRepo, assets *mockAssetRepo) AnalyticsService {
	return NewAnalyticsService(wo, prod, sens, assets, nil,
		config.AnalyticsConfig{WhatIfLookbackDays: 90, CacheTTLSeconds: 60},
		zap.NewNop())
}

func TestComputeKPIs(t *testing.T) {
	tenantID := uuid.New()
	assetID := uuid.New()
	siteID := uuid.New()

	wo := &mockWorkOrderRepo{orders: []*models.WorkOrder{
		completedOrder(0, 2),
		completedOrder(0, 6),
		{Status: models.StatusRequested, CreatedAt: ts(1)},
	}}
	prod := &mockProductionRepo{records: []*models.ProductionRecord{
		{
			AssetID: &assetID, SiteID: &siteID, RecordedAt: ts(3),
			PlannedTimeMin: 600, RunTimeMin: floatPtr(480),
			IdealCycleTimeSec: 90, ActualUnits: 200, GoodUnits: floatPtr(180),
			EnergyKWh: 40,
		},
	}}
	sens := &mockSensorRepo{readings: []*models.SensorReading{
		{AssetID: assetID, Timestamp: ts(4), Metric: models.MetricEnergy, Value: 10},
	}}
	assets := &mockAssetRepo{
		assets: []*models.Asset{{ID: assetID, Name: "Press 1", SiteID: &siteID}},
		sites:  []*models.Site{{ID: siteID, Name: "Plant North"}},
	}

	svc := newTestAnalyticsService(wo, prod, sens, assets)
	result, err := svc.ComputeKPIs(context.Background(), tenantID, models.AnalyticsFilters{})
	require.NoError(t, err)

	assert.Equal(t, 4.0, result.MTTRHours)
	assert.Equal(t, 4.0, result.MTBFHours)
	assert.Equal(t, 1, result.Backlog)
	assert.InDelta(t, 0.45, result.OEE, 1e-9)

	assert.Equal(t, 50.0, result.Energy.TotalKWh)
	require.Len(t, result.Energy.ByAsset, 1)
	assert.Equal(t, "Press 1", result.Energy.ByAsset[0].Name)
	require.Len(t, result.Energy.BySite, 1)
	assert.Equal(t, "Plant North", result.Energy.BySite[0].Name)
	assert.Equal(t, 50.0, result.Energy.BySite[0].TotalKWh)

	require.Len(t, result.AssetBenchmarks, 1)
	assert.Equal(t, "Press 1", result.AssetBenchmarks[0].Name)
	require.Len(t, result.SiteBenchmarks, 1)
	assert.Equal(t, "Plant North", result.SiteBenchmarks[0].Name)
}

func TestComputeKPIs_Idempotent(t *testing.T) {
	tenantID := uuid.New()
	wo := &mockWorkOrderRepo{orders: []*models.WorkOrder{completedOrder(0, 2), completedOrder(3, 5)}}
	svc := newTestAnalyticsService(wo, &mockProductionRepo{}, &mockSensorRepo{}, &mockAssetRepo{})

	first, err := svc.ComputeKPIs(context.Background(), tenantID, models.AnalyticsFilters{})
	require.NoError(t, err)
	second, err := svc.ComputeKPIs(context.Background(), tenantID, models.AnalyticsFilters{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeKPIs_ResolvesSiteFilterToAssets(t *testing.T) {
	siteID := uuid.New()
	resolvedAsset := uuid.New()
	wo := &mockWorkOrderRepo{}
	prod := &mockProductionRepo{}
	sens := &mockSensorRepo{}
	assets := &mockAssetRepo{siteAssets: []uuid.UUID{resolvedAsset}}

	svc := newTestAnalyticsService(wo, prod, sens, assets)
	_, err := svc.ComputeKPIs(context.Background(), uuid.New(), models.AnalyticsFilters{
		SiteIDs: []uuid.UUID{siteID},
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{siteID}, assets.gotSiteIDs)
	assert.Equal(t, []uuid.UUID{resolvedAsset}, wo.gotFilters.AssetIDs)
	assert.Equal(t, []uuid.UUID{resolvedAsset}, sens.gotFilters.AssetIDs)
}

func TestComputeKPIs_SiteWithNoAssetsSkipsSensorQuery(t *testing.T) {
	sens := &mockSensorRepo{}
	svc := newTestAnalyticsService(&mockWorkOrderRepo{}, &mockProductionRepo{}, sens, &mockAssetRepo{})

	result, err := svc.ComputeKPIs(context.Background(), uuid.New(), models.AnalyticsFilters{
		SiteIDs: []uuid.UUID{uuid.New()},
	})
	require.NoError(t, err)
	assert.False(t, sens.called)
	assert.Equal(t, 0.0, result.Energy.TotalKWh)
}

func TestComputeKPIs_RepositoryErrorPropagates(t *testing.T) {
	wo := &mockWorkOrderRepo{err: errors.New("db down")}
	svc := newTestAnalyticsService(wo, &mockProductionRepo{}, &mockSensorRepo{}, &mockAssetRepo{})

	_, err := svc.ComputeKPIs(context.Background(), uuid.New(), models.AnalyticsFilters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestComputeTrends_BucketsByDay(t *testing.T) {
	day1 := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)

	prod := &mockProductionRepo{records: []*models.ProductionRecord{
		{RecordedAt: day1, PlannedTimeMin: 100, RunTimeMin: floatPtr(80), EnergyKWh: 5,
			IdealCycleTimeSec: 60, ActualUnits: 80, GoodUnits: floatPtr(80)},
		{RecordedAt: day2, PlannedTimeMin: 100, RunTimeMin: floatPtr(100), EnergyKWh: 7,
			IdealCycleTimeSec: 60, ActualUnits: 100, GoodUnits: floatPtr(90)},
	}}
	wo := &mockWorkOrderRepo{orders: []*models.WorkOrder{
		{CreatedAt: day1, TimeSpentMin: 45, Status: models.StatusCompleted},
	}}
	sens := &mockSensorRepo{readings: []*models.SensorReading{
		{AssetID: uuid.New(), Timestamp: day2, Metric: models.MetricEnergy, Value: 3},
	}}

	svc := newTestAnalyticsService(wo, prod, sens, &mockAssetRepo{})
	result, err := svc.ComputeTrends(context.Background(), uuid.New(), models.AnalyticsFilters{})
	require.NoError(t, err)

	require.Len(t, result.Points, 2)
	first := result.Points[0]
	assert.Equal(t, "2025-05-01", first.Period)
	assert.InDelta(t, 0.8, first.Availability, 1e-9)
	assert.Equal(t, 5.0, first.EnergyKWh)
	assert.Equal(t, 45.0, first.DowntimeMin)

	second := result.Points[1]
	assert.Equal(t, "2025-05-02", second.Period)
	assert.Equal(t, 10.0, second.EnergyKWh)
	assert.Equal(t, 0.0, second.DowntimeMin)
	assert.InDelta(t, 0.9, second.Quality, 1e-9)
}

func TestComputeDashboardSummary(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	wo := &mockWorkOrderRepo{orders: []*models.WorkOrder{
		{Status: models.StatusRequested, CreatedAt: past, DueDate: &past},
		{Status: models.StatusCompleted, CreatedAt: past, CompletedAt: &now, DueDate: &past,
			Type: models.TypePreventive},
		{Status: models.StatusCancelled, CreatedAt: past, DueDate: &past},
		{Status: models.StatusInProgress, CreatedAt: past, DueDate: &future,
			PartsUsed: []models.PartLine{{UnitCost: 12.5, Quantity: 2}}},
	}}

	svc := newTestAnalyticsService(wo, &mockProductionRepo{}, &mockSensorRepo{}, &mockAssetRepo{})
	result, err := svc.ComputeDashboardSummary(context.Background(), uuid.New(), models.AnalyticsFilters{})
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalWorkOrders)
	// Completed and cancelled orders never count as overdue.
	assert.Equal(t, 1, result.Overdue)
	assert.Equal(t, 100.0, result.PMCompliancePct)
	assert.Equal(t, 25.0, result.TotalMaintenanceCost)
	require.Len(t, result.StatusCounts, len(models.WorkOrderStatuses))
}

func TestComputeSiteSummaries(t *testing.T) {
	siteA := uuid.New()
	siteB := uuid.New()

	wo := &mockWorkOrderRepo{orders: []*models.WorkOrder{
		{Status: models.StatusCompleted, SiteID: &siteA, CreatedAt: ts(0), CompletedAt: tsp(2)},
		{Status: models.StatusRequested, SiteID: &siteA, CreatedAt: ts(1)},
		{Status: models.StatusRequested, CreatedAt: ts(1)}, // no site
	}}
	assets := &mockAssetRepo{sites: []*models.Site{
		{ID: siteA, Name: "Alpha"},
		{ID: siteB, Name: "Beta"},
	}}

	svc := newTestAnalyticsService(wo, &mockProductionRepo{}, &mockSensorRepo{}, assets)
	summaries, err := svc.ComputeSiteSummaries(context.Background(), uuid.New(), models.AnalyticsFilters{})
	require.NoError(t, err)

	// Alpha (2 orders), unassigned (1), Beta (0) in work-order order.
	require.Len(t, summaries, 3)
	assert.Equal(t, "Alpha", summaries[0].SiteName)
	assert.Equal(t, 2, summaries[0].WorkOrders)
	assert.Equal(t, 1, summaries[0].Completed)
	assert.Equal(t, 1, summaries[0].Backlog)
	assert.Equal(t, 2.0, summaries[0].MTTRHours)

	assert.Equal(t, "unassigned", summaries[1].SiteID)
	assert.Equal(t, 1, summaries[1].WorkOrders)

	assert.Equal(t, "Beta", summaries[2].SiteName)
	assert.Equal(t, 0, summaries[2].WorkOrders)
}

func TestComputeCorporateOverview(t *testing.T) {
	siteA := uuid.New()
	siteB := uuid.New()

	wo := &mockWorkOrderRepo{orders: []*models.WorkOrder{
		{Status: models.StatusCompleted, SiteID: &siteA, CreatedAt: ts(0), CompletedAt: tsp(2)},
		{Status: models.StatusCompleted, SiteID: &siteB, CreatedAt: ts(0), CompletedAt: tsp(6)},
		{Status: models.StatusRequested, SiteID: &siteB, CreatedAt: ts(1)},
	}}
	assets := &mockAssetRepo{sites: []*models.Site{
		{ID: siteA, Name: "Alpha"},
		{ID: siteB, Name: "Beta"},
		{ID: uuid.New(), Name: "Idle"},
	}}

	svc := newTestAnalyticsService(wo, &mockProductionRepo{}, &mockSensorRepo{}, assets)
	overview, err := svc.ComputeCorporateOverview(context.Background(), uuid.New(), models.AnalyticsFilters{})
	require.NoError(t, err)

	assert.Equal(t, 3, overview.TotalWorkOrders)
	assert.Equal(t, 2, overview.TotalCompleted)
	assert.Equal(t, 1, overview.TotalBacklog)
	// Sites without work orders are excluded from the averages.
	assert.Equal(t, 4.0, overview.AvgMTTRHours)
	require.Len(t, overview.Sites, 3)
}

func TestComputeWhatIfSimulations(t *testing.T) {
	assetID := uuid.New()
	now := time.Now()
	past := now.Add(-48 * time.Hour)

	wo := &mockWorkOrderRepo{orders: []*models.WorkOrder{
		{AssetID: &assetID, Type: models.TypeCorrective, Status: models.StatusCompleted,
			CreatedAt: past, CompletedAt: &now},
		{AssetID: &assetID, Type: models.TypePreventive, Status: models.StatusCompleted,
			CreatedAt: past, CompletedAt: &now},
		{AssetID: &assetID, Type: models.TypePreventive, Status: models.StatusRequested,
			CreatedAt: past, DueDate: &past},
	}}
	prod := &mockProductionRepo{records: []*models.ProductionRecord{
		{AssetID: &assetID, RecordedAt: past, RunTimeMin: floatPtr(5400), ActualUnits: 900},
	}}
	assets := &mockAssetRepo{assets: []*models.Asset{{ID: assetID, Name: "Lathe 3"}}}

	svc := newTestAnalyticsService(wo, prod, &mockSensorRepo{}, assets)
	result, err := svc.ComputeWhatIfSimulations(context.Background(), uuid.New())
	require.NoError(t, err)

	require.Len(t, result.Assets, 1)
	impact := result.Assets[0]
	assert.Equal(t, "Lathe 3", impact.AssetName)
	assert.InDelta(t, 1.0, impact.DailyRunHours, 1e-9)  // 5400min / 60 / 90d
	assert.InDelta(t, 10.0, impact.DailyCycles, 1e-9)   // 900 / 90d
	assert.InDelta(t, 1.0/3.0, impact.FailureProbability, 1e-9)
	assert.InDelta(t, 50.0, impact.CompliancePct, 1e-9)
	assert.Equal(t, 1, impact.OverdueCount)
	// 1*10 + 0.5*40 + (1/3)*50
	assert.InDelta(t, 46.666666, impact.ImpactScore, 1e-4)

	require.Len(t, result.Scenarios, 3)
	current := result.Scenarios[0]
	assert.Equal(t, "current", current.Name)
	assert.InDelta(t, 1.0/3.0, current.FailureProbability, 1e-9)
	assert.InDelta(t, 50.0, current.CompliancePct, 1e-9)

	accelerate := result.Scenarios[1]
	assert.Equal(t, "accelerate_20_percent", accelerate.Name)
	assert.InDelta(t, 1.0/3.0-0.12, accelerate.FailureProbability, 1e-9)
	assert.InDelta(t, 58.0, accelerate.CompliancePct, 1e-9)

	deferred := result.Scenarios[2]
	assert.Equal(t, "defer_15_percent", deferred.Name)
	assert.InDelta(t, 1.0/3.0+0.10, deferred.FailureProbability, 1e-9)
	assert.InDelta(t, 44.0, deferred.CompliancePct, 1e-9)
}

func TestComputeWhatIfSimulations_EmptyTenant(t *testing.T) {
	svc := newTestAnalyticsService(&mockWorkOrderRepo{}, &mockProductionRepo{}, &mockSensorRepo{}, &mockAssetRepo{})
	result, err := svc.ComputeWhatIfSimulations(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.NotNil(t, result.Assets)
	assert.Empty(t, result.Assets)
	require.Len(t, result.Scenarios, 3)
	assert.Equal(t, 0.0, result.Scenarios[0].FailureProbability)
}
