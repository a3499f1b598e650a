package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/machinaops/machina-engine/pkg/config"
	"github.com/machinaops/machina-engine/pkg/models"
	"github.com/machinaops/machina-engine/pkg/repositories"
)

// AnalyticsService computes the operational metrics surface: reliability
// KPIs, OEE, energy and downtime breakdowns, trend series, dashboard and
// corporate rollups, and the PM what-if simulation. All computations are
// tenant-scoped and read-only.
type AnalyticsService interface {
	ComputeKPIs(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.KPIResult, error)
	ComputeTrends(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.TrendResult, error)
	ComputeDashboardSummary(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.DashboardKPIResult, error)
	ComputeSiteSummaries(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) ([]models.CorporateSiteSummary, error)
	ComputeCorporateOverview(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.CorporateOverview, error)
	ComputeWhatIfSimulations(ctx context.Context, tenantID uuid.UUID) (*models.PmOptimizationWhatIfResponse, error)
}

const (
	unassignedEntity = "unassigned"
	maxWhatIfAssets  = 12
)

type analyticsService struct {
	workOrders repositories.WorkOrderRepository
	production repositories.ProductionRepository
	sensors    repositories.SensorRepository
	assets     repositories.AssetRepository
	cache      *redis.Client
	cfg        config.AnalyticsConfig
	logger     *zap.Logger
}

// NewAnalyticsService creates a new AnalyticsService. The Redis client is
// optional; pass nil to disable KPI caching.
func NewAnalyticsService(
	workOrders repositories.WorkOrderRepository,
	production repositories.ProductionRepository,
	sensors repositories.SensorRepository,
	assets repositories.AssetRepository,
	cache *redis.Client,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
) AnalyticsService {
	return &analyticsService{
		workOrders: workOrders,
		production: production,
		sensors:    sensors,
		assets:     assets,
		cache:      cache,
		cfg:        cfg,
		logger:     logger,
	}
}

var _ AnalyticsService = (*analyticsService)(nil)

// resolveFilters expands site filters into asset filters so that data sets
// keyed only by asset (sensor readings) still honor a site constraint.
func (s *analyticsService) resolveFilters(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (models.AnalyticsFilters, error) {
	if len(filters.SiteIDs) == 0 {
		return filters, nil
	}

	ids, err := s.assets.ListAssetIDsBySites(ctx, tenantID, filters.SiteIDs)
	if err != nil {
		return filters, fmt.Errorf("failed to resolve site filter: %w", err)
	}

	resolved := filters
	resolved.AssetIDs = append(append([]uuid.UUID{}, filters.AssetIDs...), ids...)
	return resolved, nil
}

// fetchOperationalData loads work orders, production records, and energy
// readings concurrently under the same resolved filter set.
func (s *analyticsService) fetchOperationalData(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (
	[]*models.WorkOrder, []*models.ProductionRecord, []*models.SensorReading, error,
) {
	var (
		wg       sync.WaitGroup
		orders   []*models.WorkOrder
		records  []*models.ProductionRecord
		readings []*models.SensorReading
		woErr    error
		prodErr  error
		sensErr  error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		orders, woErr = s.workOrders.List(ctx, tenantID, filters)
	}()
	go func() {
		defer wg.Done()
		records, prodErr = s.production.List(ctx, tenantID, filters)
	}()
	go func() {
		defer wg.Done()
		if len(filters.SiteIDs) > 0 && len(filters.AssetIDs) == 0 {
			// Site filter resolved to zero assets; nothing can match.
			readings = []*models.SensorReading{}
			return
		}
		readings, sensErr = s.sensors.ListEnergy(ctx, tenantID, filters)
	}()
	wg.Wait()

	for _, err := range []error{woErr, prodErr, sensErr} {
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return orders, records, readings, nil
}

// entityNames loads asset and site display names keyed by ID string.
func (s *analyticsService) entityNames(ctx context.Context, tenantID uuid.UUID) (map[string]string, map[string]string, map[string]string, error) {
	assets, err := s.assets.ListAssets(ctx, tenantID)
	if err != nil {
		return nil, nil, nil, err
	}
	sites, err := s.assets.ListSites(ctx, tenantID)
	if err != nil {
		return nil, nil, nil, err
	}

	assetNames := make(map[string]string, len(assets))
	assetSites := make(map[string]string, len(assets))
	for _, a := range assets {
		assetNames[a.ID.String()] = a.Name
		if a.SiteID != nil {
			assetSites[a.ID.String()] = a.SiteID.String()
		}
	}
	siteNames := make(map[string]string, len(sites))
	for _, site := range sites {
		siteNames[site.ID.String()] = site.Name
	}
	return assetNames, siteNames, assetSites, nil
}

func nameOrID(names map[string]string, id string) string {
	if id == unassignedEntity {
		return unassignedEntity
	}
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

func (s *analyticsService) ComputeKPIs(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.KPIResult, error) {
	cacheKey := fmt.Sprintf("kpis:%s:%s", tenantID, filters.CacheKey())
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	resolved, err := s.resolveFilters(ctx, tenantID, filters)
	if err != nil {
		return nil, err
	}

	orders, records, readings, err := s.fetchOperationalData(ctx, tenantID, resolved)
	if err != nil {
		return nil, err
	}

	assetNames, siteNames, assetSites, err := s.entityNames(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result := &models.KPIResult{
		MTTRHours:  mttrHours(orders),
		MTBFHours:  mtbfHours(orders),
		Backlog:    countBacklog(orders),
		OEEFactors: oeeFactors(records),
		Energy:     energySummary(records, readings, resolved, assetNames, siteNames, assetSites),
		Downtime:   downtimeSummary(orders),
		AssetBenchmarks: benchmarks(records,
			func(p *models.ProductionRecord) string {
				if p.AssetID == nil {
					return ""
				}
				return p.AssetID.String()
			},
			func(id string) string { return nameOrID(assetNames, id) },
		),
		SiteBenchmarks: benchmarks(records,
			func(p *models.ProductionRecord) string {
				if p.SiteID == nil {
					return ""
				}
				return p.SiteID.String()
			},
			func(id string) string { return nameOrID(siteNames, id) },
		),
	}

	s.cacheSet(ctx, cacheKey, result)
	return result, nil
}

func (s *analyticsService) ComputeTrends(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.TrendResult, error) {
	resolved, err := s.resolveFilters(ctx, tenantID, filters)
	if err != nil {
		return nil, err
	}

	orders, records, readings, err := s.fetchOperationalData(ctx, tenantID, resolved)
	if err != nil {
		return nil, err
	}

	recordsByDay := map[string][]*models.ProductionRecord{}
	for _, p := range records {
		day := p.RecordedAt.UTC().Format(dayLayout)
		recordsByDay[day] = append(recordsByDay[day], p)
	}

	energyByDay := map[string]float64{}
	for _, p := range records {
		energyByDay[p.RecordedAt.UTC().Format(dayLayout)] += p.EnergyKWh
	}
	for _, r := range readings {
		energyByDay[r.Timestamp.UTC().Format(dayLayout)] += r.Value
	}

	downtimeByDay := map[string]float64{}
	for _, w := range orders {
		if minutes := w.DowntimeMinutes(); minutes > 0 {
			downtimeByDay[w.CreatedAt.UTC().Format(dayLayout)] += minutes
		}
	}

	days := map[string]struct{}{}
	for day := range recordsByDay {
		days[day] = struct{}{}
	}
	for day := range energyByDay {
		days[day] = struct{}{}
	}
	for day := range downtimeByDay {
		days[day] = struct{}{}
	}

	points := make([]models.TrendPoint, 0, len(days))
	for day := range days {
		points = append(points, models.TrendPoint{
			Period:      day,
			OEEFactors:  oeeFactors(recordsByDay[day]),
			EnergyKWh:   energyByDay[day],
			DowntimeMin: downtimeByDay[day],
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Period < points[j].Period })

	return &models.TrendResult{Points: points}, nil
}

func (s *analyticsService) ComputeDashboardSummary(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.DashboardKPIResult, error) {
	resolved, err := s.resolveFilters(ctx, tenantID, filters)
	if err != nil {
		return nil, err
	}

	orders, err := s.workOrders.List(ctx, tenantID, resolved)
	if err != nil {
		return nil, err
	}

	overdueRef := time.Now()
	if filters.EndDate != nil {
		overdueRef = *filters.EndDate
	}

	var overdue int
	var partsCost float64
	for _, w := range orders {
		if w.DueDate != nil && w.DueDate.Before(overdueRef) &&
			w.Status != models.StatusCompleted && w.Status != models.StatusCancelled {
			overdue++
		}
		partsCost += w.PartsCost()
	}

	return &models.DashboardKPIResult{
		StatusCounts:         statusHistogram(orders),
		TotalWorkOrders:      len(orders),
		Overdue:              overdue,
		PMCompliancePct:      pmCompliance(orders) * 100,
		TotalMaintenanceCost: partsCost,
		MTTRHours:            mttrHours(orders),
		MTBFHours:            mtbfHours(orders),
	}, nil
}

func (s *analyticsService) ComputeSiteSummaries(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) ([]models.CorporateSiteSummary, error) {
	resolved, err := s.resolveFilters(ctx, tenantID, filters)
	if err != nil {
		return nil, err
	}

	orders, err := s.workOrders.List(ctx, tenantID, resolved)
	if err != nil {
		return nil, err
	}
	sites, err := s.assets.ListSites(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	bySite := map[string][]*models.WorkOrder{}
	for _, w := range orders {
		key := unassignedEntity
		if w.SiteID != nil {
			key = w.SiteID.String()
		}
		bySite[key] = append(bySite[key], w)
	}

	summaries := make([]models.CorporateSiteSummary, 0, len(sites)+1)
	for _, site := range sites {
		summaries = append(summaries, siteSummary(site.ID.String(), site.Name, bySite[site.ID.String()]))
	}
	if unassigned, ok := bySite[unassignedEntity]; ok {
		summaries = append(summaries, siteSummary(unassignedEntity, unassignedEntity, unassigned))
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].WorkOrders != summaries[j].WorkOrders {
			return summaries[i].WorkOrders > summaries[j].WorkOrders
		}
		return summaries[i].SiteName < summaries[j].SiteName
	})
	return summaries, nil
}

func siteSummary(id, name string, orders []*models.WorkOrder) models.CorporateSiteSummary {
	var completed int
	for _, w := range orders {
		if w.Status == models.StatusCompleted {
			completed++
		}
	}
	return models.CorporateSiteSummary{
		SiteID:     id,
		SiteName:   name,
		WorkOrders: len(orders),
		Completed:  completed,
		Backlog:    countBacklog(orders),
		MTTRHours:  mttrHours(orders),
		MTBFHours:  mtbfHours(orders),
	}
}

func (s *analyticsService) ComputeCorporateOverview(ctx context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.CorporateOverview, error) {
	summaries, err := s.ComputeSiteSummaries(ctx, tenantID, filters)
	if err != nil {
		return nil, err
	}

	overview := &models.CorporateOverview{Sites: summaries}
	var mttrSum, mtbfSum float64
	var active int
	for _, site := range summaries {
		overview.TotalWorkOrders += site.WorkOrders
		overview.TotalCompleted += site.Completed
		overview.TotalBacklog += site.Backlog
		if site.WorkOrders > 0 {
			mttrSum += site.MTTRHours
			mtbfSum += site.MTBFHours
			active++
		}
	}
	overview.AvgMTTRHours = safeDiv(mttrSum, float64(active))
	overview.AvgMTBFHours = safeDiv(mtbfSum, float64(active))
	return overview, nil
}

// cacheGet returns a cached KPI result or nil. Cache failures are logged and
// treated as misses.
func (s *analyticsService) cacheGet(ctx context.Context, key string) *models.KPIResult {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("kpi cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var result models.KPIResult
	if err := json.Unmarshal(raw, &result); err != nil {
		s.logger.Warn("kpi cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &result
}

func (s *analyticsService) cacheSet(ctx context.Context, key string, result *models.KPIResult) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cfg.CacheTTL()).Err(); err != nil {
		s.logger.Debug("kpi cache write failed", zap.String("key", key), zap.Error(err))
	}
}
