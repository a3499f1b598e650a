package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/machinaops/machina-engine/pkg/models"
)

// Scenario adjustments applied to the averaged asset baseline. Accelerating
// the PM schedule trades compliance effort for failure risk; deferring does
// the reverse.
const (
	scenarioCurrent    = "current"
	scenarioAccelerate = "accelerate_20_percent"
	scenarioDefer      = "defer_15_percent"

	accelerateFailureDelta    = -0.12
	accelerateComplianceDelta = 0.08
	deferFailureDelta         = 0.10
	deferComplianceDelta      = -0.06
)

func (s *analyticsService) ComputeWhatIfSimulations(ctx context.Context, tenantID uuid.UUID) (*models.PmOptimizationWhatIfResponse, error) {
	now := time.Now()
	start := now.AddDate(0, 0, -s.cfg.WhatIfLookbackDays)
	lookback := models.AnalyticsFilters{StartDate: &start, EndDate: &now}

	orders, records, _, err := s.fetchOperationalData(ctx, tenantID, lookback)
	if err != nil {
		return nil, err
	}
	assetNames, _, _, err := s.entityNames(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	days := float64(s.cfg.WhatIfLookbackDays)
	if days <= 0 {
		days = 1
	}

	ordersByAsset := map[uuid.UUID][]*models.WorkOrder{}
	for _, w := range orders {
		if w.AssetID != nil {
			ordersByAsset[*w.AssetID] = append(ordersByAsset[*w.AssetID], w)
		}
	}
	recordsByAsset := map[uuid.UUID][]*models.ProductionRecord{}
	for _, p := range records {
		if p.AssetID != nil {
			recordsByAsset[*p.AssetID] = append(recordsByAsset[*p.AssetID], p)
		}
	}

	seen := map[uuid.UUID]struct{}{}
	var impacts []models.AssetImpact
	addAsset := func(id uuid.UUID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		impacts = append(impacts, assetImpact(id, assetNames, ordersByAsset[id], recordsByAsset[id], days, now))
	}
	for id := range ordersByAsset {
		addAsset(id)
	}
	for id := range recordsByAsset {
		addAsset(id)
	}

	sort.Slice(impacts, func(i, j int) bool {
		if impacts[i].ImpactScore != impacts[j].ImpactScore {
			return impacts[i].ImpactScore > impacts[j].ImpactScore
		}
		return impacts[i].AssetID.String() < impacts[j].AssetID.String()
	})
	if len(impacts) > maxWhatIfAssets {
		impacts = impacts[:maxWhatIfAssets]
	}
	if impacts == nil {
		impacts = []models.AssetImpact{}
	}

	return &models.PmOptimizationWhatIfResponse{
		Assets:    impacts,
		Scenarios: whatIfScenarios(impacts),
	}, nil
}

func assetImpact(
	id uuid.UUID,
	assetNames map[string]string,
	orders []*models.WorkOrder,
	records []*models.ProductionRecord,
	days float64,
	now time.Time,
) models.AssetImpact {
	var runMin, cycles float64
	for _, p := range records {
		runMin += p.EffectiveRunTimeMin()
		cycles += p.ActualUnits
	}

	var corrective, overdue int
	for _, w := range orders {
		if w.Type == models.TypeCorrective {
			corrective++
		}
		if w.DueDate != nil && w.DueDate.Before(now) &&
			w.Status != models.StatusCompleted && w.Status != models.StatusCancelled {
			overdue++
		}
	}

	failureProb := safeDiv(float64(corrective), float64(len(orders)))
	compliance := pmCompliance(orders)

	score := float64(overdue)*10 + (1-compliance)*40 + failureProb*50
	if score > 100 {
		score = 100
	}

	return models.AssetImpact{
		AssetID:            id,
		AssetName:          nameOrID(assetNames, id.String()),
		DailyRunHours:      runMin / 60 / days,
		DailyCycles:        cycles / days,
		FailureProbability: failureProb,
		CompliancePct:      compliance * 100,
		OverdueCount:       overdue,
		ImpactScore:        score,
	}
}

// whatIfScenarios derives the three fixed scenarios from the ranked assets'
// average failure probability and compliance.
func whatIfScenarios(impacts []models.AssetImpact) []models.WhatIfScenario {
	var failureSum, complianceSum float64
	for _, a := range impacts {
		failureSum += a.FailureProbability
		complianceSum += a.CompliancePct / 100
	}
	n := float64(len(impacts))
	baseFailure := safeDiv(failureSum, n)
	baseCompliance := safeDiv(complianceSum, n)

	adjust := func(name string, failureDelta, complianceDelta float64) models.WhatIfScenario {
		return models.WhatIfScenario{
			Name:               name,
			FailureProbability: clamp01(baseFailure + failureDelta),
			CompliancePct:      clamp01(baseCompliance+complianceDelta) * 100,
		}
	}

	return []models.WhatIfScenario{
		adjust(scenarioCurrent, 0, 0),
		adjust(scenarioAccelerate, accelerateFailureDelta, accelerateComplianceDelta),
		adjust(scenarioDefer, deferFailureDelta, deferComplianceDelta),
	}
}
