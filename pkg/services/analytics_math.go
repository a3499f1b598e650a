package services

import (
	"sort"

	"github.com/machinaops/machina-engine/pkg/models"
)

// Pure metric formulas shared by the point-in-time KPIs, the trend buckets,
// and the corporate rollups. Every division is guarded so sparse or
// zero-valued history yields zeros, never NaN or Inf.

const dayLayout = "2006-01-02"

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// mttrHours is the mean completion span in hours over completed work orders.
// Work orders without a completion are excluded; an empty set yields 0.
func mttrHours(orders []*models.WorkOrder) float64 {
	var total float64
	var n int
	for _, w := range orders {
		if w.CompletedAt == nil {
			continue
		}
		total += w.CompletedAt.Sub(w.CreatedAt).Hours()
		n++
	}
	return safeDiv(total, float64(n))
}

// mtbfHours is the mean gap in hours between consecutive completions,
// sorted ascending by completion time. Fewer than two completions yield 0.
func mtbfHours(orders []*models.WorkOrder) float64 {
	var completions []int64
	for _, w := range orders {
		if w.CompletedAt != nil {
			completions = append(completions, w.CompletedAt.UnixMilli())
		}
	}
	if len(completions) < 2 {
		return 0
	}
	sort.Slice(completions, func(i, j int) bool { return completions[i] < completions[j] })

	var totalMs float64
	for i := 1; i < len(completions); i++ {
		totalMs += float64(completions[i] - completions[i-1])
	}
	return totalMs / float64(len(completions)-1) / (1000 * 60 * 60)
}

// countBacklog counts work orders not yet completed.
func countBacklog(orders []*models.WorkOrder) int {
	var n int
	for _, w := range orders {
		if w.IsOpen() {
			n++
		}
	}
	return n
}

// oeeFactors computes availability, performance, quality, and their product
// over a production record set. Availability and quality are clamped ratios;
// performance is capped at 1 but deliberately not floored (non-negative
// inputs cannot drive it below 0).
func oeeFactors(records []*models.ProductionRecord) models.OEEFactors {
	var plannedMin, runMin float64
	var idealSec, actualUnits, goodUnits float64
	for _, p := range records {
		plannedMin += p.PlannedTimeMin
		runMin += p.EffectiveRunTimeMin()
		idealSec += p.IdealCycleTimeSec * p.ActualUnits
		actualUnits += p.ActualUnits
		goodUnits += p.EffectiveGoodUnits()
	}

	var f models.OEEFactors
	f.Availability = clamp01(safeDiv(runMin, plannedMin))
	if runMin > 0 {
		perf := idealSec / (runMin * 60)
		if perf > 1 {
			perf = 1
		}
		f.Performance = perf
	}
	f.Quality = clamp01(safeDiv(goodUnits, actualUnits))
	f.OEE = f.Availability * f.Performance * f.Quality
	return f
}

// statusHistogram counts work orders per status, always emitting every
// status in the fixed ordering, zero-filled.
func statusHistogram(orders []*models.WorkOrder) []models.StatusCount {
	counts := map[models.WorkOrderStatus]int{}
	for _, w := range orders {
		counts[w.Status]++
	}
	out := make([]models.StatusCount, 0, len(models.WorkOrderStatuses))
	for _, s := range models.WorkOrderStatuses {
		out = append(out, models.StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

// downtimeSummary derives total downtime, the per-failure-code breakdown
// (largest first), and the per-day series (ascending) from work orders.
func downtimeSummary(orders []*models.WorkOrder) models.DowntimeSummary {
	var total float64
	byCode := map[string]float64{}
	byDay := map[string]float64{}
	for _, w := range orders {
		minutes := w.DowntimeMinutes()
		if minutes <= 0 {
			continue
		}
		total += minutes
		code := w.FailureCode
		if code == "" {
			code = "unspecified"
		}
		byCode[code] += minutes
		byDay[w.CreatedAt.UTC().Format(dayLayout)] += minutes
	}

	summary := models.DowntimeSummary{
		TotalMin:      total,
		ByFailureCode: make([]models.FailureCodeDowntime, 0, len(byCode)),
		ByDay:         make([]models.DowntimePoint, 0, len(byDay)),
	}
	for code, minutes := range byCode {
		summary.ByFailureCode = append(summary.ByFailureCode, models.FailureCodeDowntime{FailureCode: code, Minutes: minutes})
	}
	sort.Slice(summary.ByFailureCode, func(i, j int) bool {
		if summary.ByFailureCode[i].Minutes != summary.ByFailureCode[j].Minutes {
			return summary.ByFailureCode[i].Minutes > summary.ByFailureCode[j].Minutes
		}
		return summary.ByFailureCode[i].FailureCode < summary.ByFailureCode[j].FailureCode
	})
	for day, minutes := range byDay {
		summary.ByDay = append(summary.ByDay, models.DowntimePoint{Period: day, Minutes: minutes})
	}
	sort.Slice(summary.ByDay, func(i, j int) bool { return summary.ByDay[i].Period < summary.ByDay[j].Period })
	return summary
}

// groupProductionBy buckets production records by an entity key, with
// "unassigned" for records that carry none.
func groupProductionBy(records []*models.ProductionRecord, keyOf func(*models.ProductionRecord) string) map[string][]*models.ProductionRecord {
	groups := map[string][]*models.ProductionRecord{}
	for _, p := range records {
		key := keyOf(p)
		if key == "" {
			key = "unassigned"
		}
		groups[key] = append(groups[key], p)
	}
	return groups
}

// benchmarks ranks entities by OEE, descending. Every distinct entity id
// appears exactly once.
func benchmarks(records []*models.ProductionRecord, keyOf func(*models.ProductionRecord) string, nameOf func(string) string) []models.EntityBenchmark {
	groups := groupProductionBy(records, keyOf)
	out := make([]models.EntityBenchmark, 0, len(groups))
	for id, group := range groups {
		b := models.EntityBenchmark{
			EntityID:   id,
			Name:       nameOf(id),
			Records:    len(group),
			OEEFactors: oeeFactors(group),
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OEE != out[j].OEE {
			return out[i].OEE > out[j].OEE
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

// pmCompliance returns the completed fraction of preventive work orders in
// [0,1], and 0 when there are none.
func pmCompliance(orders []*models.WorkOrder) float64 {
	var preventive, completed float64
	for _, w := range orders {
		if w.Type != models.TypePreventive {
			continue
		}
		preventive++
		if w.Status == models.StatusCompleted {
			completed++
		}
	}
	return safeDiv(completed, preventive)
}
