package services

import (
	"sort"
	"time"

	"github.com/machinaops/machina-engine/pkg/models"
)

// energySummary merges the two energy inputs, sensor readings with the
// energy metric and the energy column of production records, into one
// per-asset and per-site breakdown.
func energySummary(
	records []*models.ProductionRecord,
	readings []*models.SensorReading,
	filters models.AnalyticsFilters,
	assetNames, siteNames, assetSites map[string]string,
) models.EnergySummary {
	byAsset := map[string]float64{}
	bySite := map[string]float64{}
	var total float64

	var earliest, latest time.Time
	observe := func(t time.Time) {
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
		if latest.IsZero() || t.After(latest) {
			latest = t
		}
	}

	siteOf := func(assetKey string) string {
		if site, ok := assetSites[assetKey]; ok {
			return site
		}
		return unassignedEntity
	}

	for _, r := range readings {
		if r.Value <= 0 {
			continue
		}
		key := r.AssetID.String()
		byAsset[key] += r.Value
		bySite[siteOf(key)] += r.Value
		total += r.Value
		observe(r.Timestamp)
	}
	for _, p := range records {
		if p.EnergyKWh <= 0 {
			continue
		}
		total += p.EnergyKWh
		observe(p.RecordedAt)
		if p.AssetID != nil {
			key := p.AssetID.String()
			byAsset[key] += p.EnergyKWh
			if p.SiteID != nil {
				bySite[p.SiteID.String()] += p.EnergyKWh
			} else {
				bySite[siteOf(key)] += p.EnergyKWh
			}
			continue
		}
		if p.SiteID != nil {
			bySite[p.SiteID.String()] += p.EnergyKWh
		} else {
			bySite[unassignedEntity] += p.EnergyKWh
		}
	}

	summary := models.EnergySummary{
		TotalKWh: total,
		ByAsset:  entityEnergyList(byAsset, assetNames),
		BySite:   entityEnergyList(bySite, siteNames),
	}
	summary.AvgPerHourKWh = safeDiv(total, spanHours(filters, earliest, latest))
	return summary
}

// spanHours is the filter window in hours when both bounds are set, and the
// observed data span otherwise.
func spanHours(filters models.AnalyticsFilters, earliest, latest time.Time) float64 {
	if filters.StartDate != nil && filters.EndDate != nil {
		return filters.EndDate.Sub(*filters.StartDate).Hours()
	}
	if earliest.IsZero() || !latest.After(earliest) {
		return 0
	}
	return latest.Sub(earliest).Hours()
}

func entityEnergyList(totals map[string]float64, names map[string]string) []models.EntityEnergy {
	out := make([]models.EntityEnergy, 0, len(totals))
	for id, kwh := range totals {
		out = append(out, models.EntityEnergy{
			EntityID: id,
			Name:     nameOrID(names, id),
			TotalKWh: kwh,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalKWh != out[j].TotalKWh {
			return out[i].TotalKWh > out[j].TotalKWh
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}
