package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/machinaops/machina-engine/pkg/models"
)

// ParseAnalyticsFilters reads the shared analytics query parameters. All
// parameters are optional and forgiving: malformed dates and IDs are dropped
// rather than rejected, so a dashboard with one bad widget still renders.
//
//	startDate, endDate  RFC 3339 or YYYY-MM-DD
//	assetIds, siteIds   comma-separated or repeated UUID parameters
func ParseAnalyticsFilters(r *http.Request) models.AnalyticsFilters {
	q := r.URL.Query()

	var filters models.AnalyticsFilters
	filters.StartDate = parseTimeParam(q.Get("startDate"))
	filters.EndDate = parseTimeParam(q.Get("endDate"))
	filters.AssetIDs = parseUUIDParams(q["assetIds"])
	filters.SiteIDs = parseUUIDParams(q["siteIds"])
	return filters
}

func parseTimeParam(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}

func parseUUIDParams(values []string) []uuid.UUID {
	var ids []uuid.UUID
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if id, err := uuid.Parse(part); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
