package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnalyticsFilters narrows the record set every analytics computation runs
// over. All fields are optional; the zero value means "everything the tenant
// owns". When only site IDs are given, asset IDs are resolved transitively
// from sites before production or work order data is queried.
type AnalyticsFilters struct {
	StartDate *time.Time  `json:"start_date,omitempty"`
	EndDate   *time.Time  `json:"end_date,omitempty"`
	AssetIDs  []uuid.UUID `json:"asset_ids,omitempty"`
	SiteIDs   []uuid.UUID `json:"site_ids,omitempty"`
}

// IsZero reports whether no filter constraint is set.
func (f AnalyticsFilters) IsZero() bool {
	return f.StartDate == nil && f.EndDate == nil && len(f.AssetIDs) == 0 && len(f.SiteIDs) == 0
}

// CacheKey returns a stable string form of the filters, usable as part of a
// cache key. Identical filters always produce an identical key.
func (f AnalyticsFilters) CacheKey() string {
	var parts []string
	if f.StartDate != nil {
		parts = append(parts, "s="+f.StartDate.UTC().Format(time.RFC3339))
	}
	if f.EndDate != nil {
		parts = append(parts, "e="+f.EndDate.UTC().Format(time.RFC3339))
	}
	parts = append(parts, idsKey("a", f.AssetIDs)...)
	parts = append(parts, idsKey("g", f.SiteIDs)...)
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, ",")
}

func idsKey(prefix string, ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	ss := make([]string, len(ids))
	for i, id := range ids {
		ss[i] = id.String()
	}
	sort.Strings(ss)
	return []string{prefix + "=" + strings.Join(ss, "|")}
}
