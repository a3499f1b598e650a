package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalyticsFilters_Empty(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/analytics/kpis", nil)
	filters := ParseAnalyticsFilters(r)
	assert.True(t, filters.IsZero())
}

func TestParseAnalyticsFilters_Dates(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/analytics/kpis?startDate=2025-01-15&endDate=2025-02-01T08:30:00Z", nil)
	filters := ParseAnalyticsFilters(r)

	require.NotNil(t, filters.StartDate)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), *filters.StartDate)
	require.NotNil(t, filters.EndDate)
	assert.Equal(t, time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC), *filters.EndDate)
}

func TestParseAnalyticsFilters_MalformedDatesIgnored(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/analytics/kpis?startDate=yesterday&endDate=01/02/2025", nil)
	filters := ParseAnalyticsFilters(r)
	assert.Nil(t, filters.StartDate)
	assert.Nil(t, filters.EndDate)
}

func TestParseAnalyticsFilters_IDs(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	site := uuid.New()

	// Comma-separated and repeated parameters both work; junk is dropped.
	r := httptest.NewRequest("GET",
		"/api/analytics/kpis?assetIds="+a.String()+",not-a-uuid&assetIds="+b.String()+
			"&siteIds="+site.String(), nil)
	filters := ParseAnalyticsFilters(r)

	assert.Equal(t, []uuid.UUID{a, b}, filters.AssetIDs)
	assert.Equal(t, []uuid.UUID{site}, filters.SiteIDs)
}
