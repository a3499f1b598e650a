package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/machinaops/machina-engine/pkg/auth"
	"github.com/machinaops/machina-engine/pkg/models"
)

type mockAnalyticsService struct {
	gotTenantID uuid.UUID
	gotFilters  models.AnalyticsFilters
	err         error
}

func (m *mockAnalyticsService) record(tenantID uuid.UUID, filters models.AnalyticsFilters) {
	m.gotTenantID = tenantID
	m.gotFilters = filters
}

func (m *mockAnalyticsService) ComputeKPIs(_ context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.KPIResult, error) {
	m.record(tenantID, filters)
	if m.err != nil {
		return nil, m.err
	}
	return &models.KPIResult{MTTRHours: 4.5, Backlog: 3}, nil
}

func (m *mockAnalyticsService) ComputeTrends(_ context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.TrendResult, error) {
	m.record(tenantID, filters)
	if m.err != nil {
		return nil, m.err
	}
	return &models.TrendResult{Points: []models.TrendPoint{{Period: "2025-06-01"}}}, nil
}

func (m *mockAnalyticsService) ComputeDashboardSummary(_ context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.DashboardKPIResult, error) {
	m.record(tenantID, filters)
	if m.err != nil {
		return nil, m.err
	}
	return &models.DashboardKPIResult{TotalWorkOrders: 7}, nil
}

func (m *mockAnalyticsService) ComputeSiteSummaries(_ context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) ([]models.CorporateSiteSummary, error) {
	m.record(tenantID, filters)
	if m.err != nil {
		return nil, m.err
	}
	return []models.CorporateSiteSummary{{SiteID: "unassigned", WorkOrders: 2}}, nil
}

func (m *mockAnalyticsService) ComputeCorporateOverview(_ context.Context, tenantID uuid.UUID, filters models.AnalyticsFilters) (*models.CorporateOverview, error) {
	m.record(tenantID, filters)
	if m.err != nil {
		return nil, m.err
	}
	return &models.CorporateOverview{TotalWorkOrders: 9}, nil
}

func (m *mockAnalyticsService) ComputeWhatIfSimulations(_ context.Context, tenantID uuid.UUID) (*models.PmOptimizationWhatIfResponse, error) {
	m.record(tenantID, models.AnalyticsFilters{})
	if m.err != nil {
		return nil, m.err
	}
	return &models.PmOptimizationWhatIfResponse{
		Assets:    []models.AssetImpact{},
		Scenarios: []models.WhatIfScenario{{Name: "current"}},
	}, nil
}

func analyticsRequest(tenantID uuid.UUID, target string, roles ...string) *http.Request {
	r := httptest.NewRequest("GET", target, nil)
	claims := &auth.Claims{TenantID: tenantID.String(), Roles: roles}
	claims.Subject = "user-1"
	return r.WithContext(auth.SetClaims(r.Context(), claims))
}

func TestKPIsHandler(t *testing.T) {
	svc := &mockAnalyticsService{}
	h := NewAnalyticsHandler(svc, auth.NewRoleChecker(), zap.NewNop())
	tenantID := uuid.New()

	w := httptest.NewRecorder()
	h.KPIs(w, analyticsRequest(tenantID,
		"/api/analytics/kpis?startDate=2025-06-01&endDate=2025-06-30", auth.RoleViewer))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenantID, svc.gotTenantID)
	require.NotNil(t, svc.gotFilters.StartDate)
	assert.Equal(t, "2025-06-01", svc.gotFilters.StartDate.Format("2006-01-02"))

	var result models.KPIResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 4.5, result.MTTRHours)
	assert.Equal(t, 3, result.Backlog)
}

func TestKPIsHandler_PermissionDenied(t *testing.T) {
	h := NewAnalyticsHandler(&mockAnalyticsService{}, auth.NewRoleChecker(), zap.NewNop())

	w := httptest.NewRecorder()
	h.KPIs(w, analyticsRequest(uuid.New(), "/api/analytics/kpis", "contractor"))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTrendsHandler(t *testing.T) {
	svc := &mockAnalyticsService{}
	h := NewAnalyticsHandler(svc, auth.NewRoleChecker(), zap.NewNop())

	w := httptest.NewRecorder()
	h.Trends(w, analyticsRequest(uuid.New(), "/api/analytics/trends", auth.RoleTechnician))

	assert.Equal(t, http.StatusOK, w.Code)
	var result models.TrendResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Points, 1)
	assert.Equal(t, "2025-06-01", result.Points[0].Period)
}

func TestDashboardHandler_ServiceError(t *testing.T) {
	svc := &mockAnalyticsService{err: assert.AnError}
	h := NewAnalyticsHandler(svc, auth.NewRoleChecker(), zap.NewNop())

	w := httptest.NewRecorder()
	h.Dashboard(w, analyticsRequest(uuid.New(), "/api/analytics/dashboard", auth.RoleManager))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCorporateSitesHandler_WrapsSites(t *testing.T) {
	svc := &mockAnalyticsService{}
	h := NewAnalyticsHandler(svc, auth.NewRoleChecker(), zap.NewNop())

	w := httptest.NewRecorder()
	h.CorporateSites(w, analyticsRequest(uuid.New(), "/api/analytics/corporate/sites", auth.RoleAnalyst))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Sites []models.CorporateSiteSummary `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sites, 1)
	assert.Equal(t, "unassigned", resp.Sites[0].SiteID)
}

func TestPmWhatIfHandler(t *testing.T) {
	svc := &mockAnalyticsService{}
	h := NewAnalyticsHandler(svc, auth.NewRoleChecker(), zap.NewNop())
	tenantID := uuid.New()

	w := httptest.NewRecorder()
	h.PmWhatIf(w, analyticsRequest(tenantID, "/api/analytics/pm/what-if", auth.RoleManager))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenantID, svc.gotTenantID)
	var result models.PmOptimizationWhatIfResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "current", result.Scenarios[0].Name)
}
