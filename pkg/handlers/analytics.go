package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/machinaops/machina-engine/pkg/auth"
	"github.com/machinaops/machina-engine/pkg/services"
)

// AnalyticsHandler exposes the metrics aggregation endpoints. All routes are
// read-only and tenant-scoped.
type AnalyticsHandler struct {
	analytics services.AnalyticsService
	checker   auth.Checker
	logger    *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(analytics services.AnalyticsService, checker auth.Checker, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		checker:   checker,
		logger:    logger,
	}
}

// RegisterRoutes registers the analytics handler's routes on the given mux.
func (h *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/analytics"

	mux.HandleFunc("GET "+base+"/kpis",
		authMiddleware.RequireAuth(tenantMiddleware(h.KPIs)))
	mux.HandleFunc("GET "+base+"/trends",
		authMiddleware.RequireAuth(tenantMiddleware(h.Trends)))
	mux.HandleFunc("GET "+base+"/dashboard",
		authMiddleware.RequireAuth(tenantMiddleware(h.Dashboard)))
	mux.HandleFunc("GET "+base+"/corporate/sites",
		authMiddleware.RequireAuth(tenantMiddleware(h.CorporateSites)))
	mux.HandleFunc("GET "+base+"/corporate/overview",
		authMiddleware.RequireAuth(tenantMiddleware(h.CorporateOverview)))
	mux.HandleFunc("GET "+base+"/pm/what-if",
		authMiddleware.RequireAuth(tenantMiddleware(h.PmWhatIf)))
}

// authorize runs the analytics read permission check and extracts the tenant.
func (h *AnalyticsHandler) authorize(w http.ResponseWriter, r *http.Request) (tenantOK bool) {
	claims, _ := auth.GetClaims(r.Context())
	if err := h.checker.Require(claims, auth.ResourceAnalytics, auth.ActionRead); err != nil {
		respondServiceError(w, h.logger, err)
		return false
	}
	return true
}

// KPIs handles GET /api/analytics/kpis.
func (h *AnalyticsHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	tenantID, err := auth.RequireTenantIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	result, err := h.analytics.ComputeKPIs(r.Context(), tenantID, ParseAnalyticsFilters(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode KPI response", zap.Error(err))
	}
}

// Trends handles GET /api/analytics/trends.
func (h *AnalyticsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	tenantID, err := auth.RequireTenantIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	result, err := h.analytics.ComputeTrends(r.Context(), tenantID, ParseAnalyticsFilters(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode trend response", zap.Error(err))
	}
}

// Dashboard handles GET /api/analytics/dashboard.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	tenantID, err := auth.RequireTenantIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	result, err := h.analytics.ComputeDashboardSummary(r.Context(), tenantID, ParseAnalyticsFilters(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode dashboard response", zap.Error(err))
	}
}

// CorporateSites handles GET /api/analytics/corporate/sites.
func (h *AnalyticsHandler) CorporateSites(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	tenantID, err := auth.RequireTenantIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	summaries, err := h.analytics.ComputeSiteSummaries(r.Context(), tenantID, ParseAnalyticsFilters(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"sites": summaries}); err != nil {
		h.logger.Error("Failed to encode site summary response", zap.Error(err))
	}
}

// CorporateOverview handles GET /api/analytics/corporate/overview.
func (h *AnalyticsHandler) CorporateOverview(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	tenantID, err := auth.RequireTenantIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	overview, err := h.analytics.ComputeCorporateOverview(r.Context(), tenantID, ParseAnalyticsFilters(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, overview); err != nil {
		h.logger.Error("Failed to encode corporate overview response", zap.Error(err))
	}
}

// PmWhatIf handles GET /api/analytics/pm/what-if.
func (h *AnalyticsHandler) PmWhatIf(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	tenantID, err := auth.RequireTenantIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	result, err := h.analytics.ComputeWhatIfSimulations(r.Context(), tenantID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode what-if response", zap.Error(err))
	}
}
