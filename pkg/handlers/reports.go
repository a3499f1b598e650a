package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/machinaops/machina-engine/pkg/auth"
	"github.com/machinaops/machina-engine/pkg/export"
	"github.com/machinaops/machina-engine/pkg/models"
	"github.com/machinaops/machina-engine/pkg/reporting"
	"github.com/machinaops/machina-engine/pkg/services"
)

// TemplateRequest is the POST/PUT body for report templates.
type TemplateRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Definition  reporting.Request `json:"definition"`
	Visibility  models.Visibility `json:"visibility"`
}

// ListTemplatesResponse wraps the template array.
type ListTemplatesResponse struct {
	Templates []*models.ReportTemplate `json:"templates"`
}

// ModelsResponse lists the queryable data sources.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// ReportsHandler handles ad-hoc report queries, exports, and template
// management.
type ReportsHandler struct {
	reports services.ReportService
	logger  *zap.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reports services.ReportService, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports: reports,
		logger:  logger,
	}
}

// RegisterRoutes registers the reports handler's routes on the given mux.
func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/reports"

	mux.HandleFunc("GET "+base+"/models",
		authMiddleware.RequireAuth(h.Models))
	mux.HandleFunc("POST "+base+"/query",
		authMiddleware.RequireAuth(tenantMiddleware(h.RunQuery)))
	mux.HandleFunc("POST "+base+"/query/export",
		authMiddleware.RequireAuth(tenantMiddleware(h.ExportQuery)))
	mux.HandleFunc("GET "+base+"/templates",
		authMiddleware.RequireAuth(tenantMiddleware(h.ListTemplates)))
	mux.HandleFunc("POST "+base+"/templates",
		authMiddleware.RequireAuth(tenantMiddleware(h.CreateTemplate)))
	mux.HandleFunc("GET "+base+"/templates/{id}",
		authMiddleware.RequireAuth(tenantMiddleware(h.GetTemplate)))
	mux.HandleFunc("PUT "+base+"/templates/{id}",
		authMiddleware.RequireAuth(tenantMiddleware(h.UpdateTemplate)))
}

// Models handles GET /api/reports/models.
func (h *ReportsHandler) Models(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, ModelsResponse{Models: reporting.ModelNames()}); err != nil {
		h.logger.Error("Failed to encode models response", zap.Error(err))
	}
}

// RunQuery handles POST /api/reports/query.
func (h *ReportsHandler) RunQuery(w http.ResponseWriter, r *http.Request) {
	var req reporting.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	claims, _ := auth.GetClaims(r.Context())
	result, err := h.reports.RunQuery(r.Context(), claims, &req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode report response", zap.Error(err))
	}
}

// ExportQuery handles POST /api/reports/query/export. The format query
// parameter selects csv (default) or xlsx.
func (h *ReportsHandler) ExportQuery(w http.ResponseWriter, r *http.Request) {
	var req reporting.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("Unsupported export format %q", format))
		return
	}

	claims, _ := auth.GetClaims(r.Context())
	result, err := h.reports.RunQuery(r.Context(), claims, &req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	switch format {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="report.xlsx"`)
		err = export.WriteXLSX(w, result)
	default:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
		err = export.WriteCSV(w, result)
	}
	if err != nil {
		h.logger.Error("Failed to write report export", zap.String("format", format), zap.Error(err))
	}
}

// ListTemplates handles GET /api/reports/templates.
func (h *ReportsHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetClaims(r.Context())
	templates, err := h.reports.ListTemplates(r.Context(), claims)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ListTemplatesResponse{Templates: templates}); err != nil {
		h.logger.Error("Failed to encode templates response", zap.Error(err))
	}
}

// CreateTemplate handles POST /api/reports/templates.
func (h *ReportsHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	claims, _ := auth.GetClaims(r.Context())
	tpl := &models.ReportTemplate{
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		Visibility:  req.Visibility,
	}
	created, err := h.reports.CreateTemplate(r.Context(), claims, tpl)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, created); err != nil {
		h.logger.Error("Failed to encode template response", zap.Error(err))
	}
}

// GetTemplate handles GET /api/reports/templates/{id}. The path value can be
// a template ID or a share ID.
func (h *ReportsHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetClaims(r.Context())
	tpl, err := h.reports.GetTemplate(r.Context(), claims, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, tpl); err != nil {
		h.logger.Error("Failed to encode template response", zap.Error(err))
	}
}

// UpdateTemplate handles PUT /api/reports/templates/{id}.
func (h *ReportsHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid template ID")
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	claims, _ := auth.GetClaims(r.Context())
	tpl := &models.ReportTemplate{
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		Visibility:  req.Visibility,
	}
	updated, err := h.reports.UpdateTemplate(r.Context(), claims, templateID, tpl)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, updated); err != nil {
		h.logger.Error("Failed to encode template response", zap.Error(err))
	}
}
