package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/machinaops/machina-engine/pkg/apperrors"
	"github.com/machinaops/machina-engine/pkg/models"
)

type mockWorkOrderRepo struct {
	orders     []*models.WorkOrder
	err        error
	gotFilters models.AnalyticsFilters
}

func (m *mockWorkOrderRepo) List(_ context.Context, _ uuid.UUID, filters models.AnalyticsFilters) ([]*models.WorkOrder, error) {
	m.gotFilters = filters
	return m.orders, m.err
}

type mockProductionRepo struct {
	records    []*models.ProductionRecord
	err        error
	gotFilters models.AnalyticsFilters
}

func (m *mockProductionRepo) List(_ context.Context, _ uuid.UUID, filters models.AnalyticsFilters) ([]*models.ProductionRecord, error) {
	m.gotFilters = filters
	return m.records, m.err
}

type mockSensorRepo struct {
	readings   []*models.SensorReading
	err        error
	gotFilters models.AnalyticsFilters
	called     bool
}

func (m *mockSensorRepo) ListEnergy(_ context.Context, _ uuid.UUID, filters models.AnalyticsFilters) ([]*models.SensorReading, error) {
	m.called = true
	m.gotFilters = filters
	return m.readings, m.err
}

type mockAssetRepo struct {
	assets     []*models.Asset
	sites      []*models.Site
	siteAssets []uuid.UUID
	err        error
	gotSiteIDs []uuid.UUID
}

func (m *mockAssetRepo) ListAssets(_ context.Context, _ uuid.UUID) ([]*models.Asset, error) {
	return m.assets, m.err
}

func (m *mockAssetRepo) ListAssetIDsBySites(_ context.Context, _ uuid.UUID, siteIDs []uuid.UUID) ([]uuid.UUID, error) {
	m.gotSiteIDs = siteIDs
	return m.siteAssets, m.err
}

func (m *mockAssetRepo) ListSites(_ context.Context, _ uuid.UUID) ([]*models.Site, error) {
	return m.sites, m.err
}

type mockTemplateRepo struct {
	templates map[uuid.UUID]*models.ReportTemplate
	createErr error
	updateErr error

	created *models.ReportTemplate
	updated *models.ReportTemplate
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: map[uuid.UUID]*models.ReportTemplate{}}
}

func (m *mockTemplateRepo) Create(_ context.Context, tpl *models.ReportTemplate) error {
	if m.createErr != nil {
		return m.createErr
	}
	tpl.ID = uuid.New()
	m.templates[tpl.ID] = tpl
	m.created = tpl
	return nil
}

func (m *mockTemplateRepo) Update(_ context.Context, tpl *models.ReportTemplate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.templates[tpl.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.templates[tpl.ID] = tpl
	m.updated = tpl
	return nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, tenantID, templateID uuid.UUID) (*models.ReportTemplate, error) {
	tpl, ok := m.templates[templateID]
	if !ok || tpl.TenantID != tenantID {
		return nil, apperrors.ErrNotFound
	}
	return tpl, nil
}

func (m *mockTemplateRepo) GetByShareID(_ context.Context, tenantID uuid.UUID, shareID string) (*models.ReportTemplate, error) {
	for _, tpl := range m.templates {
		if tpl.TenantID == tenantID && tpl.ShareID == shareID {
			return tpl, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTemplateRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*models.ReportTemplate, error) {
	var out []*models.ReportTemplate
	for _, tpl := range m.templates {
		if tpl.TenantID == tenantID {
			out = append(out, tpl)
		}
	}
	return out, nil
}
