package reporting

import (
	"fmt"
	"regexp"

	"github.com/machinaops/machina-engine/pkg/apperrors"
)

// ModelName identifies one of the closed set of report data sources.
type ModelName string

const (
	ModelWorkOrders ModelName = "work_orders"
	ModelAssets     ModelName = "assets"
	ModelParts      ModelName = "parts"
	ModelLabor      ModelName = "labor"
	ModelIoTEvents  ModelName = "iot_events"
)

// Field describes one user-selectable field of a report model. Key is the
// stable identifier used in requests and result columns; Column is the
// storage path, qualified with a join alias when the field is derived.
type Field struct {
	Key     string
	Label   string
	Column  string
	Numeric bool
}

// Join is a lookup step a model needs to expose a derived field, such as
// resolving an asset name from an asset reference.
type Join struct {
	Table string
	Alias string
	On    string
}

// Model is one schema-described data source exposed to the report builder.
// The registry is a closed enumeration: models cannot be added at runtime,
// and the whole table is validated at package init.
type Model struct {
	Name          ModelName
	Table         string
	TenantColumn  string
	TimeColumn    string
	TimeFieldKey  string
	Fields        []Field
	DefaultFields []string
	DefaultCalcs  []Calculation
	Joins         []Join
}

// Field returns the descriptor for a field key, if the model exposes it.
func (m *Model) Field(key string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

var registry = map[ModelName]*Model{
	ModelWorkOrders: {
		Name:         ModelWorkOrders,
		Table:        "work_orders",
		TenantColumn: "w.tenant_id",
		TimeColumn:   "w.created_at",
		TimeFieldKey: "created_at",
		Fields: []Field{
			{Key: "status", Label: "Status", Column: "w.status"},
			{Key: "type", Label: "Type", Column: "w.wo_type"},
			{Key: "failure_code", Label: "Failure Code", Column: "w.failure_code"},
			{Key: "asset_name", Label: "Asset", Column: "a.name"},
			{Key: "site_name", Label: "Site", Column: "s.name"},
			{Key: "assignee_name", Label: "Assignee", Column: "u.display_name"},
			{Key: "created_at", Label: "Created", Column: "w.created_at"},
			{Key: "completed_at", Label: "Completed", Column: "w.completed_at"},
			{Key: "due_date", Label: "Due", Column: "w.due_date"},
			{Key: "time_spent_min", Label: "Time Spent (min)", Column: "w.time_spent_min", Numeric: true},
			{Key: "parts_cost", Label: "Parts Cost", Column: "w.parts_cost", Numeric: true},
		},
		DefaultFields: []string{"status", "type", "asset_name", "created_at", "completed_at"},
		DefaultCalcs:  []Calculation{{Op: CalcCount}},
		Joins: []Join{
			{Table: "assets", Alias: "a", On: "a.id = w.asset_id"},
			{Table: "sites", Alias: "s", On: "s.id = w.site_id"},
			{Table: "users", Alias: "u", On: "u.id = w.assignee_id"},
		},
	},
	ModelAssets: {
		Name:         ModelAssets,
		Table:        "assets",
		TenantColumn: "a.tenant_id",
		TimeColumn:   "a.created_at",
		TimeFieldKey: "created_at",
		Fields: []Field{
			{Key: "name", Label: "Name", Column: "a.name"},
			{Key: "status", Label: "Status", Column: "a.status"},
			{Key: "site_name", Label: "Site", Column: "s.name"},
			{Key: "purchase_cost", Label: "Purchase Cost", Column: "a.purchase_cost", Numeric: true},
			{Key: "created_at", Label: "Created", Column: "a.created_at"},
		},
		DefaultFields: []string{"name", "status", "site_name", "created_at"},
		DefaultCalcs:  []Calculation{{Op: CalcCount}},
		Joins: []Join{
			{Table: "sites", Alias: "s", On: "s.id = a.site_id"},
		},
	},
	ModelParts: {
		Name:         ModelParts,
		Table:        "parts",
		TenantColumn: "p.tenant_id",
		TimeColumn:   "p.updated_at",
		TimeFieldKey: "updated_at",
		Fields: []Field{
			{Key: "name", Label: "Name", Column: "p.name"},
			{Key: "category", Label: "Category", Column: "p.category"},
			{Key: "site_name", Label: "Site", Column: "s.name"},
			{Key: "quantity", Label: "Quantity", Column: "p.quantity", Numeric: true},
			{Key: "unit_cost", Label: "Unit Cost", Column: "p.unit_cost", Numeric: true},
			{Key: "updated_at", Label: "Updated", Column: "p.updated_at"},
		},
		DefaultFields: []string{"name", "category", "quantity", "unit_cost"},
		DefaultCalcs:  []Calculation{{Op: CalcCount}, {Op: CalcSum, Field: "quantity"}},
		Joins: []Join{
			{Table: "sites", Alias: "s", On: "s.id = p.site_id"},
		},
	},
	ModelLabor: {
		Name:         ModelLabor,
		Table:        "work_order_labor",
		TenantColumn: "l.tenant_id",
		TimeColumn:   "l.logged_at",
		TimeFieldKey: "logged_at",
		Fields: []Field{
			{Key: "user_name", Label: "Technician", Column: "u.display_name"},
			{Key: "asset_name", Label: "Asset", Column: "a.name"},
			{Key: "hours", Label: "Hours", Column: "l.hours", Numeric: true},
			{Key: "hourly_rate", Label: "Hourly Rate", Column: "l.hourly_rate", Numeric: true},
			{Key: "cost", Label: "Cost", Column: "l.cost", Numeric: true},
			{Key: "logged_at", Label: "Logged", Column: "l.logged_at"},
		},
		DefaultFields: []string{"user_name", "asset_name", "hours", "logged_at"},
		DefaultCalcs:  []Calculation{{Op: CalcSum, Field: "hours"}, {Op: CalcSum, Field: "cost"}},
		Joins: []Join{
			{Table: "users", Alias: "u", On: "u.id = l.user_id"},
			{Table: "work_orders", Alias: "w", On: "w.id = l.work_order_id"},
			{Table: "assets", Alias: "a", On: "a.id = w.asset_id"},
		},
	},
	ModelIoTEvents: {
		Name:         ModelIoTEvents,
		Table:        "sensor_readings",
		TenantColumn: "r.tenant_id",
		TimeColumn:   "r.recorded_at",
		TimeFieldKey: "recorded_at",
		Fields: []Field{
			{Key: "asset_name", Label: "Asset", Column: "a.name"},
			{Key: "metric", Label: "Metric", Column: "r.metric"},
			{Key: "value", Label: "Value", Column: "r.value", Numeric: true},
			{Key: "recorded_at", Label: "Recorded", Column: "r.recorded_at"},
		},
		DefaultFields: []string{"asset_name", "metric", "value", "recorded_at"},
		DefaultCalcs:  []Calculation{{Op: CalcCount}, {Op: CalcAvg, Field: "value"}},
		Joins: []Join{
			{Table: "assets", Alias: "a", On: "a.id = r.asset_id"},
		},
	},
}

// Lookup resolves a model name from a request. An empty name selects work
// orders; an unknown name is an invalid query.
func Lookup(name string) (*Model, error) {
	if name == "" {
		return registry[ModelWorkOrders], nil
	}
	m, ok := registry[ModelName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown report model %q", apperrors.ErrInvalidQuery, name)
	}
	return m, nil
}

// ModelNames lists the registered model names, for discovery endpoints.
func ModelNames() []string {
	names := make([]string, 0, len(registry))
	for _, m := range []ModelName{ModelWorkOrders, ModelAssets, ModelParts, ModelLabor, ModelIoTEvents} {
		if _, ok := registry[m]; ok {
			names = append(names, string(m))
		}
	}
	return names
}

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// The registry is static, so structural mistakes are programmer errors.
// Validate the whole table once at init and fail loudly.
func init() {
	for name, m := range registry {
		if m.Name != name {
			panic(fmt.Sprintf("report model %q: name mismatch", name))
		}
		if m.Table == "" || m.TenantColumn == "" || m.TimeColumn == "" {
			panic(fmt.Sprintf("report model %q: missing table metadata", name))
		}
		seen := map[string]bool{}
		for _, f := range m.Fields {
			if !keyPattern.MatchString(f.Key) {
				panic(fmt.Sprintf("report model %q: invalid field key %q", name, f.Key))
			}
			if seen[f.Key] {
				panic(fmt.Sprintf("report model %q: duplicate field key %q", name, f.Key))
			}
			seen[f.Key] = true
			if f.Column == "" || f.Label == "" {
				panic(fmt.Sprintf("report model %q: field %q missing column or label", name, f.Key))
			}
		}
		if _, ok := m.Field(m.TimeFieldKey); !ok {
			panic(fmt.Sprintf("report model %q: time field %q not in field table", name, m.TimeFieldKey))
		}
		for _, key := range m.DefaultFields {
			if !seen[key] {
				panic(fmt.Sprintf("report model %q: default field %q not in field table", name, key))
			}
		}
		for _, c := range m.DefaultCalcs {
			if c.Op == CalcCount {
				continue
			}
			f, ok := m.Field(c.Field)
			if !ok || !f.Numeric {
				panic(fmt.Sprintf("report model %q: default calculation %s on non-numeric field %q", name, c.Op, c.Field))
			}
		}
	}
}
