package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/machinaops/machina-engine/pkg/database"
)

// PostgresSource is the SQL translation layer for report plans. It relies on
// the tenant-scoped connection carried in the request context and still adds
// an explicit tenant predicate, so scoping holds even without RLS.
type PostgresSource struct{}

// NewPostgresSource creates the Postgres report source.
func NewPostgresSource() *PostgresSource {
	return &PostgresSource{}
}

var _ Source = (*PostgresSource)(nil)

func (s *PostgresSource) Fetch(ctx context.Context, tenantID uuid.UUID, p *Projection) ([]map[string]any, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql, args := buildProjectionSQL(tenantID, p)
	rows, err := scope.Conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report rows: %w", err)
	}
	defer rows.Close()

	keys := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		keys[i] = f.Key
	}
	return collectRows(rows.Next, rows.Values, rows.Err, keys)
}

func (s *PostgresSource) Aggregate(ctx context.Context, tenantID uuid.UUID, a *Aggregation) ([]map[string]any, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	sql, args := buildAggregationSQL(tenantID, a)
	rows, err := scope.Conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate report rows: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0, len(a.GroupFields)+len(a.Accumulators))
	for _, f := range a.GroupFields {
		keys = append(keys, f.Key)
	}
	for _, acc := range a.Accumulators {
		keys = append(keys, acc.Key)
	}
	return collectRows(rows.Next, rows.Values, rows.Err, keys)
}

func collectRows(next func() bool, values func() ([]any, error), rowsErr func() error, keys []string) ([]map[string]any, error) {
	var out []map[string]any
	for next() {
		vals, err := values()
		if err != nil {
			return nil, fmt.Errorf("failed to read report row: %w", err)
		}
		row := make(map[string]any, len(keys))
		for i, key := range keys {
			if i < len(vals) {
				row[key] = vals[i]
			}
		}
		out = append(out, row)
	}
	if err := rowsErr(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}
	return out, nil
}

// buildProjectionSQL translates a flat projection plan into a parameterized
// SELECT. Column and alias identifiers come from the static registry, never
// from the request, so only values are parameterized.
func buildProjectionSQL(tenantID uuid.UUID, p *Projection) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	for i, f := range p.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s AS %s", f.Column, f.Key)
	}
	writeFromClause(&sb, p.Model, p.Fields, p.Filters)
	args = writeWhereClause(&sb, p.Model, tenantID, p.Filters, p.StartDate, p.EndDate)

	fmt.Fprintf(&sb, " ORDER BY %s DESC", p.Model.TimeColumn)
	args = append(args, p.Limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	return sb.String(), args
}

// buildAggregationSQL translates a grouped aggregation plan into a
// parameterized SELECT … GROUP BY.
func buildAggregationSQL(tenantID uuid.UUID, a *Aggregation) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	written := 0
	for _, f := range a.GroupFields {
		if written > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s AS %s", f.Column, f.Key)
		written++
	}
	for _, acc := range a.Accumulators {
		if written > 0 {
			sb.WriteString(", ")
		}
		switch acc.Op {
		case CalcCount:
			fmt.Fprintf(&sb, "COUNT(*) AS %s", acc.Key)
		case CalcSum:
			fmt.Fprintf(&sb, "COALESCE(SUM(%s), 0)::float8 AS %s", acc.Column, acc.Key)
		case CalcAvg:
			fmt.Fprintf(&sb, "COALESCE(AVG(%s), 0)::float8 AS %s", acc.Column, acc.Key)
		}
		written++
	}

	var fieldRefs []Field
	fieldRefs = append(fieldRefs, a.GroupFields...)
	for _, acc := range a.Accumulators {
		if acc.Column != "" {
			fieldRefs = append(fieldRefs, Field{Column: acc.Column})
		}
	}
	writeFromClause(&sb, a.Model, fieldRefs, a.Filters)
	args = writeWhereClause(&sb, a.Model, tenantID, a.Filters, a.StartDate, a.EndDate)

	if len(a.GroupFields) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, f := range a.GroupFields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Column)
		}
		sb.WriteString(" ORDER BY ")
		for i := range a.GroupFields {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%d", i+1)
		}
	}

	args = append(args, a.Limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	return sb.String(), args
}

// writeFromClause emits the FROM clause plus only the joins the referenced
// columns actually need. Joins whose aliases bridge to a needed join are
// pulled in transitively.
func writeFromClause(sb *strings.Builder, model *Model, fields []Field, filters []ResolvedFilter) {
	alias := tableAlias(model.TenantColumn)
	fmt.Fprintf(sb, " FROM %s %s", model.Table, alias)

	needed := map[string]bool{}
	mark := func(column string) {
		if i := strings.IndexByte(column, '.'); i > 0 && column[:i] != alias {
			needed[column[:i]] = true
		}
	}
	for _, f := range fields {
		mark(f.Column)
	}
	for _, f := range filters {
		mark(f.Column)
	}

	// Transitive closure over join dependencies.
	for changed := true; changed; {
		changed = false
		for _, j := range model.Joins {
			if !needed[j.Alias] {
				continue
			}
			for _, dep := range model.Joins {
				if dep.Alias != j.Alias && !needed[dep.Alias] && strings.Contains(j.On, dep.Alias+".") {
					needed[dep.Alias] = true
					changed = true
				}
			}
		}
	}

	for _, j := range model.Joins {
		if needed[j.Alias] {
			fmt.Fprintf(sb, " LEFT JOIN %s %s ON %s", j.Table, j.Alias, j.On)
		}
	}
}

func tableAlias(tenantColumn string) string {
	if i := strings.IndexByte(tenantColumn, '.'); i > 0 {
		return tenantColumn[:i]
	}
	return "t"
}

// writeWhereClause emits the tenant predicate first, then the date range and
// request filters, and returns the accumulated args.
func writeWhereClause(sb *strings.Builder, model *Model, tenantID uuid.UUID, filters []ResolvedFilter, start, end *time.Time) []any {
	args := []any{tenantID}
	fmt.Fprintf(sb, " WHERE %s = $1", model.TenantColumn)

	if start != nil {
		args = append(args, *start)
		fmt.Fprintf(sb, " AND %s >= $%d", model.TimeColumn, len(args))
	}
	if end != nil {
		args = append(args, *end)
		fmt.Fprintf(sb, " AND %s <= $%d", model.TimeColumn, len(args))
	}

	for _, f := range filters {
		switch f.Op {
		case OpEquals:
			args = append(args, f.Value)
			fmt.Fprintf(sb, " AND %s = $%d", f.Column, len(args))
		case OpNotEquals:
			args = append(args, f.Value)
			fmt.Fprintf(sb, " AND %s <> $%d", f.Column, len(args))
		case OpIn:
			args = append(args, inList(f.Value))
			fmt.Fprintf(sb, " AND %s = ANY($%d)", f.Column, len(args))
		case OpContains:
			args = append(args, fmt.Sprintf("%%%v%%", f.Value))
			fmt.Fprintf(sb, " AND %s ILIKE $%d", f.Column, len(args))
		case OpGte:
			args = append(args, f.Value)
			fmt.Fprintf(sb, " AND %s >= $%d", f.Column, len(args))
		case OpLte:
			args = append(args, f.Value)
			fmt.Fprintf(sb, " AND %s <= $%d", f.Column, len(args))
		}
	}
	return args
}

// inList coerces an in-list filter value to a string slice for ANY().
// JSON-decoded request bodies deliver lists as []any.
func inList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = fmt.Sprintf("%v", e)
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}
