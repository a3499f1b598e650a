package reporting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Source is a storage backend the report builder can execute plans against.
// Implementations must scope every read to the given tenant; scoping is
// never the caller's responsibility.
type Source interface {
	// Fetch runs a flat projection and returns one map per row, keyed by
	// field key, sorted descending by the model's time field.
	Fetch(ctx context.Context, tenantID uuid.UUID, p *Projection) ([]map[string]any, error)
	// Aggregate runs a grouped aggregation and returns one map per group,
	// keyed by group field keys and accumulator keys.
	Aggregate(ctx context.Context, tenantID uuid.UUID, a *Aggregation) ([]map[string]any, error)
}

// Execute validates the request, runs it against the source, and normalizes
// the result into the uniform tabular contract. Validation failures surface
// before the source is touched.
func Execute(ctx context.Context, src Source, tenantID uuid.UUID, req *Request) (*Result, error) {
	plan, err := BuildPlan(req)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if plan.Aggregation != nil {
		rows, err = src.Aggregate(ctx, tenantID, plan.Aggregation)
		if err != nil {
			return nil, fmt.Errorf("failed to run report aggregation: %w", err)
		}
		for _, row := range rows {
			roundCalcOutputs(row, plan.Aggregation.Accumulators)
			normalizeRow(row)
		}
	} else {
		rows, err = src.Fetch(ctx, tenantID, plan.Projection)
		if err != nil {
			return nil, fmt.Errorf("failed to run report query: %w", err)
		}
		for _, row := range rows {
			normalizeRow(row)
		}
	}

	if rows == nil {
		rows = []map[string]any{}
	}
	groupBy := plan.GroupBy
	if groupBy == nil {
		groupBy = []string{}
	}
	calcs := plan.Calculations
	if calcs == nil {
		calcs = []Calculation{}
	}

	return &Result{
		Columns:      plan.Columns,
		Rows:         rows,
		Total:        len(rows),
		GroupBy:      groupBy,
		Filters:      plan.Filters,
		Calculations: calcs,
	}, nil
}
