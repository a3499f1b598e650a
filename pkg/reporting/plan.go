package reporting

import (
	"fmt"
	"time"

	"github.com/machinaops/machina-engine/pkg/apperrors"
)

// ResolvedFilter is a validated filter with its storage column resolved.
// Key survives so the in-memory source can evaluate without column paths.
type ResolvedFilter struct {
	Key    string
	Column string
	Op     Op
	Value  any
}

// Accumulator is one named aggregate computed within each group. Key is the
// stable output key the value appears under in result rows.
type Accumulator struct {
	Key    string
	Op     CalcOp
	Field  string
	Column string
}

// Aggregation is the backend-agnostic grouped-query plan: group keys plus
// named accumulators. Each storage backend has one translation layer for it.
type Aggregation struct {
	Model        *Model
	GroupFields  []Field
	Accumulators []Accumulator
	Filters      []ResolvedFilter
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
}

// Projection is the backend-agnostic flat-fetch plan: selected fields only,
// sorted descending by the model's default time field.
type Projection struct {
	Model     *Model
	Fields    []Field
	Filters   []ResolvedFilter
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// Plan is a validated, executable form of a report request. Exactly one of
// Aggregation or Projection is set.
type Plan struct {
	Model        *Model
	Aggregation  *Aggregation
	Projection   *Projection
	Columns      []Column
	GroupBy      []string
	Filters      []Filter
	Calculations []Calculation
	Limit        int
}

// BuildPlan validates a request against the model registry and produces an
// executable plan. Validation failures are reported before any store access:
// sum and avg require a field the model recognizes as numeric, and that is a
// hard error. Unknown filter, field, and group-by names are dropped silently.
func BuildPlan(req *Request) (*Plan, error) {
	model, err := Lookup(req.Model)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	filters := resolveFilters(model, req.Filters)

	var groupFields []Field
	var groupKeys []string
	for _, key := range req.GroupBy {
		f, ok := model.Field(key)
		if !ok {
			continue
		}
		groupFields = append(groupFields, f)
		groupKeys = append(groupKeys, key)
	}

	calcs := req.Calculations
	if len(groupFields) > 0 && len(calcs) == 0 {
		calcs = model.DefaultCalcs
	}

	accs, err := resolveCalculations(model, calcs)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Model:        model,
		GroupBy:      groupKeys,
		Filters:      echoFilters(filters),
		Calculations: calcs,
		Limit:        limit,
	}

	if len(groupFields) > 0 || len(accs) > 0 {
		plan.Aggregation = &Aggregation{
			Model:        model,
			GroupFields:  groupFields,
			Accumulators: accs,
			Filters:      filters,
			StartDate:    req.StartDate,
			EndDate:      req.EndDate,
			Limit:        limit,
		}
		for _, f := range groupFields {
			plan.Columns = append(plan.Columns, Column{Key: f.Key, Label: f.Label})
		}
		for i, acc := range accs {
			plan.Columns = append(plan.Columns, Column{Key: acc.Key, Label: calcLabel(model, calcs[i])})
		}
		return plan, nil
	}

	fields := resolveFields(model, req.Fields)
	plan.Projection = &Projection{
		Model:     model,
		Fields:    fields,
		Filters:   filters,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Limit:     limit,
	}
	for _, f := range fields {
		plan.Columns = append(plan.Columns, Column{Key: f.Key, Label: f.Label})
	}
	return plan, nil
}

func resolveFilters(model *Model, filters []Filter) []ResolvedFilter {
	var out []ResolvedFilter
	for _, flt := range filters {
		f, ok := model.Field(flt.Field)
		if !ok || !validOps[flt.Op] {
			continue
		}
		out = append(out, ResolvedFilter{Key: f.Key, Column: f.Column, Op: flt.Op, Value: flt.Value})
	}
	return out
}

func resolveFields(model *Model, keys []string) []Field {
	var out []Field
	for _, key := range keys {
		if f, ok := model.Field(key); ok {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		for _, key := range model.DefaultFields {
			f, _ := model.Field(key)
			out = append(out, f)
		}
	}
	return out
}

// resolveCalculations assigns every calculation a stable output key: the
// alias when given, else op_field, else op_index.
func resolveCalculations(model *Model, calcs []Calculation) ([]Accumulator, error) {
	var out []Accumulator
	for i, c := range calcs {
		acc := Accumulator{Op: c.Op, Field: c.Field}
		switch c.Op {
		case CalcCount:
			// count needs no field
		case CalcSum, CalcAvg:
			if c.Field == "" {
				return nil, fmt.Errorf("%w: %s calculation requires a field", apperrors.ErrInvalidQuery, c.Op)
			}
			f, ok := model.Field(c.Field)
			if !ok {
				return nil, fmt.Errorf("%w: %s calculation references unknown field %q", apperrors.ErrInvalidQuery, c.Op, c.Field)
			}
			if !f.Numeric {
				return nil, fmt.Errorf("%w: %s calculation requires a numeric field, %q is not", apperrors.ErrInvalidQuery, c.Op, c.Field)
			}
			acc.Column = f.Column
		default:
			return nil, fmt.Errorf("%w: unknown calculation operation %q", apperrors.ErrInvalidQuery, c.Op)
		}
		switch {
		case c.Alias != "":
			acc.Key = c.Alias
		case c.Field != "":
			acc.Key = fmt.Sprintf("%s_%s", c.Op, c.Field)
		default:
			acc.Key = fmt.Sprintf("%s_%d", c.Op, i)
		}
		out = append(out, acc)
	}
	return out, nil
}

func calcLabel(model *Model, c Calculation) string {
	if c.Alias != "" {
		return c.Alias
	}
	if c.Op == CalcCount {
		return "Count"
	}
	label := c.Field
	if f, ok := model.Field(c.Field); ok {
		label = f.Label
	}
	switch c.Op {
	case CalcSum:
		return "Sum of " + label
	case CalcAvg:
		return "Avg of " + label
	}
	return string(c.Op)
}

// echoFilters returns the filters that survived validation in request form,
// so the result reports exactly what was applied.
func echoFilters(filters []ResolvedFilter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		out = append(out, Filter{Field: f.Key, Op: f.Op, Value: f.Value})
	}
	return out
}
