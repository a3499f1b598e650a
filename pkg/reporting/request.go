package reporting

import "time"

// Op is a filter operator accepted by the report query contract.
type Op string

const (
	OpEquals    Op = "eq"
	OpNotEquals Op = "neq"
	OpIn        Op = "in"
	OpContains  Op = "contains"
	OpGte       Op = "gte"
	OpLte       Op = "lte"
)

// validOps is the closed operator set; anything else invalidates the filter.
var validOps = map[Op]bool{
	OpEquals:    true,
	OpNotEquals: true,
	OpIn:        true,
	OpContains:  true,
	OpGte:       true,
	OpLte:       true,
}

// CalcOp is an aggregate operation accepted by the report query contract.
type CalcOp string

const (
	CalcCount CalcOp = "count"
	CalcSum   CalcOp = "sum"
	CalcAvg   CalcOp = "avg"
)

// Filter constrains rows by one field. Filters on fields the model does not
// recognize are silently dropped.
type Filter struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

// Calculation is one aggregate to compute, per group when grouping is
// requested. Sum and avg require a numeric field known to the model; a
// violation is a hard error rather than a silent drop.
type Calculation struct {
	Op    CalcOp `json:"op"`
	Field string `json:"field,omitempty"`
	Alias string `json:"alias,omitempty"`
}

// Request is the declarative report query a caller submits. The zero value
// of Model selects work orders; a zero Limit gets DefaultLimit.
type Request struct {
	Model        string        `json:"model,omitempty"`
	Fields       []string      `json:"fields,omitempty"`
	Filters      []Filter      `json:"filters,omitempty"`
	GroupBy      []string      `json:"group_by,omitempty"`
	Calculations []Calculation `json:"calculations,omitempty"`
	StartDate    *time.Time    `json:"start_date,omitempty"`
	EndDate      *time.Time    `json:"end_date,omitempty"`
	Limit        int           `json:"limit,omitempty"`
}

const (
	// DefaultLimit applies when a request does not specify a result size.
	DefaultLimit = 250
	// MaxLimit is the hard cap on result size regardless of the request.
	MaxLimit = 1000
)

// Column describes one output column of a report result.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Result is the uniform tabular contract every report execution produces.
// Row values are always scalar: string, number, or nil. Downstream CSV, XLSX
// and PDF serializers rely on that and do no per-type branching.
type Result struct {
	Columns      []Column         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	Total        int              `json:"total"`
	GroupBy      []string         `json:"group_by"`
	Filters      []Filter         `json:"filters"`
	Calculations []Calculation    `json:"calculations"`
}
