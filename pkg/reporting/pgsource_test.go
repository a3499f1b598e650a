package reporting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPlan(t *testing.T, req *Request) *Plan {
	t.Helper()
	plan, err := BuildPlan(req)
	require.NoError(t, err)
	return plan
}

func TestBuildProjectionSQL_DefaultFields(t *testing.T) {
	tenantID := uuid.New()
	plan := mustPlan(t, &Request{})

	sql, args := buildProjectionSQL(tenantID, plan.Projection)

	assert.Contains(t, sql, "SELECT w.status AS status")
	assert.Contains(t, sql, "FROM work_orders w")
	assert.Contains(t, sql, "LEFT JOIN assets a ON a.id = w.asset_id")
	assert.NotContains(t, sql, "LEFT JOIN sites")
	assert.NotContains(t, sql, "LEFT JOIN users")
	assert.Contains(t, sql, "WHERE w.tenant_id = $1")
	assert.Contains(t, sql, "ORDER BY w.created_at DESC")
	assert.Contains(t, sql, "LIMIT $2")

	require.Len(t, args, 2)
	assert.Equal(t, tenantID, args[0])
	assert.Equal(t, DefaultLimit, args[1])
}

func TestBuildProjectionSQL_TimeRangeAndFilters(t *testing.T) {
	tenantID := uuid.New()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	plan := mustPlan(t, &Request{
		Fields:    []string{"status"},
		StartDate: &start,
		EndDate:   &end,
		Filters: []Filter{
			{Field: "status", Op: OpIn, Value: []any{"completed", "cancelled"}},
			{Field: "asset_name", Op: OpContains, Value: "pump"},
			{Field: "time_spent_min", Op: OpGte, Value: 30},
		},
	})

	sql, args := buildProjectionSQL(tenantID, plan.Projection)

	assert.Contains(t, sql, "w.created_at >= $2")
	assert.Contains(t, sql, "w.created_at <= $3")
	assert.Contains(t, sql, "w.status = ANY($4)")
	assert.Contains(t, sql, "a.name ILIKE $5")
	assert.Contains(t, sql, "w.time_spent_min >= $6")

	require.Len(t, args, 7)
	assert.Equal(t, []string{"completed", "cancelled"}, args[3])
	assert.Equal(t, "%pump%", args[4])
}

func TestBuildProjectionSQL_FilterPullsJoinIn(t *testing.T) {
	plan := mustPlan(t, &Request{
		Fields:  []string{"status"},
		Filters: []Filter{{Field: "site_name", Op: OpEquals, Value: "Plant 7"}},
	})

	sql, _ := buildProjectionSQL(uuid.New(), plan.Projection)
	assert.Contains(t, sql, "LEFT JOIN sites s ON s.id = w.site_id")
}

func TestBuildAggregationSQL_GroupedCalcs(t *testing.T) {
	tenantID := uuid.New()
	plan := mustPlan(t, &Request{
		GroupBy: []string{"status"},
		Calculations: []Calculation{
			{Op: CalcCount},
			{Op: CalcSum, Field: "time_spent_min"},
			{Op: CalcAvg, Field: "parts_cost", Alias: "avg_cost"},
		},
	})

	sql, args := buildAggregationSQL(tenantID, plan.Aggregation)

	assert.Contains(t, sql, "SELECT w.status AS status")
	assert.Contains(t, sql, "COUNT(*) AS count_0")
	assert.Contains(t, sql, "COALESCE(SUM(w.time_spent_min), 0)::float8 AS sum_time_spent_min")
	assert.Contains(t, sql, "COALESCE(AVG(w.parts_cost), 0)::float8 AS avg_cost")
	assert.Contains(t, sql, "GROUP BY w.status")
	assert.Contains(t, sql, "ORDER BY 1")
	assert.Contains(t, sql, "LIMIT $2")

	require.Len(t, args, 2)
	assert.Equal(t, tenantID, args[0])
}

func TestBuildAggregationSQL_LaborBridgesJoins(t *testing.T) {
	// asset_name on labor resolves through work_orders, so both joins must
	// appear even though only one alias is referenced directly.
	plan := mustPlan(t, &Request{
		Model:   string(ModelLabor),
		GroupBy: []string{"asset_name"},
	})

	sql, _ := buildAggregationSQL(uuid.New(), plan.Aggregation)

	assert.Contains(t, sql, "FROM work_order_labor l")
	assert.Contains(t, sql, "LEFT JOIN work_orders w ON w.id = l.work_order_id")
	assert.Contains(t, sql, "LEFT JOIN assets a ON a.id = w.asset_id")
	assert.NotContains(t, sql, "LEFT JOIN users")
}

func TestInList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, inList([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "1"}, inList([]any{"a", 1}))
	assert.Equal(t, []string{"solo"}, inList("solo"))
}
