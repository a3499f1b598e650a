package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinaops/machina-engine/pkg/apperrors"
)

func day(d int) time.Time {
	return time.Date(2025, 6, d, 12, 0, 0, 0, time.UTC)
}

func seedWorkOrders(src *MemorySource, tenantID uuid.UUID) {
	rows := []map[string]any{
		{"status": "completed", "type": "corrective", "time_spent_min": 10.0, "created_at": day(1)},
		{"status": "completed", "type": "preventive", "time_spent_min": 30.0, "created_at": day(2)},
		{"status": "requested", "type": "corrective", "time_spent_min": 5.0, "created_at": day(3)},
	}
	for _, row := range rows {
		row["tenant_id"] = tenantID
		src.Add(ModelWorkOrders, row)
	}
}

func TestExecute_ProjectionSortsAndLimits(t *testing.T) {
	tenantID := uuid.New()
	src := NewMemorySource()
	seedWorkOrders(src, tenantID)

	result, err := Execute(context.Background(), src, tenantID, &Request{
		Fields: []string{"status", "created_at"},
		Limit:  2,
	})
	require.NoError(t, err)

	// Newest first, truncated at the limit.
	require.Equal(t, 2, result.Total)
	assert.Equal(t, "requested", result.Rows[0]["status"])
	assert.Equal(t, "completed", result.Rows[1]["status"])

	// Dates are normalized to the fixed layout.
	assert.Equal(t, "2025-06-03 12:00", result.Rows[0]["created_at"])
}

func TestExecute_TenantIsolation(t *testing.T) {
	tenantID := uuid.New()
	src := NewMemorySource()
	seedWorkOrders(src, tenantID)
	src.Add(ModelWorkOrders, map[string]any{
		"tenant_id": uuid.New(), "status": "completed", "created_at": day(4),
	})

	result, err := Execute(context.Background(), src, tenantID, &Request{Fields: []string{"status"}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
}

func TestExecute_TimeRangeAndFilters(t *testing.T) {
	tenantID := uuid.New()
	src := NewMemorySource()
	seedWorkOrders(src, tenantID)

	start := day(2)
	result, err := Execute(context.Background(), src, tenantID, &Request{
		Fields:    []string{"status", "type"},
		StartDate: &start,
		Filters:   []Filter{{Field: "type", Op: OpEquals, Value: "corrective"}},
	})
	require.NoError(t, err)

	require.Equal(t, 1, result.Total)
	assert.Equal(t, "requested", result.Rows[0]["status"])
	require.Len(t, result.Filters, 1)
	assert.Equal(t, "type", result.Filters[0].Field)
}

func TestExecute_GroupedAggregation(t *testing.T) {
	tenantID := uuid.New()
	src := NewMemorySource()
	seedWorkOrders(src, tenantID)

	result, err := Execute(context.Background(), src, tenantID, &Request{
		GroupBy: []string{"status"},
		Calculations: []Calculation{
			{Op: CalcCount},
			{Op: CalcSum, Field: "time_spent_min"},
			{Op: CalcAvg, Field: "time_spent_min", Alias: "avg_minutes"},
		},
	})
	require.NoError(t, err)

	require.Equal(t, 2, result.Total)

	completed := result.Rows[0]
	assert.Equal(t, "completed", completed["status"])
	assert.Equal(t, 2, completed["count_0"])
	assert.Equal(t, 40.0, completed["sum_time_spent_min"])
	assert.Equal(t, 20.0, completed["avg_minutes"])

	requested := result.Rows[1]
	assert.Equal(t, "requested", requested["status"])
	assert.Equal(t, 1, requested["count_0"])
	assert.Equal(t, 5.0, requested["sum_time_spent_min"])
	assert.Equal(t, 5.0, requested["avg_minutes"])
}

func TestExecute_ValidationRunsBeforeSourceAccess(t *testing.T) {
	src := NewMemorySource()
	src.Err = errors.New("store is down")

	_, err := Execute(context.Background(), src, uuid.New(), &Request{
		Calculations: []Calculation{{Op: CalcSum, Field: "status"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidQuery))
	assert.NotContains(t, err.Error(), "store is down")
}

func TestExecute_SourceErrorWrapped(t *testing.T) {
	src := NewMemorySource()
	src.Err = errors.New("store is down")

	_, err := Execute(context.Background(), src, uuid.New(), &Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store is down")
}

func TestExecute_EmptyResultHasNonNilCollections(t *testing.T) {
	result, err := Execute(context.Background(), NewMemorySource(), uuid.New(), &Request{})
	require.NoError(t, err)

	assert.NotNil(t, result.Rows)
	assert.NotNil(t, result.GroupBy)
	assert.NotNil(t, result.Filters)
	assert.NotNil(t, result.Calculations)
	assert.Equal(t, 0, result.Total)
}
