package reporting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	id := uuid.MustParse("f6a7c2de-1111-4222-8333-944445555666")

	tests := []struct {
		name     string
		in       any
		expected any
	}{
		{"nil passes through", nil, nil},
		{"time formats to fixed layout", ts, "2025-03-14 09:26"},
		{"time pointer formats", &ts, "2025-03-14 09:26"},
		{"nil time pointer", (*time.Time)(nil), nil},
		{"uuid to string", id, id.String()},
		{"string unchanged", "pump-4", "pump-4"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"float64 unchanged", 3.5, 3.5},
		{"float32 widened", float32(2), float64(2)},
		{"int unchanged", 7, 7},
		{"int64 unchanged", int64(9), int64(9)},
		{"bytes to string", []byte("abc"), "abc"},
		{"structured value stringified", []string{"a", "b"}, "[a b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeValue(tt.in))
		})
	}
}

func TestRoundCalcOutputs(t *testing.T) {
	row := map[string]any{
		"avg_hours": 2.66666666,
		"count_0":   3,
		"status":    "completed",
	}
	roundCalcOutputs(row, []Accumulator{
		{Key: "avg_hours", Op: CalcAvg},
		{Key: "count_0", Op: CalcCount},
	})

	assert.Equal(t, 2.67, row["avg_hours"])
	assert.Equal(t, 3, row["count_0"])
	assert.Equal(t, "completed", row["status"])
}
