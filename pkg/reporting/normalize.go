package reporting

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the fixed textual representation dates take in result rows.
const DateLayout = "2006-01-02 15:04"

// normalizeValue flattens a storage value into a scalar the result contract
// allows. The case set is closed: dates, identifier-like scalars, primitives,
// and a diagnostic string for everything else. No row value ever stays a
// structured type.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t.UTC().Format(DateLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(DateLayout)
	case uuid.UUID:
		return t.String()
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// normalizeRow normalizes every value of a row in place.
func normalizeRow(row map[string]any) {
	for k, v := range row {
		row[k] = normalizeValue(v)
	}
}

// round2 rounds numeric calculation outputs to two decimal places for
// display stability.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// roundCalcOutputs rounds every accumulator output in a row that came back
// as a float.
func roundCalcOutputs(row map[string]any, accs []Accumulator) {
	for _, acc := range accs {
		if f, ok := row[acc.Key].(float64); ok {
			row[acc.Key] = round2(f)
		}
	}
}
