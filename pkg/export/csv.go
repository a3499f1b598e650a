// Package export renders report results to downloadable formats. Result
// cells are already normalized to scalars, so writers never branch on value
// types beyond string conversion.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/machinaops/machina-engine/pkg/reporting"
)

// WriteCSV writes the result as CSV with a header row of column labels.
func WriteCSV(w io.Writer, result *reporting.Result) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col.Label
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i, col := range result.Columns {
			record[i] = cellString(row[col.Key])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
