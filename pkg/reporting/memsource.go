package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MemorySource executes report plans against in-memory record sets. It
// implements the same Source contract as the Postgres translation layer, so
// validation and defaulting logic can be tested without a live store.
// Rows are keyed by field key; each row must carry a "tenant_id" uuid.UUID.
type MemorySource struct {
	Records map[ModelName][]map[string]any
	// Err, when set, is returned by every call. Simulates a store failure.
	Err error
}

// NewMemorySource creates an empty in-memory report source.
func NewMemorySource() *MemorySource {
	return &MemorySource{Records: map[ModelName][]map[string]any{}}
}

var _ Source = (*MemorySource)(nil)

// Add appends a record to a model's in-memory set.
func (s *MemorySource) Add(model ModelName, row map[string]any) {
	s.Records[model] = append(s.Records[model], row)
}

func (s *MemorySource) Fetch(_ context.Context, tenantID uuid.UUID, p *Projection) ([]map[string]any, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	matched := s.match(p.Model, tenantID, p.Filters, p.StartDate, p.EndDate)
	sort.SliceStable(matched, func(i, j int) bool {
		ti, iOK := matched[i][p.Model.TimeFieldKey].(time.Time)
		tj, jOK := matched[j][p.Model.TimeFieldKey].(time.Time)
		if !iOK || !jOK {
			return false
		}
		return ti.After(tj)
	})

	var out []map[string]any
	for _, rec := range matched {
		if len(out) >= p.Limit {
			break
		}
		row := make(map[string]any, len(p.Fields))
		for _, f := range p.Fields {
			row[f.Key] = rec[f.Key]
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *MemorySource) Aggregate(_ context.Context, tenantID uuid.UUID, a *Aggregation) ([]map[string]any, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	matched := s.match(a.Model, tenantID, a.Filters, a.StartDate, a.EndDate)

	type group struct {
		keys   map[string]any
		counts map[string]int
		sums   map[string]float64
	}
	groups := map[string]*group{}
	var order []string

	for _, rec := range matched {
		var idParts []string
		keys := map[string]any{}
		for _, f := range a.GroupFields {
			keys[f.Key] = rec[f.Key]
			idParts = append(idParts, fmt.Sprintf("%v", rec[f.Key]))
		}
		id := strings.Join(idParts, "\x00")
		g, ok := groups[id]
		if !ok {
			g = &group{keys: keys, counts: map[string]int{}, sums: map[string]float64{}}
			groups[id] = g
			order = append(order, id)
		}
		for _, acc := range a.Accumulators {
			switch acc.Op {
			case CalcCount:
				g.counts[acc.Key]++
			case CalcSum, CalcAvg:
				g.counts[acc.Key]++
				g.sums[acc.Key] += toFloat(rec[acc.Field])
			}
		}
	}

	sort.Strings(order)
	var out []map[string]any
	for _, id := range order {
		if len(out) >= a.Limit {
			break
		}
		g := groups[id]
		row := make(map[string]any, len(g.keys)+len(a.Accumulators))
		for k, v := range g.keys {
			row[k] = v
		}
		for _, acc := range a.Accumulators {
			switch acc.Op {
			case CalcCount:
				row[acc.Key] = g.counts[acc.Key]
			case CalcSum:
				row[acc.Key] = g.sums[acc.Key]
			case CalcAvg:
				if g.counts[acc.Key] == 0 {
					row[acc.Key] = float64(0)
				} else {
					row[acc.Key] = g.sums[acc.Key] / float64(g.counts[acc.Key])
				}
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *MemorySource) match(model *Model, tenantID uuid.UUID, filters []ResolvedFilter, start, end *time.Time) []map[string]any {
	var out []map[string]any
	for _, rec := range s.Records[model.Name] {
		if tid, ok := rec["tenant_id"].(uuid.UUID); !ok || tid != tenantID {
			continue
		}
		if !inRange(rec[model.TimeFieldKey], start, end) {
			continue
		}
		ok := true
		for _, f := range filters {
			if !matchFilter(rec[f.Key], f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}

func inRange(v any, start, end *time.Time) bool {
	if start == nil && end == nil {
		return true
	}
	t, ok := v.(time.Time)
	if !ok {
		return false
	}
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

func matchFilter(v any, f ResolvedFilter) bool {
	switch f.Op {
	case OpEquals:
		return fmt.Sprintf("%v", v) == fmt.Sprintf("%v", f.Value)
	case OpNotEquals:
		return fmt.Sprintf("%v", v) != fmt.Sprintf("%v", f.Value)
	case OpIn:
		for _, e := range inList(f.Value) {
			if fmt.Sprintf("%v", v) == e {
				return true
			}
		}
		return false
	case OpContains:
		s, ok := v.(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(fmt.Sprintf("%v", f.Value)))
	case OpGte:
		return toFloat(v) >= toFloat(f.Value)
	case OpLte:
		return toFloat(v) <= toFloat(f.Value)
	}
	return false
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	}
	return 0
}
