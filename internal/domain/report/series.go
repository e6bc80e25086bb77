package report

import (
	"sort"
	"time"

	"caretrack/internal/domain/program"
)

// Point is one chart point: the summed value of a field on one effective date.
type Point struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// Series is the chart-ready aggregate of one numeric field.
type Series struct {
	Field  string  `json:"field"`
	Label  string  `json:"label"`
	Points []Point `json:"points"`
	Total  float64 `json:"total"`
}

// Aggregate sums every numeric field of p across the rows whose effective
// date falls in window.
// PRE: rows belong to p
// POST: One Series per numeric field with at least one contributing row, in field order;
// points are ascending by date, one per distinct effective date
// INVARIANT: unparsable values contribute 0; aggregation never fails
func Aggregate(p program.Program, rows []program.DataRow, window Range) []Series {
	fields := p.NumericFields()
	if len(fields) == 0 {
		return []Series{}
	}

	type bucket struct {
		date  time.Time
		sums  map[string]float64
		count map[string]int
	}
	buckets := make(map[time.Time]*bucket)

	for _, r := range rows {
		eff := r.EffectiveDate()
		if !window.Contains(eff) {
			continue
		}
		b, ok := buckets[eff]
		if !ok {
			b = &bucket{date: eff, sums: make(map[string]float64), count: make(map[string]int)}
			buckets[eff] = b
		}
		for _, f := range fields {
			v, ok := r.Values[f.Name]
			if !ok {
				continue
			}
			b.sums[f.Name] += v.AsFloat()
			b.count[f.Name]++
		}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].date.Before(ordered[j].date) })

	out := make([]Series, 0, len(fields))
	for _, f := range fields {
		s := Series{Field: f.Name, Label: f.Label, Points: []Point{}}
		for _, b := range ordered {
			if b.count[f.Name] == 0 {
				continue
			}
			s.Points = append(s.Points, Point{Date: b.date.Format(program.DateLayout), Value: b.sums[f.Name]})
			s.Total += b.sums[f.Name]
		}
		if len(s.Points) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}
