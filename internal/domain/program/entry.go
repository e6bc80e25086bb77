package program

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DataRow is one submitted record. Values are already coerced and are never
// re-validated once stored.
type DataRow struct {
	ID        string
	ProgramID string
	Values    Values
	CreatedAt time.Time
	CreatedBy string
}

// Coerce validates a raw submission against the program's current fields and
// returns the typed values to store.
// PRE: p.Fields is in ascending Order
// POST: Returns values keyed only by current field names, or the first *ValidationError
// INVARIANT: raw keys that are not fields are ignored; nothing is partially returned on error
func (p *Program) Coerce(raw map[string]string, now time.Time) (Values, error) {
	out := make(Values, len(p.Fields))
	for _, f := range p.Fields {
		v, present, err := f.coerce(raw[f.Name], now)
		if err != nil {
			return nil, err
		}
		if present {
			out[f.Name] = v
		}
	}
	return out, nil
}

// coerce converts one raw value. present is false when nothing should be stored.
func (f Field) coerce(raw string, now time.Time) (Value, bool, error) {
	raw = strings.TrimSpace(raw)

	if raw == "" {
		if f.Name == DateColumn {
			return Date(now), true, nil
		}
		if f.Required {
			return Value{}, false, &ValidationError{Field: f.Label, Message: "this field is required"}
		}
		if f.Type == TypeNumber {
			return Number(0), true, nil
		}
		return Value{}, false, nil
	}

	switch f.Type {
	case TypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return Value{}, false, &ValidationError{Field: f.Label, Value: raw, Message: "must be a number"}
		}
		return Number(n), true, nil
	case TypeDate:
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			return Value{}, false, &ValidationError{Field: f.Label, Value: raw, Message: "must be a date in YYYY-MM-DD format"}
		}
		return Date(d), true, nil
	default:
		return Text(raw), true, nil
	}
}

// EffectiveDate places the row on the reporting timeline.
// The date_column value wins when it holds a date; otherwise the creation
// timestamp is used, which keeps rows written before date_column existed in
// reports.
func (r DataRow) EffectiveDate() time.Time {
	if d, ok := r.dateColumn(); ok {
		return d
	}
	return civilDate(r.CreatedAt)
}

// dateColumn is the first step of effective-date resolution.
func (r DataRow) dateColumn() (time.Time, bool) {
	v, ok := r.Values[DateColumn]
	if !ok {
		return time.Time{}, false
	}
	if d, ok := v.Date(); ok {
		return d, true
	}
	// Untyped legacy documents carry the date as text.
	if v.Kind() == TypeText {
		d, err := time.Parse(DateLayout, strings.TrimSpace(v.String()))
		if err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
