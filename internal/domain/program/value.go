package program

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value is a typed data-row value: Number, Text or Date.
// The zero Value is an empty Text.
type Value struct {
	kind FieldType
	num  float64
	text string
	date time.Time
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: TypeNumber, num: f} }

// Text returns a text Value.
func Text(s string) Value { return Value{kind: TypeText, text: s} }

// Date returns a date Value truncated to the calendar day.
func Date(t time.Time) Value {
	return Value{kind: TypeDate, date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// Kind returns the value's tag.
func (v Value) Kind() FieldType {
	if v.kind == "" {
		return TypeText
	}
	return v.kind
}

// Number returns the numeric payload; ok is false for non-number values.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == TypeNumber
}

// Date returns the date payload; ok is false for non-date values.
func (v Value) Date() (time.Time, bool) {
	return v.date, v.kind == TypeDate
}

// String renders the value the way it is shown in tables and CSV exports.
func (v Value) String() string {
	switch v.Kind() {
	case TypeNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case TypeDate:
		return v.date.Format(DateLayout)
	default:
		return v.text
	}
}

// AsFloat coerces the value to a number for aggregation.
// Numbers pass through; text is parsed (rows written before values were typed
// store numbers as text); anything else contributes 0.
// INVARIANT: never fails
func (v Value) AsFloat() float64 {
	switch v.Kind() {
	case TypeNumber:
		return v.num
	case TypeText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Equal reports whether two values carry the same tag and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case TypeNumber:
		return v.num == o.num
	case TypeDate:
		return v.date.Equal(o.date)
	default:
		return v.text == o.text
	}
}

type taggedValue struct {
	Type  FieldType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value as {"type": ..., "value": ...}.
// Dates are encoded as YYYY-MM-DD text.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.Kind() {
	case TypeNumber:
		payload = v.num
	case TypeDate:
		payload = v.date.Format(DateLayout)
	default:
		payload = v.text
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedValue{Type: v.Kind(), Value: raw})
}

// UnmarshalJSON decodes the tagged form. Bare JSON strings and numbers are
// accepted as Text and Number so untyped legacy documents still load.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Text("")
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '{':
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
		*v = Number(f)
		return nil
	}

	var tv taggedValue
	if err := json.Unmarshal(data, &tv); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	switch tv.Type {
	case TypeNumber:
		var f float64
		if err := json.Unmarshal(tv.Value, &f); err != nil {
			return fmt.Errorf("decode number value: %w", err)
		}
		*v = Number(f)
	case TypeDate:
		var s string
		if err := json.Unmarshal(tv.Value, &s); err != nil {
			return fmt.Errorf("decode date value: %w", err)
		}
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return fmt.Errorf("decode date value: %w", err)
		}
		*v = Date(d)
	case TypeText, "":
		var s string
		if err := json.Unmarshal(tv.Value, &s); err != nil {
			return fmt.Errorf("decode text value: %w", err)
		}
		*v = Text(s)
	default:
		return fmt.Errorf("decode value: unknown type %q", tv.Type)
	}
	return nil
}

// Values maps field machine names to typed values.
type Values map[string]Value
