package program

import (
	"regexp"
	"strings"
	"time"
)

// FieldType is the declared type of a program field.
type FieldType string

// Field type constants
const (
	TypeText   FieldType = "text"
	TypeNumber FieldType = "number"
	TypeDate   FieldType = "date"
)

// ValidTypes contains all valid field types.
var ValidTypes = []FieldType{TypeText, TypeNumber, TypeDate}

// DateColumn is the machine name of the synthetic date field every program owns.
// It anchors time-windowed aggregation.
const DateColumn = "date_column"

// DateColumnLabel is the label of the synthetic date field.
const DateColumnLabel = "Date"

// DateLayout is the storage and wire format for date values.
const DateLayout = "2006-01-02"

// Max length constants for user-editable fields.
const (
	MaxNameLength      = 120
	MaxFieldNameLength = 64
	MaxLabelLength     = 120
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Program is a user-defined data-collection schema.
type Program struct {
	ID          string
	Name        string
	Description string // markdown
	CreatedAt   time.Time
	CreatedBy   string
	Fields      []Field // ascending Order
}

// Field is one named, typed column within a Program's schema.
type Field struct {
	ID        string
	ProgramID string
	Name      string
	Label     string
	Type      FieldType
	Required  bool
	Order     int
}

// FieldSpec describes a field requested by the caller when defining a program.
type FieldSpec struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
}

// NewProgramInput carries the data needed to build a Program.
type NewProgramInput struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
	Fields      []FieldSpec
}

// NewProgram builds a validated Program with the synthetic date_column first.
// PRE: newID returns a unique identifier on every call
// POST: Fields[0] is date_column/date/required/order 0; supplied fields follow with order index+1
// INVARIANT: a caller-supplied date_column spec is dropped in favour of the synthetic one
func NewProgram(input NewProgramInput, newID func() string) (Program, error) {
	p := Program{
		ID:          input.ID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   input.CreatedAt,
		CreatedBy:   input.CreatedBy,
	}
	if err := p.Validate(); err != nil {
		return Program{}, err
	}

	p.Fields = append(p.Fields, Field{
		ID:        newID(),
		ProgramID: p.ID,
		Name:      DateColumn,
		Label:     DateColumnLabel,
		Type:      TypeDate,
		Required:  true,
		Order:     0,
	})

	kept := 0
	for _, spec := range input.Fields {
		if strings.TrimSpace(spec.Name) == DateColumn {
			continue
		}
		kept++
		f, err := spec.toField(p.ID, newID(), kept)
		if err != nil {
			return Program{}, err
		}
		if p.HasField(f.Name) {
			return Program{}, &ValidationError{Field: f.Label, Value: f.Name, Message: "field name is already used in this program"}
		}
		p.Fields = append(p.Fields, f)
	}
	return p, nil
}

// Validate checks the program-level attributes.
// PRE: Program struct is populated
// POST: Returns nil if valid, *ValidationError otherwise
func (p *Program) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return &ValidationError{Field: "Name", Message: "program name cannot be empty"}
	}
	if len(name) > MaxNameLength {
		return &ValidationError{Field: "Name", Value: name, Message: "program name is too long"}
	}
	return nil
}

// NewField builds the next field appended to an existing program.
// PRE: p.Fields is in ascending Order
// POST: Returned field has Order = max(Order)+1
func (p *Program) NewField(spec FieldSpec, id string) (Field, error) {
	if strings.TrimSpace(spec.Name) == DateColumn {
		return Field{}, &ValidationError{Field: DateColumnLabel, Value: DateColumn, Message: "date_column is managed automatically"}
	}
	next := 0
	for _, f := range p.Fields {
		if f.Order >= next {
			next = f.Order + 1
		}
	}
	f, err := spec.toField(p.ID, id, next)
	if err != nil {
		return Field{}, err
	}
	if p.HasField(f.Name) {
		return Field{}, &ValidationError{Field: f.Label, Value: f.Name, Message: "field name is already used in this program"}
	}
	return f, nil
}

// HasField reports whether the program owns a field with the given machine name.
func (p *Program) HasField(name string) bool {
	_, ok := p.FieldByName(name)
	return ok
}

// FieldByName returns the field with the given machine name.
func (p *Program) FieldByName(name string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// NumericFields returns the number-typed fields in ascending order.
func (p *Program) NumericFields() []Field {
	var out []Field
	for _, f := range p.Fields {
		if f.Type == TypeNumber {
			out = append(out, f)
		}
	}
	return out
}

// HasNumericFields reports whether the program can contribute to numeric reports.
func (p *Program) HasNumericFields() bool {
	return len(p.NumericFields()) > 0
}

func (s FieldSpec) toField(programID, id string, order int) (Field, error) {
	name := strings.TrimSpace(s.Name)
	label := strings.TrimSpace(s.Label)
	if label == "" {
		label = name
	}
	if name == "" {
		return Field{}, &ValidationError{Field: label, Message: "field name cannot be empty"}
	}
	if len(name) > MaxFieldNameLength || !fieldNamePattern.MatchString(name) {
		return Field{}, &ValidationError{Field: label, Value: name, Message: "field name must start with a letter or underscore and contain only letters, digits and underscores"}
	}
	if len(label) > MaxLabelLength {
		return Field{}, &ValidationError{Field: name, Value: label, Message: "field label is too long"}
	}
	if !IsValidType(s.Type) {
		return Field{}, &ValidationError{Field: label, Value: string(s.Type), Message: "field type must be one of: text, number, date"}
	}
	return Field{
		ID:        id,
		ProgramID: programID,
		Name:      name,
		Label:     label,
		Type:      s.Type,
		Required:  s.Required,
		Order:     order,
	}, nil
}

// IsValidType reports whether t is a supported field type.
func IsValidType(t FieldType) bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}
