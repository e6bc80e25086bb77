package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"caretrack/internal/domain/program"
)

var fixedNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func defineScholarships(t *testing.T, store *mockProgramStore) string {
	t.Helper()
	id, err := ExecuteDefineProgram(context.Background(), DefineProgramInput{
		Name:      "Scholarships",
		CreatorID: "admin-1",
		Fields: []program.FieldSpec{
			{Name: "amount", Label: "Amount", Type: program.TypeNumber, Required: true},
			{Name: "name", Type: program.TypeText},
		},
	}, DefineProgramDeps{ProgramStore: store, GenerateID: sequence("id"), Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatalf("ExecuteDefineProgram() error = %v", err)
	}
	return id
}

func TestExecuteDefineProgram(t *testing.T) {
	store := newMockProgramStore()
	id := defineScholarships(t, store)

	p := store.programs[id]
	if p.CreatedBy != "admin-1" || !p.CreatedAt.Equal(fixedNow) {
		t.Errorf("program = %+v", p)
	}
	if len(p.Fields) != 3 {
		t.Fatalf("len(Fields) = %d, want 3", len(p.Fields))
	}
	if f := p.Fields[0]; f.Name != program.DateColumn || f.Type != program.TypeDate || !f.Required || f.Order != 0 {
		t.Errorf("Fields[0] = %+v, want date_column", f)
	}
	if p.Fields[1].Order != 1 || p.Fields[2].Order != 2 {
		t.Errorf("orders = %d, %d, want 1, 2", p.Fields[1].Order, p.Fields[2].Order)
	}
}

func TestExecuteDefineProgram_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input DefineProgramInput
	}{
		{name: "empty name", input: DefineProgramInput{Name: "  "}},
		{name: "bad type", input: DefineProgramInput{Name: "X", Fields: []program.FieldSpec{{Name: "a", Type: "money"}}}},
		{name: "bad machine name", input: DefineProgramInput{Name: "X", Fields: []program.FieldSpec{{Name: "two words", Type: program.TypeText}}}},
		{name: "duplicate field", input: DefineProgramInput{Name: "X", Fields: []program.FieldSpec{{Name: "a", Type: program.TypeText}, {Name: "a", Type: program.TypeNumber}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockProgramStore()
			_, err := ExecuteDefineProgram(context.Background(), tt.input, DefineProgramDeps{ProgramStore: store})
			if !program.IsValidation(err) {
				t.Errorf("error = %v, want validation error", err)
			}
			if len(store.programs) != 0 {
				t.Error("program stored despite validation error")
			}
		})
	}
}

func TestExecuteDefineProgram_DuplicateName(t *testing.T) {
	store := newMockProgramStore()
	defineScholarships(t, store)
	_, err := ExecuteDefineProgram(context.Background(), DefineProgramInput{Name: "Scholarships"}, DefineProgramDeps{ProgramStore: store})
	if !program.IsValidation(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestExecuteSubmitData(t *testing.T) {
	store := newMockProgramStore()
	id := defineScholarships(t, store)
	deps := SubmitDataDeps{ProgramStore: store, GenerateRowID: sequence("row"), Now: func() time.Time { return fixedNow }}

	rowID, err := ExecuteSubmitData(context.Background(), SubmitDataInput{
		ProgramID: id,
		Raw:       map[string]string{"date_column": "2024-01-05", "amount": " 100 ", "name": "A", "extra": "ignored"},
		CreatorID: "staff-1",
	}, deps)
	if err != nil {
		t.Fatalf("ExecuteSubmitData() error = %v", err)
	}
	if rowID != "row-1" {
		t.Errorf("rowID = %q, want row-1", rowID)
	}
	rows := store.rows[id]
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	got := rows[0]
	if n, ok := got.Values["amount"].Number(); !ok || n != 100 {
		t.Errorf("amount = %v, want 100", got.Values["amount"])
	}
	if _, ok := got.Values["extra"]; ok {
		t.Error("unknown key was stored")
	}
	if got.CreatedBy != "staff-1" || !got.CreatedAt.Equal(fixedNow) {
		t.Errorf("row metadata = %+v", got)
	}
}

func TestExecuteSubmitData_DefaultDateFollowsClockZone(t *testing.T) {
	store := newMockProgramStore()
	id := defineScholarships(t, store)
	// 23:30 on 31 March west of Greenwich is already 1 April in UTC.
	west := time.FixedZone("UTC-5", -5*60*60)
	lateEvening := time.Date(2024, 3, 31, 23, 30, 0, 0, west)
	deps := SubmitDataDeps{ProgramStore: store, GenerateRowID: sequence("row"), Now: func() time.Time { return lateEvening }}

	if _, err := ExecuteSubmitData(context.Background(), SubmitDataInput{
		ProgramID: id,
		Raw:       map[string]string{"amount": "5", "name": "A"},
	}, deps); err != nil {
		t.Fatalf("ExecuteSubmitData() error = %v", err)
	}
	got := store.rows[id][0]
	d, ok := got.Values[program.DateColumn].Date()
	if !ok || d.Format(program.DateLayout) != "2024-03-31" {
		t.Errorf("date_column = %v, want 2024-03-31", got.Values[program.DateColumn])
	}
	if got.CreatedAt.Location() != time.UTC || !got.CreatedAt.Equal(lateEvening) {
		t.Errorf("CreatedAt = %v, want %v in UTC", got.CreatedAt, lateEvening)
	}
}

func TestExecuteSubmitData_Errors(t *testing.T) {
	store := newMockProgramStore()
	id := defineScholarships(t, store)
	deps := SubmitDataDeps{ProgramStore: store}

	t.Run("missing required field writes nothing", func(t *testing.T) {
		_, err := ExecuteSubmitData(context.Background(), SubmitDataInput{ProgramID: id, Raw: map[string]string{"name": "A"}}, deps)
		var ve *program.ValidationError
		if !errors.As(err, &ve) || ve.Field != "Amount" {
			t.Errorf("error = %v, want validation error naming Amount", err)
		}
		if len(store.rows[id]) != 0 {
			t.Error("row written despite error")
		}
	})

	t.Run("non-numeric amount", func(t *testing.T) {
		_, err := ExecuteSubmitData(context.Background(), SubmitDataInput{ProgramID: id, Raw: map[string]string{"amount": "abc"}}, deps)
		var ve *program.ValidationError
		if !errors.As(err, &ve) || ve.Value != "abc" {
			t.Errorf("error = %v, want validation error with raw value", err)
		}
	})

	t.Run("unknown program", func(t *testing.T) {
		_, err := ExecuteSubmitData(context.Background(), SubmitDataInput{ProgramID: "missing"}, deps)
		if !program.IsNotFound(err) {
			t.Errorf("error = %v, want not found", err)
		}
	})
}

func TestExecuteSubmitData_UsesCurrentSchema(t *testing.T) {
	store := newMockProgramStore()
	id := defineScholarships(t, store)
	ctx := context.Background()

	_, err := ExecuteAddField(ctx, AddFieldInput{ProgramID: id, Spec: program.FieldSpec{Name: "hours", Type: program.TypeNumber, Required: true}},
		UpdateProgramDeps{ProgramStore: store, GenerateID: sequence("f")})
	if err != nil {
		t.Fatalf("ExecuteAddField() error = %v", err)
	}

	_, err = ExecuteSubmitData(ctx, SubmitDataInput{ProgramID: id, Raw: map[string]string{"amount": "1"}}, SubmitDataDeps{ProgramStore: store})
	if !program.IsValidation(err) {
		t.Errorf("error = %v, want validation error for the new required field", err)
	}
}

func TestExecuteAddField(t *testing.T) {
	store := newMockProgramStore()
	id := defineScholarships(t, store)
	deps := UpdateProgramDeps{ProgramStore: store, GenerateID: sequence("f")}
	ctx := context.Background()

	f, err := ExecuteAddField(ctx, AddFieldInput{ProgramID: id, Spec: program.FieldSpec{Name: "school", Type: program.TypeText}}, deps)
	if err != nil {
		t.Fatalf("ExecuteAddField() error = %v", err)
	}
	if f.Order != 3 || f.ID != "f-1" {
		t.Errorf("field = %+v, want order 3 id f-1", f)
	}

	for _, name := range []string{"school", program.DateColumn} {
		if _, err := ExecuteAddField(ctx, AddFieldInput{ProgramID: id, Spec: program.FieldSpec{Name: name, Type: program.TypeText}}, deps); !program.IsValidation(err) {
			t.Errorf("AddField(%s) error = %v, want validation error", name, err)
		}
	}
	if _, err := ExecuteAddField(ctx, AddFieldInput{ProgramID: "missing", Spec: program.FieldSpec{Name: "x", Type: program.TypeText}}, deps); !program.IsNotFound(err) {
		t.Errorf("AddField(missing program) error = %v, want not found", err)
	}
}

func TestExecuteUpdateProgram(t *testing.T) {
	store := newMockProgramStore()
	id := defineScholarships(t, store)
	deps := UpdateProgramDeps{ProgramStore: store}
	ctx := context.Background()

	if err := ExecuteUpdateProgram(ctx, UpdateProgramInput{ProgramID: id, Name: " Bursaries ", Description: "Funds for *books*"}, deps); err != nil {
		t.Fatalf("ExecuteUpdateProgram() error = %v", err)
	}
	p := store.programs[id]
	if p.Name != "Bursaries" || p.Description != "Funds for *books*" || len(p.Fields) != 3 {
		t.Errorf("program = %+v", p)
	}
	if err := ExecuteUpdateProgram(ctx, UpdateProgramInput{ProgramID: id, Name: ""}, deps); !program.IsValidation(err) {
		t.Errorf("empty name error = %v, want validation error", err)
	}
	if err := ExecuteUpdateProgram(ctx, UpdateProgramInput{ProgramID: "missing", Name: "X"}, deps); !program.IsNotFound(err) {
		t.Errorf("missing program error = %v, want not found", err)
	}
}

func TestExecuteDeleteProgram(t *testing.T) {
	store := newMockProgramStore()
	id := defineScholarships(t, store)
	ctx := context.Background()
	ExecuteSubmitData(ctx, SubmitDataInput{ProgramID: id, Raw: map[string]string{"amount": "5"}}, SubmitDataDeps{ProgramStore: store})

	deps := DeleteProgramDeps{ProgramStore: store}
	if err := ExecuteDeleteProgram(ctx, DeleteProgramInput{ProgramID: id}, deps); err != nil {
		t.Fatalf("ExecuteDeleteProgram() error = %v", err)
	}
	if len(store.rows[id]) != 0 {
		t.Error("rows survived program deletion")
	}
	if err := ExecuteDeleteProgram(ctx, DeleteProgramInput{ProgramID: id}, deps); !program.IsNotFound(err) {
		t.Errorf("second delete error = %v, want not found", err)
	}
}

func TestExecuteDeleteData(t *testing.T) {
	store := newMockProgramStore()
	id := defineScholarships(t, store)
	deps := SubmitDataDeps{ProgramStore: store}
	ctx := context.Background()

	rowID, _ := ExecuteSubmitData(ctx, SubmitDataInput{ProgramID: id, Raw: map[string]string{"amount": "5"}}, deps)
	if len(rowID) != 26 {
		t.Errorf("default row id %q is not a ULID", rowID)
	}
	if err := ExecuteDeleteData(ctx, DeleteDataInput{ProgramID: id, RowID: rowID}, deps); err != nil {
		t.Fatalf("ExecuteDeleteData() error = %v", err)
	}
	if err := ExecuteDeleteData(ctx, DeleteDataInput{ProgramID: id, RowID: rowID}, deps); !program.IsNotFound(err) {
		t.Errorf("second delete error = %v, want not found", err)
	}
}
