package projections

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	storeProgram "caretrack/internal/adapters/storage/program"
	"caretrack/internal/domain/program"
)

// mockProgramStore serves seeded programs and rows.
type mockProgramStore struct {
	programs  []program.Program
	rows      map[string][]program.DataRow
	listErr   error
	dataReads int
}

func (m *mockProgramStore) GetByID(_ context.Context, id string) (program.Program, error) {
	for _, p := range m.programs {
		if p.ID == id {
			return p, nil
		}
	}
	return program.Program{}, fmt.Errorf("program %s: %w", id, program.ErrNotFound)
}

func (m *mockProgramStore) List(_ context.Context) ([]program.Program, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.programs, nil
}

func (m *mockProgramStore) ListData(_ context.Context, filter storeProgram.DataFilter) ([]program.DataRow, error) {
	m.dataReads++
	rows := append([]program.DataRow(nil), m.rows[filter.ProgramID]...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if filter.Limit <= 0 {
		return rows, nil
	}
	if filter.Offset >= len(rows) {
		return nil, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[filter.Offset:end], nil
}

func (m *mockProgramStore) GetData(_ context.Context, programID, rowID string) (program.DataRow, error) {
	for _, r := range m.rows[programID] {
		if r.ID == rowID {
			return r, nil
		}
	}
	return program.DataRow{}, fmt.Errorf("data row %s: %w", rowID, program.ErrNotFound)
}

func (m *mockProgramStore) CountData(_ context.Context, programID string) (int, error) {
	return len(m.rows[programID]), nil
}

// buildProgram defines a program with the given id, name and field specs.
func buildProgram(t *testing.T, id, name string, specs ...program.FieldSpec) program.Program {
	t.Helper()
	n := 0
	p, err := program.NewProgram(program.NewProgramInput{ID: id, Name: name, Fields: specs}, func() string {
		n++
		return fmt.Sprintf("%s-f%d", id, n)
	})
	if err != nil {
		t.Fatalf("NewProgram(%s) error = %v", name, err)
	}
	return p
}

// submit coerces raw values the way submissions do and returns the stored row.
func submit(t *testing.T, p program.Program, id string, raw map[string]string, at time.Time) program.DataRow {
	t.Helper()
	vals, err := p.Coerce(raw, at)
	if err != nil {
		t.Fatalf("Coerce(%v) error = %v", raw, err)
	}
	return program.DataRow{ID: id, ProgramID: p.ID, Values: vals, CreatedAt: at, CreatedBy: "u1"}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
