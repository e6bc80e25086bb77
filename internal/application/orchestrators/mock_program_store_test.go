package orchestrators

import (
	"context"
	"fmt"
	"sort"

	"caretrack/internal/domain/program"
)

// mockProgramStore is an in-memory program store for orchestrator tests.
type mockProgramStore struct {
	programs  map[string]program.Program
	rows      map[string][]program.DataRow
	createErr error
	insertErr error
	inserts   int
}

func newMockProgramStore() *mockProgramStore {
	return &mockProgramStore{
		programs: make(map[string]program.Program),
		rows:     make(map[string][]program.DataRow),
	}
}

func (m *mockProgramStore) Create(_ context.Context, p program.Program) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.programs {
		if existing.Name == p.Name {
			return &program.ValidationError{Field: "Name", Value: p.Name, Message: "a program with this name already exists"}
		}
	}
	m.programs[p.ID] = p
	return nil
}

func (m *mockProgramStore) GetByID(_ context.Context, id string) (program.Program, error) {
	p, ok := m.programs[id]
	if !ok {
		return program.Program{}, fmt.Errorf("program %s: %w", id, program.ErrNotFound)
	}
	return p, nil
}

func (m *mockProgramStore) UpdateDetails(_ context.Context, id, name, description string) error {
	p, ok := m.programs[id]
	if !ok {
		return fmt.Errorf("program %s: %w", id, program.ErrNotFound)
	}
	p.Name, p.Description = name, description
	m.programs[id] = p
	return nil
}

func (m *mockProgramStore) AddField(_ context.Context, f program.Field) error {
	p, ok := m.programs[f.ProgramID]
	if !ok {
		return fmt.Errorf("program %s: %w", f.ProgramID, program.ErrNotFound)
	}
	p.Fields = append(p.Fields, f)
	sort.Slice(p.Fields, func(i, j int) bool { return p.Fields[i].Order < p.Fields[j].Order })
	m.programs[f.ProgramID] = p
	return nil
}

func (m *mockProgramStore) Delete(_ context.Context, id string) error {
	if _, ok := m.programs[id]; !ok {
		return fmt.Errorf("program %s: %w", id, program.ErrNotFound)
	}
	delete(m.programs, id)
	delete(m.rows, id)
	return nil
}

func (m *mockProgramStore) InsertData(_ context.Context, rows ...program.DataRow) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, r := range rows {
		if _, ok := m.programs[r.ProgramID]; !ok {
			return fmt.Errorf("program %s: %w", r.ProgramID, program.ErrNotFound)
		}
	}
	m.inserts++
	for _, r := range rows {
		m.rows[r.ProgramID] = append(m.rows[r.ProgramID], r)
	}
	return nil
}

func (m *mockProgramStore) DeleteData(_ context.Context, programID, rowID string) error {
	rows := m.rows[programID]
	for i, r := range rows {
		if r.ID == rowID {
			m.rows[programID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("data row %s: %w", rowID, program.ErrNotFound)
}

// sequence returns an ID generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
