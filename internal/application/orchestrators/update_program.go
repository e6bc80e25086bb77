package orchestrators

import (
	"context"
	"log/slog"
	"strings"

	"caretrack/internal/domain/program"
)

// ProgramStoreForUpdate defines the store interface needed by UpdateProgram and AddField.
type ProgramStoreForUpdate interface {
	GetByID(ctx context.Context, id string) (program.Program, error)
	UpdateDetails(ctx context.Context, id, name, description string) error
	AddField(ctx context.Context, f program.Field) error
}

// UpdateProgramInput carries the new name and description.
type UpdateProgramInput struct {
	ProgramID   string
	Name        string
	Description string
	ActorID     string
}

// UpdateProgramDeps holds dependencies for UpdateProgram and AddField.
type UpdateProgramDeps struct {
	ProgramStore ProgramStoreForUpdate
	GenerateID   func() string
}

// ExecuteUpdateProgram replaces a program's name and description. Fields are not touched.
// PRE: ProgramID is non-empty
// POST: Name and description updated; last writer wins
func ExecuteUpdateProgram(ctx context.Context, input UpdateProgramInput, deps UpdateProgramDeps) error {
	p := program.Program{
		ID:          input.ProgramID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := deps.ProgramStore.UpdateDetails(ctx, p.ID, p.Name, p.Description); err != nil {
		return err
	}
	slog.Info("program_event", "event", "updated", "program_id", p.ID, "name", p.Name, "by", input.ActorID)
	return nil
}

// AddFieldInput carries the field to append.
type AddFieldInput struct {
	ProgramID string
	Spec      program.FieldSpec
	ActorID   string
}

// ExecuteAddField appends a field after the program's current last field.
// PRE: ProgramID is non-empty
// POST: Field persisted with order max+1; existing rows simply lack the new key
func ExecuteAddField(ctx context.Context, input AddFieldInput, deps UpdateProgramDeps) (program.Field, error) {
	p, err := deps.ProgramStore.GetByID(ctx, input.ProgramID)
	if err != nil {
		return program.Field{}, err
	}
	f, err := p.NewField(input.Spec, generateID(deps.GenerateID))
	if err != nil {
		return program.Field{}, err
	}
	if err := deps.ProgramStore.AddField(ctx, f); err != nil {
		return program.Field{}, err
	}
	slog.Info("program_event", "event", "field_added", "program_id", p.ID, "field", f.Name, "type", f.Type, "by", input.ActorID)
	return f, nil
}
