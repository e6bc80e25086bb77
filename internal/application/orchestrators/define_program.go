package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"caretrack/internal/domain/program"
)

// ProgramStoreForDefine defines the store interface needed by DefineProgram.
type ProgramStoreForDefine interface {
	Create(ctx context.Context, p program.Program) error
}

// DefineProgramInput carries input for the orchestrator.
type DefineProgramInput struct {
	Name        string
	Description string
	CreatorID   string
	Fields      []program.FieldSpec
}

// DefineProgramDeps holds dependencies for DefineProgram.
type DefineProgramDeps struct {
	ProgramStore ProgramStoreForDefine
	GenerateID   func() string    // defaults to uuid
	Now          func() time.Time // defaults to time.Now
}

// ExecuteDefineProgram creates a program and its fields.
// PRE: CreatorID identifies the signed-in account
// POST: Program persisted with date_column at order 0 and supplied fields at order index+1
// INVARIANT: program and fields are written in one transaction; a duplicate name is a *program.ValidationError
func ExecuteDefineProgram(ctx context.Context, input DefineProgramInput, deps DefineProgramDeps) (string, error) {
	newID := deps.GenerateID
	if newID == nil {
		newID = uuid.NewString
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	p, err := program.NewProgram(program.NewProgramInput{
		ID:          newID(),
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   input.CreatorID,
		CreatedAt:   now().UTC(),
		Fields:      input.Fields,
	}, newID)
	if err != nil {
		return "", err
	}

	if err := deps.ProgramStore.Create(ctx, p); err != nil {
		return "", err
	}

	slog.Info("program_event", "event", "defined", "program_id", p.ID, "name", p.Name, "fields", len(p.Fields), "by", input.CreatorID)
	return p.ID, nil
}
