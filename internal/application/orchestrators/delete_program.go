package orchestrators

import (
	"context"
	"log/slog"
)

// ProgramStoreForDelete defines the store interface needed by DeleteProgram.
type ProgramStoreForDelete interface {
	Delete(ctx context.Context, id string) error
}

// DeleteProgramInput carries input for the orchestrator.
type DeleteProgramInput struct {
	ProgramID string
	ActorID   string
}

// DeleteProgramDeps holds dependencies for DeleteProgram.
type DeleteProgramDeps struct {
	ProgramStore ProgramStoreForDelete
}

// ExecuteDeleteProgram removes a program with all of its fields and data rows.
// PRE: ProgramID is non-empty
// POST: Nothing references the program; an absent program returns an error wrapping program.ErrNotFound
func ExecuteDeleteProgram(ctx context.Context, input DeleteProgramInput, deps DeleteProgramDeps) error {
	if err := deps.ProgramStore.Delete(ctx, input.ProgramID); err != nil {
		return err
	}
	slog.Info("program_event", "event", "deleted", "program_id", input.ProgramID, "by", input.ActorID)
	return nil
}
