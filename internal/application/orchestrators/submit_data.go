package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"caretrack/internal/domain/program"
)

// ProgramStoreForData defines the store interface needed by the data-entry orchestrators.
type ProgramStoreForData interface {
	GetByID(ctx context.Context, id string) (program.Program, error)
	InsertData(ctx context.Context, rows ...program.DataRow) error
	DeleteData(ctx context.Context, programID, rowID string) error
}

// SubmitDataInput carries one raw submission keyed by field machine name.
type SubmitDataInput struct {
	ProgramID string
	Raw       map[string]string
	CreatorID string
}

// SubmitDataDeps holds dependencies for SubmitData, DeleteData and ImportProgramData.
type SubmitDataDeps struct {
	ProgramStore  ProgramStoreForData
	GenerateRowID func() string    // defaults to ULID
	Now           func() time.Time // defaults to time.Now
}

// now keeps the clock's location so the default date_column is the same
// calendar day that report periods treat as today.
func (d SubmitDataDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// ExecuteSubmitData validates a submission against the program's current fields and stores it.
// PRE: ProgramID is non-empty
// POST: One row written with coerced values, or nothing on error
// INVARIANT: the schema is re-read on every call; stored keys are a subset of current field names
func ExecuteSubmitData(ctx context.Context, input SubmitDataInput, deps SubmitDataDeps) (string, error) {
	p, err := deps.ProgramStore.GetByID(ctx, input.ProgramID)
	if err != nil {
		return "", err
	}

	now := deps.now()
	values, err := p.Coerce(input.Raw, now)
	if err != nil {
		return "", err
	}

	row := program.DataRow{
		ID:        generateRowID(deps.GenerateRowID),
		ProgramID: p.ID,
		Values:    values,
		CreatedAt: now.UTC(),
		CreatedBy: input.CreatorID,
	}
	if err := deps.ProgramStore.InsertData(ctx, row); err != nil {
		return "", err
	}

	slog.Info("program_data_event", "event", "submitted", "program_id", p.ID, "row_id", row.ID, "by", input.CreatorID)
	return row.ID, nil
}

// DeleteDataInput identifies the row to remove.
type DeleteDataInput struct {
	ProgramID string
	RowID     string
	ActorID   string
}

// ExecuteDeleteData removes one data row.
// POST: Row removed; an absent row returns an error wrapping program.ErrNotFound
func ExecuteDeleteData(ctx context.Context, input DeleteDataInput, deps SubmitDataDeps) error {
	if err := deps.ProgramStore.DeleteData(ctx, input.ProgramID, input.RowID); err != nil {
		return err
	}
	slog.Info("program_data_event", "event", "deleted", "program_id", input.ProgramID, "row_id", input.RowID, "by", input.ActorID)
	return nil
}
