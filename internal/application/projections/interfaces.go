package projections

import (
	"context"

	storeProgram "caretrack/internal/adapters/storage/program"
	"caretrack/internal/domain/program"
)

// ProgramReader loads program definitions.
type ProgramReader interface {
	GetByID(ctx context.Context, id string) (program.Program, error)
	List(ctx context.Context) ([]program.Program, error)
}

// ProgramDataReader loads submitted data rows.
type ProgramDataReader interface {
	ListData(ctx context.Context, filter storeProgram.DataFilter) ([]program.DataRow, error)
	CountData(ctx context.Context, programID string) (int, error)
	GetData(ctx context.Context, programID, rowID string) (program.DataRow, error)
}

// ProgramStore is the read side of the program store used by reports.
type ProgramStore interface {
	ProgramReader
	ProgramDataReader
}
