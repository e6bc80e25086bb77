package program

import (
	"context"

	domain "caretrack/internal/domain/program"
)

// Store persists programs, their fields and their data rows.
// Multi-statement writes run in a single transaction.
type Store interface {
	Create(ctx context.Context, p domain.Program) error
	GetByID(ctx context.Context, id string) (domain.Program, error)
	List(ctx context.Context) ([]domain.Program, error)
	UpdateDetails(ctx context.Context, id, name, description string) error
	AddField(ctx context.Context, f domain.Field) error
	Delete(ctx context.Context, id string) error

	InsertData(ctx context.Context, rows ...domain.DataRow) error
	GetData(ctx context.Context, programID, rowID string) (domain.DataRow, error)
	ListData(ctx context.Context, filter DataFilter) ([]domain.DataRow, error)
	CountData(ctx context.Context, programID string) (int, error)
	DeleteData(ctx context.Context, programID, rowID string) error
}

// DataFilter carries filtering parameters for ListData.
// A non-positive Limit returns every row of the program.
type DataFilter struct {
	ProgramID string
	Limit     int
	Offset    int
}
