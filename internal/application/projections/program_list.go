package projections

import (
	"context"

	"caretrack/internal/domain/program"
)

// ProgramSummary is one line of the program index.
type ProgramSummary struct {
	Program    program.Program
	FieldCount int
	RowCount   int
	Reportable bool // has at least one numeric field
}

// ProgramListDeps holds dependencies for QueryProgramList.
type ProgramListDeps struct {
	ProgramStore ProgramStore
}

// QueryProgramList lists every program with its row count.
// POST: Programs are ordered by creation time, fields in ascending order
func QueryProgramList(ctx context.Context, deps ProgramListDeps) ([]ProgramSummary, error) {
	programs, err := deps.ProgramStore.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProgramSummary, 0, len(programs))
	for _, p := range programs {
		n, err := deps.ProgramStore.CountData(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ProgramSummary{
			Program:    p,
			FieldCount: len(p.Fields),
			RowCount:   n,
			Reportable: p.HasNumericFields(),
		})
	}
	return out, nil
}
