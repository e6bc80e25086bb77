package projections

import (
	"context"
	"time"

	"caretrack/internal/application/listutil"
	storeProgram "caretrack/internal/adapters/storage/program"
	"caretrack/internal/domain/program"
)

// ProgramDataQuery selects one page of a program's data rows.
type ProgramDataQuery struct {
	ProgramID string
	Page      int
	PerPage   int
}

// DataRowView is a data row laid out against the program's current fields.
type DataRowView struct {
	ID        string
	CreatedAt time.Time
	CreatedBy string
	Cells     []string // one per current field, ascending order; "" when absent
	Values    program.Values
}

// ProgramDataResult carries a page of rows, newest first.
type ProgramDataResult struct {
	Program program.Program
	Rows    []DataRowView
	Page    listutil.PageInfo
}

// ProgramDataDeps holds dependencies for QueryProgramData.
type ProgramDataDeps struct {
	ProgramStore ProgramStore
}

// QueryProgramData returns a page of rows for the data table.
// PRE: query.ProgramID is non-empty
// POST: Rows are newest first; cells follow the current field order so rows
// written before a field was added show an empty cell
func QueryProgramData(ctx context.Context, query ProgramDataQuery, deps ProgramDataDeps) (ProgramDataResult, error) {
	p, err := deps.ProgramStore.GetByID(ctx, query.ProgramID)
	if err != nil {
		return ProgramDataResult{}, err
	}

	total, err := deps.ProgramStore.CountData(ctx, p.ID)
	if err != nil {
		return ProgramDataResult{}, err
	}
	info := listutil.NewPageInfo(query.Page, query.PerPage, total)

	rows, err := deps.ProgramStore.ListData(ctx, storeProgram.DataFilter{
		ProgramID: p.ID,
		Limit:     info.PerPage,
		Offset:    info.Offset(),
	})
	if err != nil {
		return ProgramDataResult{}, err
	}

	views := make([]DataRowView, 0, len(rows))
	for _, r := range rows {
		views = append(views, newDataRowView(p, r))
	}
	return ProgramDataResult{Program: p, Rows: views, Page: info}, nil
}

func newDataRowView(p program.Program, r program.DataRow) DataRowView {
	cells := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		if v, ok := r.Values[f.Name]; ok {
			cells[i] = v.String()
		}
	}
	return DataRowView{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		CreatedBy: r.CreatedBy,
		Cells:     cells,
		Values:    r.Values,
	}
}

// DataRowQuery names one stored row.
type DataRowQuery struct {
	ProgramID string
	RowID     string
}

// QueryDataRow returns one row laid out against the program's current fields.
// POST: program.ErrNotFound when either the program or the row is missing
func QueryDataRow(ctx context.Context, query DataRowQuery, deps ProgramDataDeps) (program.Program, DataRowView, error) {
	p, err := deps.ProgramStore.GetByID(ctx, query.ProgramID)
	if err != nil {
		return program.Program{}, DataRowView{}, err
	}
	row, err := deps.ProgramStore.GetData(ctx, p.ID, query.RowID)
	if err != nil {
		return program.Program{}, DataRowView{}, err
	}
	return p, newDataRowView(p, row), nil
}
