package projections

import (
	"context"
	"fmt"
	"time"

	storeProgram "caretrack/internal/adapters/storage/program"
	"caretrack/internal/domain/program"
	"caretrack/internal/domain/report"
)

// ProgramReportQuery selects a program and a reporting window.
type ProgramReportQuery struct {
	ProgramID string
	Period    string // this-month (default), last-3-months, this-year, custom
	Start     string // YYYY-MM-DD, custom only
	End       string // YYYY-MM-DD, custom only
}

// ProgramReportResult carries chart-ready series for one program.
type ProgramReportResult struct {
	Program program.Program
	Period  string
	Window  report.Range
	Series  []report.Series
}

// ProgramReportDeps holds dependencies for QueryProgramReport.
type ProgramReportDeps struct {
	ProgramStore ProgramStore
	Now          func() time.Time
}

func (d ProgramReportDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// QueryProgramReport sums every numeric field of a program over a period.
// PRE: query.ProgramID is non-empty
// POST: Returns one series per contributing numeric field in field order,
// program.ErrNotFound for an unknown program (checked before the period),
// or *program.ValidationError for a bad period
// INVARIANT: the program's current fields drive the report; stored rows are never rewritten
func QueryProgramReport(ctx context.Context, query ProgramReportQuery, deps ProgramReportDeps) (ProgramReportResult, error) {
	p, err := deps.ProgramStore.GetByID(ctx, query.ProgramID)
	if err != nil {
		return ProgramReportResult{}, err
	}

	window, err := report.ResolvePeriod(query.Period, query.Start, query.End, deps.now())
	if err != nil {
		return ProgramReportResult{}, err
	}

	series, err := programSeries(ctx, deps.ProgramStore, p, window)
	if err != nil {
		return ProgramReportResult{}, err
	}

	period := query.Period
	if period == "" {
		period = report.PeriodThisMonth
	}
	return ProgramReportResult{Program: p, Period: period, Window: window, Series: series}, nil
}

// programSeries aggregates all stored rows of p into the window.
// Programs without numeric fields skip the data read.
func programSeries(ctx context.Context, store ProgramDataReader, p program.Program, window report.Range) ([]report.Series, error) {
	if !p.HasNumericFields() {
		return []report.Series{}, nil
	}
	rows, err := store.ListData(ctx, storeProgram.DataFilter{ProgramID: p.ID})
	if err != nil {
		return nil, fmt.Errorf("load data for program %s: %w", p.ID, err)
	}
	return report.Aggregate(p, rows, window), nil
}
