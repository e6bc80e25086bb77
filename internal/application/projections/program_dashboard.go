package projections

import (
	"context"
	"time"

	"caretrack/internal/application/listutil"
	"caretrack/internal/domain/program"
	"caretrack/internal/domain/report"
)

// DefaultDashboardPageSize is the number of programs charted per dashboard page.
const DefaultDashboardPageSize = 2

// ProgramDashboardQuery selects a dashboard page and reporting window.
type ProgramDashboardQuery struct {
	Page   int
	Period string
	Start  string
	End    string
}

// DashboardProgram is one charted program.
type DashboardProgram struct {
	Program program.Program
	Series  []report.Series
}

// ProgramDashboardResult carries one page of charted programs.
type ProgramDashboardResult struct {
	Programs   []DashboardProgram
	Period     string
	Window     report.Range
	Page       int
	TotalPages int // 0 when no program has a numeric field
	Eligible   int
}

// ProgramDashboardDeps holds dependencies for QueryProgramDashboard.
type ProgramDashboardDeps struct {
	ProgramStore ProgramStore
	PageSize     int
	Now          func() time.Time
}

// QueryProgramDashboard charts the programs that own at least one numeric field.
// PRE: none; Page < 1 is treated as 1
// POST: Programs holds at most PageSize entries in creation order;
// TotalPages = ceil(eligible / PageSize); a page past the end is empty
func QueryProgramDashboard(ctx context.Context, query ProgramDashboardQuery, deps ProgramDashboardDeps) (ProgramDashboardResult, error) {
	pageSize := deps.PageSize
	if pageSize < 1 {
		pageSize = DefaultDashboardPageSize
	}
	page := query.Page
	if page < 1 {
		page = 1
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	window, err := report.ResolvePeriod(query.Period, query.Start, query.End, now())
	if err != nil {
		return ProgramDashboardResult{}, err
	}

	all, err := deps.ProgramStore.List(ctx)
	if err != nil {
		return ProgramDashboardResult{}, err
	}
	var eligible []program.Program
	for _, p := range all {
		if p.HasNumericFields() {
			eligible = append(eligible, p)
		}
	}

	period := query.Period
	if period == "" {
		period = report.PeriodThisMonth
	}
	result := ProgramDashboardResult{
		Programs:   []DashboardProgram{},
		Period:     period,
		Window:     window,
		Page:       page,
		TotalPages: listutil.PageCount(len(eligible), pageSize),
		Eligible:   len(eligible),
	}

	if page > result.TotalPages {
		return result, nil
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(eligible) {
		end = len(eligible)
	}
	for _, p := range eligible[start:end] {
		series, err := programSeries(ctx, deps.ProgramStore, p, window)
		if err != nil {
			return ProgramDashboardResult{}, err
		}
		result.Programs = append(result.Programs, DashboardProgram{Program: p, Series: series})
	}
	return result, nil
}
