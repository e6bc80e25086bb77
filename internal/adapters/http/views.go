package web

import (
	"net/http"
	"time"

	"caretrack/internal/adapters/http/middleware"
	"caretrack/internal/application/listutil"
	"caretrack/internal/application/projections"
	"caretrack/internal/domain/program"
	"caretrack/internal/domain/report"
)

// JSON shapes returned by the API. Domain types carry no json tags.

type fieldJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Order    int    `json:"order"`
}

type programJSON struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
	CreatedBy   string      `json:"created_by"`
	Fields      []fieldJSON `json:"fields"`
}

type programSummaryJSON struct {
	programJSON
	RowCount   int  `json:"row_count"`
	Reportable bool `json:"reportable"`
}

type dataRowJSON struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	CreatedBy string         `json:"created_by"`
	Values    program.Values `json:"values"`
}

type dataPageJSON struct {
	Program programJSON       `json:"program"`
	Rows    []dataRowJSON     `json:"rows"`
	Page    listutil.PageInfo `json:"page"`
}

type reportJSON struct {
	ProgramID string          `json:"program_id"`
	Program   string          `json:"program"`
	Period    string          `json:"period"`
	Start     string          `json:"start"`
	End       string          `json:"end"`
	Series    []report.Series `json:"series"`
}

type dashboardProgramJSON struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Series []report.Series `json:"series"`
}

type dashboardJSON struct {
	Period     string                 `json:"period"`
	Start      string                 `json:"start"`
	End        string                 `json:"end"`
	Page       int                    `json:"page"`
	TotalPages int                    `json:"total_pages"`
	Programs   []dashboardProgramJSON `json:"programs"`
}

func toFieldJSON(f program.Field) fieldJSON {
	return fieldJSON{ID: f.ID, Name: f.Name, Label: f.Label, Type: string(f.Type), Required: f.Required, Order: f.Order}
}

func toProgramJSON(p program.Program) programJSON {
	out := programJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		CreatedBy:   p.CreatedBy,
		Fields:      make([]fieldJSON, 0, len(p.Fields)),
	}
	for _, f := range p.Fields {
		out.Fields = append(out.Fields, toFieldJSON(f))
	}
	return out
}

func toDataRowJSON(v projections.DataRowView) dataRowJSON {
	return dataRowJSON{ID: v.ID, CreatedAt: v.CreatedAt, CreatedBy: v.CreatedBy, Values: v.Values}
}

func toReportJSON(res projections.ProgramReportResult) reportJSON {
	series := res.Series
	if series == nil {
		series = []report.Series{}
	}
	return reportJSON{
		ProgramID: res.Program.ID,
		Program:   res.Program.Name,
		Period:    res.Period,
		Start:     res.Window.StartDate(),
		End:       res.Window.EndDate(),
		Series:    series,
	}
}

func toDashboardJSON(res projections.ProgramDashboardResult) dashboardJSON {
	out := dashboardJSON{
		Period:     res.Period,
		Start:      res.Window.StartDate(),
		End:        res.Window.EndDate(),
		Page:       res.Page,
		TotalPages: res.TotalPages,
		Programs:   make([]dashboardProgramJSON, 0, len(res.Programs)),
	}
	for _, dp := range res.Programs {
		out.Programs = append(out.Programs, dashboardProgramJSON{ID: dp.Program.ID, Name: dp.Program.Name, Series: dp.Series})
	}
	return out
}

// currentSession returns the session placed by Auth. Routes behind RequireAuth always have one.
func currentSession(r *http.Request) middleware.Session {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return sess
}
