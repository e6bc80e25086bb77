package web

import (
	"net/http"
	"strconv"

	"caretrack/internal/application/projections"
	"caretrack/internal/domain/report"
)

// handleDashboard charts every reportable program, a page at a time.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))

	res, err := projections.QueryProgramDashboard(r.Context(), projections.ProgramDashboardQuery{
		Page:   page,
		Period: q.Get("period"),
		Start:  q.Get("start"),
		End:    q.Get("end"),
	}, projections.ProgramDashboardDeps{
		ProgramStore: s.stores.ProgramStore,
		PageSize:     s.cfg.Reports.DashboardPageSize,
		Now:          s.now,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if isHTMLRequest(r) {
		s.renderTemplate(w, r, http.StatusOK, "dashboard.html", "Dashboard", map[string]any{
			"Dashboard": res,
			"Periods":   report.ValidPeriods,
			"Start":     q.Get("start"),
			"End":       q.Get("end"),
		})
		return
	}
	writeJSON(w, http.StatusOK, toDashboardJSON(res))
}
