package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"caretrack/internal/application/orchestrators"
	"caretrack/internal/application/projections"
	"caretrack/internal/domain/program"
	"caretrack/internal/domain/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) programReport(r *http.Request, period, start, end string) (projections.ProgramReportResult, error) {
	return projections.QueryProgramReport(r.Context(), projections.ProgramReportQuery{
		ProgramID: chi.URLParam(r, "id"),
		Period:    period,
		Start:     start,
		End:       end,
	}, projections.ProgramReportDeps{ProgramStore: s.stores.ProgramStore, Now: s.now})
}

// handleReport charts one program over the selected period.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.programReport(r, q.Get("period"), q.Get("start"), q.Get("end"))
	if err != nil {
		if isHTMLRequest(r) && program.IsValidation(err) {
			res.Period = q.Get("period")
			s.renderReportPage(w, r, http.StatusUnprocessableEntity, res, q.Get("start"), q.Get("end"), err.Error())
			return
		}
		s.writeError(w, r, err)
		return
	}
	if isHTMLRequest(r) {
		s.renderReportPage(w, r, http.StatusOK, res, q.Get("start"), q.Get("end"), "")
		return
	}
	writeJSON(w, http.StatusOK, toReportJSON(res))
}

func (s *Server) renderReportPage(w http.ResponseWriter, r *http.Request, status int, res projections.ProgramReportResult, start, end, errMsg string) {
	if res.Program.ID == "" {
		p, err := s.stores.ProgramStore.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		res.Program = p
	}
	s.renderTemplate(w, r, status, "report.html", res.Program.Name+" report", map[string]any{
		"Report":      res,
		"Periods":     report.ValidPeriods,
		"Start":       start,
		"End":         end,
		"Error":       errMsg,
		"EmailActive": s.sender != nil,
		"Query":       r.URL.RawQuery,
	})
}

// handleReportXLSX downloads the report as a workbook.
func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.programReport(r, q.Get("period"), q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	book, err := projections.BuildReportWorkbook(projections.ReportSheet{
		ProgramName: res.Program.Name,
		Window:      res.Window,
		Series:      res.Series,
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", orchestrators.ReportFilename(res.Program.Name, res.Window)))
	w.Header().Set("Content-Length", strconv.Itoa(len(book)))
	_, _ = w.Write(book)
}

// handleEmailReport sends the report for the requested period to a list of recipients.
func (s *Server) handleEmailReport(w http.ResponseWriter, r *http.Request) {
	if s.sender == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "Report email is not configured")
		return
	}
	req, err := decodeEmailReport(r)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.programReport(r, req.Period, req.Start, req.End)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var book []byte
	if req.Attach == nil || *req.Attach {
		book, err = projections.BuildReportWorkbook(projections.ReportSheet{
			ProgramName: res.Program.Name,
			Window:      res.Window,
			Series:      res.Series,
		})
		if err != nil {
			s.internalError(w, r, err)
			return
		}
	}

	sent, err := orchestrators.ExecuteSendProgramReport(r.Context(), orchestrators.SendProgramReportInput{
		ProgramName: res.Program.Name,
		Window:      res.Window,
		Series:      res.Series,
		Workbook:    book,
		To:          req.To,
		Note:        req.Note,
		ActorID:     currentSession(r).AccountID,
	}, orchestrators.SendProgramReportDeps{Sender: s.sender})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !isJSONRequest(r) {
		http.Redirect(w, r, "/programs/"+res.Program.ID+"/report?flash=Report+sent", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message_id": sent.MessageID,
		"sent_at":    sent.SentAt,
		"recipients": len(req.To),
	})
}
