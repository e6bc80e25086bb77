package web

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"caretrack/internal/application/listutil"
	"caretrack/internal/application/orchestrators"
	"caretrack/internal/application/projections"
	"caretrack/internal/domain/program"
)

// handleListData pages through a program's rows, newest first.
func (s *Server) handleListData(w http.ResponseWriter, r *http.Request) {
	pp := listutil.ParsePageParams(r.URL.Query(), s.cfg.Reports.DataPageSize)
	res, err := projections.QueryProgramData(r.Context(), projections.ProgramDataQuery{
		ProgramID: chi.URLParam(r, "id"),
		Page:      pp.Page,
		PerPage:   pp.PerPage,
	}, projections.ProgramDataDeps{ProgramStore: s.stores.ProgramStore})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if isHTMLRequest(r) {
		s.renderTemplate(w, r, http.StatusOK, "program_data.html", res.Program.Name+" data", map[string]any{
			"Result":         res,
			"PerPageOptions": listutil.PerPageOptions,
		})
		return
	}
	out := dataPageJSON{Program: toProgramJSON(res.Program), Rows: make([]dataRowJSON, 0, len(res.Rows)), Page: res.Page}
	for _, v := range res.Rows {
		out.Rows = append(out.Rows, toDataRowJSON(v))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetData returns one stored row.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	_, row, err := projections.QueryDataRow(r.Context(), projections.DataRowQuery{
		ProgramID: chi.URLParam(r, "id"),
		RowID:     chi.URLParam(r, "rowID"),
	}, projections.ProgramDataDeps{ProgramStore: s.stores.ProgramStore})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDataRowJSON(row))
}

// handleSubmitData records one row from JSON or the entry form.
// Form inputs are named after field machine names.
func (s *Server) handleSubmitData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var raw map[string]string
	if isJSONRequest(r) {
		var req submitDataRequest
		if err := strictDecode(r, &req); err != nil {
			writeProblem(w, r, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.writeError(w, r, err)
			return
		}
		p, err := s.stores.ProgramStore.GetByID(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if raw, err = req.raw(p); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		raw = make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			if k == "csrf_token" {
				continue
			}
			raw[k] = r.PostForm.Get(k)
		}
	}

	rowID, err := orchestrators.ExecuteSubmitData(r.Context(), orchestrators.SubmitDataInput{
		ProgramID: id,
		Raw:       raw,
		CreatorID: currentSession(r).AccountID,
	}, orchestrators.SubmitDataDeps{ProgramStore: s.stores.ProgramStore, Now: s.now})
	if err != nil {
		if !isJSONRequest(r) && program.IsValidation(err) {
			s.rerenderEntryForm(w, r, id, raw, err)
			return
		}
		s.writeError(w, r, err)
		return
	}

	if !isJSONRequest(r) {
		http.Redirect(w, r, "/programs/"+id+"?flash=Entry+saved", http.StatusSeeOther)
		return
	}
	w.Header().Set("Location", "/programs/"+id+"/data/"+rowID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": rowID})
}

// rerenderEntryForm shows the program page again with the rejected values filled in.
func (s *Server) rerenderEntryForm(w http.ResponseWriter, r *http.Request, id string, raw map[string]string, cause error) {
	p, err := s.stores.ProgramStore.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.renderTemplate(w, r, http.StatusUnprocessableEntity, "program_detail.html", p.Name, map[string]any{
		"Program": p,
		"Today":   s.now().Format(program.DateLayout),
		"Values":  raw,
		"Error":   cause.Error(),
	})
}

// handleDeleteData removes one row.
func (s *Server) handleDeleteData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := orchestrators.ExecuteDeleteData(r.Context(), orchestrators.DeleteDataInput{
		ProgramID: id,
		RowID:     chi.URLParam(r, "rowID"),
		ActorID:   currentSession(r).AccountID,
	}, orchestrators.SubmitDataDeps{ProgramStore: s.stores.ProgramStore}); err != nil {
		s.writeError(w, r, err)
		return
	}
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/programs/"+id+"/data?flash=Entry+deleted", http.StatusSeeOther)
}

// handleImport loads a CSV or XLSX upload. Nothing is written unless every row is valid.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Reports.ImportMaxBytes)
	if err := r.ParseMultipartForm(s.cfg.Reports.ImportMaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, r, http.StatusRequestEntityTooLarge, "The uploaded file is too large")
			return
		}
		writeProblem(w, r, http.StatusBadRequest, "Expected a multipart upload with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "A file is required")
		return
	}
	defer file.Close()
	if header.Size > s.cfg.Reports.ImportMaxBytes {
		writeProblem(w, r, http.StatusRequestEntityTooLarge, "The uploaded file is too large")
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.FormValue("format")))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	}
	if format != orchestrators.ImportFormatCSV && format != orchestrators.ImportFormatXLSX {
		s.writeError(w, r, &program.ValidationError{Field: "File", Value: header.Filename, Message: "must be a .csv or .xlsx file"})
		return
	}

	res, err := orchestrators.ExecuteImportProgramData(r.Context(), orchestrators.ImportProgramDataInput{
		ProgramID: id,
		Reader:    file,
		Format:    format,
		CreatorID: currentSession(r).AccountID,
		DryRun:    r.FormValue("dry_run") != "",
	}, orchestrators.SubmitDataDeps{ProgramStore: s.stores.ProgramStore, Now: s.now})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Rejected() {
		status = http.StatusUnprocessableEntity
	}
	if isHTMLRequest(r) {
		s.renderTemplate(w, r, status, "import_result.html", "Import", map[string]any{
			"ProgramID": id,
			"Filename":  header.Filename,
			"Result":    res,
		})
		return
	}
	writeJSON(w, status, importResultJSON(res))
}

type importRowErrorJSON struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type importJSON struct {
	Total    int                  `json:"total"`
	Imported int                  `json:"imported"`
	DryRun   bool                 `json:"dry_run"`
	Unknown  []string             `json:"unknown_columns"`
	Errors   []importRowErrorJSON `json:"errors"`
}

func importResultJSON(res orchestrators.ImportProgramDataResult) importJSON {
	out := importJSON{
		Total:    res.Total,
		Imported: res.Imported,
		DryRun:   res.DryRun,
		Unknown:  res.Unknown,
		Errors:   make([]importRowErrorJSON, 0, len(res.Errors)),
	}
	if out.Unknown == nil {
		out.Unknown = []string{}
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, importRowErrorJSON{Row: e.Row, Message: e.Message})
	}
	return out
}
