package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"caretrack/internal/application/orchestrators"
	"caretrack/internal/application/projections"
	"caretrack/internal/domain/program"
)

// handleListPrograms lists every program with its row count.
func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	list, err := projections.QueryProgramList(r.Context(), projections.ProgramListDeps{ProgramStore: s.stores.ProgramStore})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if isHTMLRequest(r) {
		s.renderTemplate(w, r, http.StatusOK, "programs.html", "Programs", list)
		return
	}
	out := make([]programSummaryJSON, 0, len(list))
	for _, ps := range list {
		out = append(out, programSummaryJSON{programJSON: toProgramJSON(ps.Program), RowCount: ps.RowCount, Reportable: ps.Reportable})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleNewProgramForm renders the program builder.
func (s *Server) handleNewProgramForm(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, r, http.StatusOK, "program_new.html", "New program", map[string]any{
		"Form": createProgramRequest{Fields: []fieldRequest{{Type: string(program.TypeNumber)}}},
	})
}

// handleCreateProgram defines a program from JSON or the builder form.
func (s *Server) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateProgram(r)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.programFormError(w, r, req, err)
		return
	}

	sess := currentSession(r)
	id, err := orchestrators.ExecuteDefineProgram(r.Context(), orchestrators.DefineProgramInput{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   sess.AccountID,
		Fields:      req.specs(),
	}, orchestrators.DefineProgramDeps{ProgramStore: s.stores.ProgramStore, Now: s.now})
	if err != nil {
		s.programFormError(w, r, req, err)
		return
	}

	if !isJSONRequest(r) {
		http.Redirect(w, r, "/programs/"+id, http.StatusSeeOther)
		return
	}
	p, err := s.stores.ProgramStore.GetByID(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Location", "/programs/"+id)
	writeJSON(w, http.StatusCreated, toProgramJSON(p))
}

// programFormError re-renders the builder with the error for form posts.
func (s *Server) programFormError(w http.ResponseWriter, r *http.Request, req createProgramRequest, err error) {
	if isJSONRequest(r) {
		s.writeError(w, r, err)
		return
	}
	status, detail, _ := classifyError(err)
	if status == http.StatusInternalServerError {
		s.internalError(w, r, err)
		return
	}
	if len(req.Fields) == 0 {
		req.Fields = []fieldRequest{{Type: string(program.TypeNumber)}}
	}
	s.renderTemplate(w, r, status, "program_new.html", "New program", map[string]any{
		"Form":  req,
		"Error": detail,
	})
}

// handleGetProgram shows one program with its entry form.
func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.stores.ProgramStore.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if isHTMLRequest(r) {
		s.renderTemplate(w, r, http.StatusOK, "program_detail.html", p.Name, map[string]any{
			"Program": p,
			"Today":   s.now().Format(program.DateLayout),
		})
		return
	}
	writeJSON(w, http.StatusOK, toProgramJSON(p))
}

// handleUpdateProgram renames a program or edits its description.
func (s *Server) handleUpdateProgram(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := decodeUpdateProgram(r)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	deps := orchestrators.UpdateProgramDeps{ProgramStore: s.stores.ProgramStore}
	if err := orchestrators.ExecuteUpdateProgram(r.Context(), orchestrators.UpdateProgramInput{
		ProgramID:   id,
		Name:        req.Name,
		Description: req.Description,
		ActorID:     currentSession(r).AccountID,
	}, deps); err != nil {
		s.writeError(w, r, err)
		return
	}

	if !isJSONRequest(r) {
		http.Redirect(w, r, "/programs/"+id, http.StatusSeeOther)
		return
	}
	p, err := s.stores.ProgramStore.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgramJSON(p))
}

// handleDeleteProgram removes a program with its fields and data.
func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	if err := orchestrators.ExecuteDeleteProgram(r.Context(), orchestrators.DeleteProgramInput{
		ProgramID: chi.URLParam(r, "id"),
		ActorID:   currentSession(r).AccountID,
	}, orchestrators.DeleteProgramDeps{ProgramStore: s.stores.ProgramStore}); err != nil {
		s.writeError(w, r, err)
		return
	}
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/programs?flash=Program+deleted", http.StatusSeeOther)
}

// handleAddField appends a field to an existing program. Existing rows are not rewritten.
func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := decodeField(r)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	f, err := orchestrators.ExecuteAddField(r.Context(), orchestrators.AddFieldInput{
		ProgramID: id,
		Spec:      req.spec(),
		ActorID:   currentSession(r).AccountID,
	}, orchestrators.UpdateProgramDeps{ProgramStore: s.stores.ProgramStore})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !isJSONRequest(r) {
		http.Redirect(w, r, "/programs/"+id, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, toFieldJSON(f))
}
