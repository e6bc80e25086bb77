package web

import (
	"net/http"
	"time"

	"caretrack/internal/application/orchestrators"
)

// handlePerf returns request and query timings for a recent window.
// GET /api/admin/perf?window=15m
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "Performance collection is disabled")
		return
	}
	window := 15 * time.Minute
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeProblem(w, r, http.StatusBadRequest, "window must be a positive duration such as 15m")
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, s.collector.Snapshot(s.now().Add(-window), 10))
}

type accountJSON struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Locked    bool      `json:"locked"`
}

// handleListAccounts lists accounts, optionally filtered by ?role=.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := orchestrators.ExecuteListAccounts(r.Context(), r.URL.Query().Get("role"), s.stores.AccountStore)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	now := s.now()
	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountJSON{ID: a.ID, Username: a.Username, Role: a.Role, CreatedAt: a.CreatedAt, Locked: a.IsLocked(now)})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateAccount creates a staff or admin account.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := strictDecode(r, &req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := orchestrators.ExecuteCreateAccount(r.Context(), orchestrators.CreateAccountInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	}, orchestrators.CreateAccountDeps{AccountStore: s.stores.AccountStore})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "username": req.Username, "role": req.Role})
}
