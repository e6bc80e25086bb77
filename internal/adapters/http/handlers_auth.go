package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"caretrack/internal/adapters/http/middleware"
	"caretrack/internal/application/orchestrators"
)

// handleHealthz reports liveness and database reachability.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.stores.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.stores.DB.PingContext(ctx); err != nil {
			slog.Error("healthz_db_unreachable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLoginForm renders the sign-in page.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, r, http.StatusOK, "login.html", "Sign in", nil)
}

// handleLogin authenticates a form or JSON sign-in and starts a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSONRequest(r) {
		if err := strictDecode(r, &req); err != nil {
			writeProblem(w, r, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Username: req.Username,
		Password: req.Password,
	}, orchestrators.LoginDeps{AccountStore: s.stores.AccountStore, Now: s.now})
	if err != nil {
		if !errors.Is(err, orchestrators.ErrInvalidCredentials) && !errors.Is(err, orchestrators.ErrAccountLocked) {
			s.internalError(w, r, err)
			return
		}
		if isJSONRequest(r) {
			writeProblem(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		s.renderTemplate(w, r, http.StatusUnauthorized, "login.html", "Sign in", map[string]any{
			"Error":    err.Error(),
			"Username": req.Username,
		})
		return
	}

	token, err := s.sessions.Create(result.AccountID, result.Username, result.Role)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	middleware.SetSessionCookie(w, token, s.sessions.TTL(), s.cfg.Auth.SecureCookies)

	if isJSONRequest(r) {
		writeJSON(w, http.StatusOK, map[string]string{
			"account_id": result.AccountID,
			"username":   result.Username,
			"role":       result.Role,
		})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleLogout ends the current session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		s.sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w, s.cfg.Auth.SecureCookies)
	if isJSONRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
