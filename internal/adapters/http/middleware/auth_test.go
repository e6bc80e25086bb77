package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainAccount "caretrack/internal/domain/account"
)

// TestSessionStore_Lifecycle verifies create, expiry, delete and sweep.
func TestSessionStore_Lifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	ss := NewSessionStore(time.Hour)
	ss.now = func() time.Time { return now }

	token, err := ss.Create("a1", "admin", domainAccount.RoleAdmin)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}
	sess, ok := ss.Get(token)
	if !ok || sess.Username != "admin" || !sess.IsAdmin() {
		t.Fatalf("Get() = %+v, %v", sess, ok)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := ss.Get(token); ok {
		t.Error("expired session still returned")
	}

	other, _ := ss.Create("s1", "staff", domainAccount.RoleStaff)
	ss.Delete(other)
	if _, ok := ss.Get(other); ok {
		t.Error("deleted session still returned")
	}

	ss.Create("s2", "staff2", domainAccount.RoleStaff)
	now = now.Add(2 * time.Hour)
	if n := ss.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
}

// TestNewSessionStore_DefaultTTL verifies the fallback lifetime.
func TestNewSessionStore_DefaultTTL(t *testing.T) {
	if got := NewSessionStore(0).TTL(); got != DefaultSessionTTL {
		t.Errorf("TTL() = %v, want %v", got, DefaultSessionTTL)
	}
}

// TestAuth_LoadsSession verifies the cookie session reaches the handler.
func TestAuth_LoadsSession(t *testing.T) {
	ss := NewSessionStore(time.Hour)
	token, _ := ss.Create("a1", "admin", domainAccount.RoleAdmin)

	var got Session
	handler := Auth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetSessionFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got.AccountID != "a1" {
		t.Errorf("session = %+v, want account a1", got)
	}
}

// TestRequireRole verifies anonymous, wrong-role and allowed requests.
func TestRequireRole(t *testing.T) {
	handler := RequireRole(domainAccount.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		session *Session
		accept  string
		want    int
	}{
		{name: "anonymous api", want: http.StatusUnauthorized},
		{name: "anonymous browser", accept: "text/html", want: http.StatusSeeOther},
		{name: "staff", session: &Session{AccountID: "s", Role: domainAccount.RoleStaff}, want: http.StatusForbidden},
		{name: "admin", session: &Session{AccountID: "a", Role: domainAccount.RoleAdmin}, want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/programs/new", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.session != nil {
				req = req.WithContext(ContextWithSession(context.Background(), *tt.session))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

// TestSessionCookies verifies cookie attributes.
func TestSessionCookies(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "tok", time.Hour, true)
	ClearSessionCookie(rr, true)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("cookies = %d, want 2", len(cookies))
	}
	if c := cookies[0]; c.Value != "tok" || !c.HttpOnly || !c.Secure || c.MaxAge != 3600 {
		t.Errorf("set cookie = %+v", c)
	}
	if c := cookies[1]; c.MaxAge >= 0 {
		t.Errorf("clear cookie MaxAge = %d, want negative", c.MaxAge)
	}
}
