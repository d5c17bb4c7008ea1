package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"loveinaction/internal/security"
)

func authUserJSON(email string) map[string]any {
	return map[string]any{"id": 7, "username": "hana", "email": email, "confirmed": true}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t, "")
	env.cms.mux.HandleFunc("POST /api/auth/local", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"jwt": "cms-jwt", "user": authUserJSON("hana@example.com")})
	})
	env.cms.data("GET /api/sponsors", []map[string]any{{"id": 4, "documentId": "s4", "email": "hana@example.com", "profileComplete": true}})
	h := NewAuthHandler(env.auth, env.csrf)

	rec := httptest.NewRecorder()
	h.Login(rec, newJSONRequest(http.MethodPost, "/api/auth/login", `{"identifier":"hana@example.com","password":"secret1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == security.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("expected an HttpOnly session cookie, got %v", rec.Result().Cookies())
	}
	session, ok := env.sessions.sessions[cookie.Value]
	if !ok || session.CMSToken != "cms-jwt" {
		t.Fatalf("expected session holding the CMS token, got %+v", session)
	}

	body := decodeBody(t, rec)
	if body["hasProfile"] != true {
		t.Fatalf("expected hasProfile, got %v", body["hasProfile"])
	}
	token, _ := body["csrfToken"].(string)
	if !env.csrf.ValidateToken(cookie.Value, token) {
		t.Fatal("expected a CSRF token bound to the session")
	}
	if _, ok := body["jwt"]; ok {
		t.Fatal("the CMS token must not be returned to the browser")
	}
}

func TestLoginErrors(t *testing.T) {
	env := newTestEnv(t, "")
	env.cms.fail("POST /api/auth/local", http.StatusBadRequest, "Invalid identifier or password")
	h := NewAuthHandler(env.auth, env.csrf)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing password", `{"identifier":"hana@example.com"}`, http.StatusBadRequest, "Email and password are required"},
		{"rejected", `{"identifier":"hana@example.com","password":"wrong"}`, http.StatusUnauthorized, "Invalid email or password"},
		{"not json", `nope`, http.StatusBadRequest, ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Login(rec, newJSONRequest(http.MethodPost, "/api/auth/login", tt.body))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if body := decodeBody(t, rec); body["error"] != tt.message {
				t.Fatalf("expected %q, got %v", tt.message, body["error"])
			}
		})
	}
}

func TestRegisterAwaitingConfirmation(t *testing.T) {
	env := newTestEnv(t, "")
	env.cms.mux.HandleFunc("POST /api/auth/local/register", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"user": authUserJSON("new@example.com")})
	})
	h := NewAuthHandler(env.auth, env.csrf)

	rec := httptest.NewRecorder()
	h.Register(rec, newJSONRequest(http.MethodPost, "/api/auth/register", `{"username":"newbie","email":"new@example.com","password":"secret1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["emailConfirmationRequired"] != true {
		t.Fatalf("expected confirmation required, got %v", body)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no session should start before the email is confirmed")
	}
}

func TestRegisterCMSRejection(t *testing.T) {
	env := newTestEnv(t, "")
	env.cms.fail("POST /api/auth/local/register", http.StatusBadRequest, "Email or Username are already taken")
	h := NewAuthHandler(env.auth, env.csrf)

	rec := httptest.NewRecorder()
	h.Register(rec, newJSONRequest(http.MethodPost, "/api/auth/register", `{"username":"newbie","email":"new@example.com","password":"secret1"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Email or Username are already taken" {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestMeRejectedToken(t *testing.T) {
	env := newTestEnv(t, "")
	env.cms.fail("GET /api/users/me", http.StatusUnauthorized, "Unauthorized")
	id := env.login("hana@example.com")
	h := NewAuthHandler(env.auth, env.csrf)

	rec := httptest.NewRecorder()
	h.Me(rec, withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), id))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if _, ok := env.sessions.sessions[id]; ok {
		t.Fatal("expected session to end when the CMS rejects its token")
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, "")
	id := env.login("hana@example.com")
	h := NewAuthHandler(env.auth, env.csrf)

	rec := httptest.NewRecorder()
	h.Logout(rec, withSessionCookie(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), id))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, ok := env.sessions.sessions[id]; ok {
		t.Fatal("expected session to be deleted")
	}
}

func TestForgotPasswordHidesCMSFailure(t *testing.T) {
	env := newTestEnv(t, "")
	env.cms.fail("POST /api/auth/forgot-password", http.StatusInternalServerError, "smtp down")
	h := NewAuthHandler(env.auth, env.csrf)

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, newJSONRequest(http.MethodPost, "/api/auth/forgot-password", `{"email":"hana@example.com"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ForgotPassword(rec, newJSONRequest(http.MethodPost, "/api/auth/forgot-password", `{"email":"bad"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid email, got %d", rec.Code)
	}
}
