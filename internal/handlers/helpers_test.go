package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"loveinaction/internal/cms"
	"loveinaction/internal/models"
	"loveinaction/internal/security"
	"loveinaction/internal/service"
)

// stubCMS serves Strapi-shaped responses for handler tests
type stubCMS struct {
	mux    *http.ServeMux
	server *httptest.Server

	mu     sync.Mutex
	bodies map[string][]map[string]any // "METHOD path" -> request bodies
}

func newStubCMS(t *testing.T) *stubCMS {
	t.Helper()
	s := &stubCMS{mux: http.NewServeMux(), bodies: map[string][]map[string]any{}}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		s.mu.Lock()
		key := r.Method + " " + r.URL.Path
		s.bodies[key] = append(s.bodies[key], body)
		s.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		s.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *stubCMS) client() *cms.Client {
	return cms.New(s.server.URL, cms.WithAPIToken("system-token"))
}

func (s *stubCMS) requests(method, path string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[method+" "+path]
}

func (s *stubCMS) data(pattern string, data any) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
}

func (s *stubCMS) fail(pattern string, status int, message string) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":  nil,
			"error": map[string]any{"status": status, "message": message},
		})
	})
}

// sessionStore is an in-memory service.SessionStore
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: map[string]*models.Session{}}
}

func (m *sessionStore) CreateSession(s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *sessionStore) GetSession(id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id], nil
}

func (m *sessionStore) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *sessionStore) DeleteExpiredSessions() (int64, error) { return 0, nil }

// testEnv wires an auth service and middleware around a stub CMS
type testEnv struct {
	cms        *stubCMS
	sessions   *sessionStore
	auth       *service.AuthService
	csrf       *security.CSRFGenerator
	middleware *Middleware
}

func newTestEnv(t *testing.T, adminKey string) *testEnv {
	t.Helper()
	stub := newStubCMS(t)
	sessions := newSessionStore()
	client := stub.client()
	auth := service.NewAuthService(client, service.NewSponsorService(client), sessions, time.Hour)
	csrf := security.NewCSRFGenerator("test-secret")

	key, err := security.NewAdminKey(adminKey)
	if err != nil {
		t.Fatalf("NewAdminKey: %v", err)
	}
	return &testEnv{
		cms:        stub,
		sessions:   sessions,
		auth:       auth,
		csrf:       csrf,
		middleware: NewMiddleware(auth, csrf, security.NewRateLimiter(100, time.Minute), key, true),
	}
}

// login stores a live session and returns its id
func (e *testEnv) login(email string) string {
	id := security.GenerateSessionID()
	_ = e.sessions.CreateSession(&models.Session{
		ID:        id,
		CMSToken:  "user-token",
		UserID:    7,
		Email:     email,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	})
	return id
}

func newJSONRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func withSessionCookie(req *http.Request, id string) *http.Request {
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: id})
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rec.Body.String())
	}
	return body
}
