package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"loveinaction/internal/cms"
)

// fakeCMS is an httptest server with Strapi-shaped routes and a call log
type fakeCMS struct {
	t      *testing.T
	mux    *http.ServeMux
	server *httptest.Server

	mu    sync.Mutex
	calls []cmsCall
}

type cmsCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

func newFakeCMS(t *testing.T) *fakeCMS {
	t.Helper()
	f := &fakeCMS{t: t, mux: http.NewServeMux()}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCMS) serve(w http.ResponseWriter, r *http.Request) {
	call := cmsCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()}
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &call.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	f.mux.ServeHTTP(w, r)
}

// handle registers a ServeMux pattern such as "GET /api/sponsors/{id}"
func (f *fakeCMS) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *fakeCMS) client() *cms.Client {
	return cms.New(f.server.URL, cms.WithAPIToken("system-token"))
}

func (f *fakeCMS) callsTo(method, path string) []cmsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cmsCall
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeCMSError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  nil,
		"error": map[string]any{"status": status, "message": message},
	})
}

// payload returns the {data: ...} object of a recorded write
func (c cmsCall) payload() map[string]any {
	data, _ := c.Body["data"].(map[string]any)
	return data
}
