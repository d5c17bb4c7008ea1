package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeCMS(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeData := func(w http.ResponseWriter, data any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}
	mux.HandleFunc("GET /api/children", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pagination[page]") == "2" {
			writeData(w, []any{})
			return
		}
		writeData(w, []map[string]any{
			{"id": 1, "documentId": "c1", "fullName": "Hana Girma"},
			{"id": 2, "documentId": "c2", "fullName": "hana girma"},
			{"id": 3, "documentId": "c3", "fullName": "Samuel Bekele"},
		})
	})
	mux.HandleFunc("GET /api/sponsors", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []map[string]any{{"id": 1, "documentId": "s1", "email": "a@example.com"}})
	})
	mux.HandleFunc("GET /api/sponsorships", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []any{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"seed", "upload-images", "link-images", "check-duplicates", "relations", "export", "fix-permissions"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	detect, _, err := rootCmd.Find([]string{"relations", "detect"})
	require.NoError(t, err)
	assert.Equal(t, "detect", detect.Name())
}

func TestCheckDuplicatesCommand(t *testing.T) {
	srv := fakeCMS(t)

	out, err := execute(t, "check-duplicates", "--cms-url", srv.URL, "--token", "t", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, `"hana girma" appears 2 times`)
	assert.NotContains(t, out, "samuel")
}

func TestExportCommand(t *testing.T) {
	srv := fakeCMS(t)
	output := filepath.Join(t.TempDir(), "nested", "export.json")

	out, err := execute(t, "export", "--cms-url", srv.URL, "--token", "t", "--output", output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Exported 1 sponsors, 0 sponsorships, 3 children"), out)

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "1.0", data["version"])
	assert.Equal(t, srv.URL, data["cms_url"])
}

func TestMissingToken(t *testing.T) {
	t.Setenv("STRAPI_API_TOKEN", "")
	_, err := execute(t, "check-duplicates", "--cms-url", "http://127.0.0.1:1", "--token", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API token")
}
