package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
children:
  - fullName: Abebech Teferi Teka
    age: 9
    school: Hope Academy
  - fullName: Samuel Bekele
blogs:
  - Heading: Back to school
    content: "We delivered **200** backpacks."
`

func TestLoadSeedFile(t *testing.T) {
	seed, err := LoadSeedFile(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, seed.Children, 2)
	assert.Equal(t, "Abebech Teferi Teka", seed.Children[0]["fullName"])
	assert.Equal(t, 9, seed.Children[0]["age"])
	assert.Len(t, seed.Blogs, 1)
	assert.Empty(t, seed.Causes)

	_, err = LoadSeedFile(strings.NewReader("children: [unclosed"))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	fake := newFakeCMS(t)
	fake.handle("POST /api/children", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["data"]["fullName"] == "Samuel Bekele" {
			writeCMSError(w, http.StatusBadRequest, "fullName must be unique")
			return
		}
		writeData(w, body["data"])
	})
	fake.handle("POST /api/blogs", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"id": 1})
	})

	seed, err := LoadSeedFile(strings.NewReader(seedYAML))
	require.NoError(t, err)

	results := NewMaintenanceService(fake.client()).Seed(context.Background(), seed)
	require.Len(t, results, 2)
	assert.Equal(t, "children", results[0].Collection)
	assert.Equal(t, 1, results[0].Created)
	assert.Equal(t, 1, results[0].Failed)
	require.Len(t, results[0].Errors, 1)
	assert.Contains(t, results[0].Errors[0], "Samuel Bekele")
	assert.Equal(t, SeedResult{Collection: "blogs", Created: 1}, results[1])
}

func childrenRoute(fake *fakeCMS) {
	fake.handle("GET /api/children", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []map[string]any{
			{"id": 1, "documentId": "c1", "fullName": "Abebech Teferi Teka"},
			{"id": 2, "documentId": "c2", "fullName": "Samuel Bekele"},
		})
	})
}

func TestUploadImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"abebech_teferi_teka_1.jpg", "abebech_teferi_teka_2.jpg", "unknown_kid_1.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("img:"+name), 0o644))
	}

	fake := newFakeCMS(t)
	childrenRoute(fake)
	type upload struct{ name, ref, refID, field, content string }
	uploads := make(chan upload, 10)
	fake.handle("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		f, header, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		content, _ := io.ReadAll(f)
		uploads <- upload{header.Filename, r.FormValue("ref"), r.FormValue("refId"), r.FormValue("field"), string(content)}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 50, "name": header.Filename}})
	})

	report, err := NewMaintenanceService(fake.client()).UploadImages(context.Background(), dir)
	require.NoError(t, err)
	close(uploads)

	assert.Equal(t, 1, report.Linked)
	assert.Equal(t, 2, report.Uploaded)
	assert.Equal(t, []string{"Unknown Kid"}, report.Unmatched)

	var got []upload
	for u := range uploads {
		got = append(got, u)
	}
	require.Len(t, got, 2)
	for _, u := range got {
		assert.Equal(t, "api::child.child", u.ref)
		assert.Equal(t, "1", u.refID)
		assert.Equal(t, "images", u.field)
		assert.Equal(t, "img:"+u.name, u.content)
	}
	assert.Equal(t, "200", fake.callsTo(http.MethodGet, "/api/children")[0].Query.Get("pagination[pageSize]"))
}

func TestLinkImages(t *testing.T) {
	fake := newFakeCMS(t)
	childrenRoute(fake)
	fake.handle("GET /api/upload/files", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 10, "name": "samuel_bekele_1.jpg"},
			{"id": 11, "name": "samuel_bekele_2.JPG"},
			{"id": 12, "name": "logo.svg"},
			{"id": 13, "name": "hana_1.png"},
		})
	})
	fake.handle("PUT /api/children/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"id": 2})
	})

	report, err := NewMaintenanceService(fake.client()).LinkImages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Linked)
	assert.Equal(t, []string{"Hana"}, report.Unmatched)

	puts := fake.callsTo(http.MethodPut, "/api/children/c2")
	require.Len(t, puts, 1)
	assert.Equal(t, []any{float64(10), float64(11)}, puts[0].payload()["images"])
}

func TestCheckDuplicates(t *testing.T) {
	fake := newFakeCMS(t)
	fake.handle("GET /api/children", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pagination[page]") != "1" {
			writeData(w, []any{})
			return
		}
		writeData(w, []map[string]any{
			{"id": 1, "fullName": "Hana Girma"},
			{"id": 2, "attributes": map[string]any{"firstName": "hana", "lastName": "girma"}},
			{"id": 3, "fullName": "Samuel Bekele"},
			{"id": 4, "fullName": ""},
		})
	})

	dups, err := NewMaintenanceService(fake.client()).CheckDuplicates(context.Background())
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "hana girma", dups[0].Name)

	var ids []int64
	for _, c := range dups[0].Children {
		ids = append(ids, c.ID)
	}
	if diff := cmp.Diff([]int64{1, 2}, ids); diff != "" {
		t.Errorf("duplicate ids mismatch (-want +got):\n%s", diff)
	}
}

func TestExportPages(t *testing.T) {
	fake := newFakeCMS(t)
	fake.handle("GET /api/sponsors", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("pagination[page]")
		if page == "1" {
			full := make([]map[string]any, exportPageSize)
			for i := range full {
				full[i] = map[string]any{"id": i + 1, "email": "s@example.com"}
			}
			writeData(w, full)
			return
		}
		if page == "2" {
			writeData(w, []map[string]any{{"id": 101, "email": "last@example.com"}})
			return
		}
		writeData(w, []any{})
	})
	fake.handle("GET /api/sponsorships", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []map[string]any{{"id": 1, "sponsorshipStatus": "submitted", "numberOfChildren": 2}})
	})
	fake.handle("GET /api/children", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []any{})
	})

	svc := NewMaintenanceService(fake.client())
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	var buf bytes.Buffer
	data, err := svc.Export(context.Background(), &buf)
	require.NoError(t, err)
	assert.Len(t, data.Sponsors, exportPageSize+1)
	assert.Len(t, data.Sponsorships, 1)
	assert.Len(t, fake.callsTo(http.MethodGet, "/api/sponsors"), 2)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2025-01-02T03:04:05Z", decoded["exported_at"])
	assert.Equal(t, "1.0", decoded["version"])
}

func TestFixPermissions(t *testing.T) {
	fake := newFakeCMS(t)
	fake.handle("GET /api/users-permissions/roles", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"roles": []map[string]any{
			{"id": 1, "type": "authenticated"},
			{"id": 2, "type": "public"},
		}})
	})
	fake.handle("GET /api/users-permissions/roles/2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"role": map[string]any{
			"id": 2, "type": "public",
			"permissions": map[string]any{
				"api::child.child": map[string]any{"controllers": map[string]any{"child": map[string]any{"find": map[string]any{"enabled": true}}}},
			},
		}})
	})
	fake.handle("PUT /api/users-permissions/roles/2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	err := NewMaintenanceService(fake.client()).FixPermissions(context.Background(), []string{"api::event.event", "api::blog.blog"})
	require.NoError(t, err)

	puts := fake.callsTo(http.MethodPut, "/api/users-permissions/roles/2")
	require.Len(t, puts, 1)
	perms := puts[0].Body["permissions"].(map[string]any)
	assert.Contains(t, perms, "api::child.child")

	event := perms["api::event.event"].(map[string]any)["controllers"].(map[string]any)["event"].(map[string]any)
	assert.Equal(t, map[string]any{"enabled": true}, event["find"])
	assert.Equal(t, map[string]any{"enabled": true}, event["findOne"])
	assert.Contains(t, perms["api::blog.blog"].(map[string]any)["controllers"], "blog")
}

func TestFixPermissionsWithoutPublicRole(t *testing.T) {
	fake := newFakeCMS(t)
	fake.handle("GET /api/users-permissions/roles", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"roles": []any{}})
	})

	err := NewMaintenanceService(fake.client()).FixPermissions(context.Background(), PublicContentTypes)
	assert.ErrorIs(t, err, ErrPublicRoleNotFound)
}

func TestControllerName(t *testing.T) {
	assert.Equal(t, "home-page", controllerName("api::home-page.home-page"))
	assert.Equal(t, "event", controllerName("api::event.event"))
}
