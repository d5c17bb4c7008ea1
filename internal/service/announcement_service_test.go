package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnouncementsFallThroughEndpoints(t *testing.T) {
	fake := newFakeCMS(t)
	fake.handle("GET /api/alerts/active", func(w http.ResponseWriter, r *http.Request) {
		writeCMSError(w, http.StatusNotFound, "Not Found")
	})
	fake.handle("GET /api/alerts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filters[isActive][$eq]") != "" {
			writeData(w, []any{})
			return
		}
		// v4 shape, one inactive
		writeData(w, []map[string]any{
			{"id": 1, "attributes": map[string]any{"title": "Old", "isActive": false}},
			{"id": 2, "attributes": map[string]any{
				"title": "Gala", "description": "Join us", "url": "/events/gala", "buttonText": "RSVP", "isActive": true, "priority": 2,
			}},
		})
	})

	svc := NewAnnouncementService(fake.client())
	active := svc.Active(context.Background())
	require.Len(t, active, 1)

	a := active[0]
	assert.Equal(t, int64(2), a.ID)
	assert.Equal(t, "2", a.DocumentID)
	assert.Equal(t, "Join us", a.Message)
	assert.Equal(t, "/events/gala", a.Link)
	assert.Equal(t, "RSVP", a.LinkText)
	assert.Equal(t, "announcement", a.Type)
	assert.Equal(t, 2, a.Priority)

	assert.Empty(t, fake.callsTo(http.MethodGet, "/api/announcements"))
}

func TestAnnouncementsNoneAnywhere(t *testing.T) {
	fake := newFakeCMS(t)
	svc := NewAnnouncementService(fake.client())

	assert.Empty(t, svc.Active(context.Background()))
	assert.Nil(t, svc.Top(context.Background()))
	assert.Len(t, fake.callsTo(http.MethodGet, "/api/announcements"), 2)
}

func TestAnnouncementsAreAnonymous(t *testing.T) {
	fake := newFakeCMS(t)
	var auth string
	fake.handle("GET /api/alerts/active", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 4, "documentId": "a4", "title": "Hi", "message": "Hello"}})
	})

	top := NewAnnouncementService(fake.client()).Top(context.Background())
	require.NotNil(t, top)
	assert.Equal(t, "a4", top.DocumentID)
	assert.Equal(t, "Learn More", top.LinkText)
	assert.True(t, top.IsActive)
	assert.Empty(t, auth)
}

func TestAlertByID(t *testing.T) {
	fake := newFakeCMS(t)
	fake.handle("GET /api/alerts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "a1" {
			writeCMSError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeData(w, map[string]any{"id": 1, "documentId": "a1", "title": "Closed", "message": "Office closed", "isActive": false})
	})
	svc := NewAnnouncementService(fake.client())

	alert, err := svc.Alert(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.False(t, alert.IsActive)

	missing, err := svc.Alert(context.Background(), "zz")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
