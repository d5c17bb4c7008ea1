package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"loveinaction/internal/cms"
	"loveinaction/internal/models"
)

// alertEndpoint is one place announcements may live. Filtered endpoints
// already return only active records.
type alertEndpoint struct {
	path     string
	query    *cms.Query
	filtered bool
}

func alertEndpoints() []alertEndpoint {
	return []alertEndpoint{
		{"/api/alerts/active", nil, true},
		{"/api/alerts", cms.NewQuery().Eq("isActive", true), true},
		{"/api/alerts", nil, false},
		{"/api/announcements", cms.NewQuery().Eq("isActive", true), true},
		{"/api/announcements", nil, false},
	}
}

// AnnouncementService reads site-wide banners
type AnnouncementService struct {
	cms *cms.Client
}

// NewAnnouncementService creates a service reading with client's anonymous copy
func NewAnnouncementService(client *cms.Client) *AnnouncementService {
	return &AnnouncementService{cms: client.Anonymous()}
}

// Active returns the active announcements from the first endpoint that has any
func (s *AnnouncementService) Active(ctx context.Context) []models.Announcement {
	for _, ep := range alertEndpoints() {
		raw, err := s.cms.Raw(ctx, http.MethodGet, ep.path, ep.query, nil, nil)
		if err != nil {
			continue
		}
		alerts, err := decodeAlerts(raw)
		if err != nil {
			log.Printf("Error decoding alerts from %s: %v", ep.path, err)
			continue
		}

		var out []models.Announcement
		for _, alert := range alerts {
			a := mapAlert(alert)
			if !ep.filtered && !isTrue(alert["isActive"]) {
				continue
			}
			out = append(out, a)
		}
		if len(out) > 0 {
			return out
		}
	}
	return []models.Announcement{}
}

// Top returns the first active announcement, or nil
func (s *AnnouncementService) Top(ctx context.Context) *models.Announcement {
	active := s.Active(ctx)
	if len(active) == 0 {
		return nil
	}
	return &active[0]
}

// Alert fetches one alert by id or documentId. A missing alert is nil, nil.
func (s *AnnouncementService) Alert(ctx context.Context, id string) (*models.Announcement, error) {
	raw, err := s.cms.Raw(ctx, http.MethodGet, "/api/alerts/"+id, nil, nil, nil)
	if err != nil {
		if cms.StatusCode(err) == http.StatusNotFound {
			log.Printf("Alert with ID %s not found", id)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch alert %s: %w", id, err)
	}
	alerts, err := decodeAlerts(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode alert %s: %w", id, err)
	}
	if len(alerts) == 0 {
		return nil, nil
	}
	a := mapAlert(alerts[0])
	return &a, nil
}

// decodeAlerts accepts a bare array, {data: [...]} or {data: {...}}
func decodeAlerts(raw []byte) ([]map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok {
		if data, ok := m["data"]; ok {
			v = data
		}
	}
	v = cms.Flatten(v)

	switch t := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, nil
	case map[string]any:
		return []map[string]any{t}, nil
	}
	return nil, nil
}

// mapAlert normalizes the field names used by different alert schemas
func mapAlert(alert map[string]any) models.Announcement {
	a := models.Announcement{
		ID:        int64(number(alert["id"])),
		Title:     str(alert["title"]),
		Message:   firstString(alert["message"], alert["description"]),
		Link:      firstString(alert["link"], alert["url"]),
		LinkText:  firstString(alert["linkText"], alert["buttonText"], "Learn More"),
		IsActive:  true,
		Type:      firstString(alert["type"], "announcement"),
		Priority:  int(number(alert["priority"])),
		StartDate: str(alert["startDate"]),
		EndDate:   str(alert["endDate"]),
		CreatedAt: str(alert["createdAt"]),
		UpdatedAt: str(alert["updatedAt"]),
	}
	a.DocumentID = firstString(alert["documentId"], strconv.FormatInt(a.ID, 10))
	if b, ok := alert["isActive"].(bool); ok {
		a.IsActive = b
	}
	return a
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

func firstString(values ...any) string {
	for _, v := range values {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}
