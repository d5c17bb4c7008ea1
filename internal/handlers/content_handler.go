package handlers

import (
	"net/http"
	"strconv"

	"loveinaction/internal/service"
)

// ContentHandler serves the marketing collections
type ContentHandler struct {
	content *service.ContentService
}

// NewContentHandler creates a new content handler
func NewContentHandler(content *service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// List handles GET /api/content/{kind}?limit=&featured=true
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 0 {
		limit = 0
	}
	featured := q.Get("featured") == "true"

	var (
		data any
		err  error
	)
	switch kind := r.PathValue("kind"); kind {
	case "services":
		data, err = h.content.Services(r.Context(), limit, featured)
	case "events":
		data, err = h.content.Events(r.Context(), limit, featured)
	case "causes":
		data, err = h.content.Causes(r.Context(), limit, featured)
	case "blogs":
		data, err = h.content.Blogs(r.Context(), limit)
	case "stats":
		data, err = h.content.Stats(r.Context(), q.Get("category"))
	case "links":
		data, err = h.content.Links(r.Context(), q.Get("type"))
	default:
		respondWithError(w, http.StatusNotFound, "Unknown content type", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to load content", "Error fetching "+r.PathValue("kind"), err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"data": data})
}

// UpcomingEvents handles GET /api/content/events/upcoming
func (h *ContentHandler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.content.UpcomingEvents(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to load events", "Error fetching upcoming events", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"data": events})
}

// Blog handles GET /api/content/blogs/{id}
func (h *ContentHandler) Blog(w http.ResponseWriter, r *http.Request) {
	blog, err := h.content.Blog(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to load blog", "Error fetching blog", err)
		return
	}
	if blog == nil {
		respondWithError(w, http.StatusNotFound, "Blog not found", "", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"data": blog})
}
