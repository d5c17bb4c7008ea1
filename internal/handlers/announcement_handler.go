package handlers

import (
	"net/http"

	"loveinaction/internal/service"
)

// AnnouncementHandler serves site-wide banners
type AnnouncementHandler struct {
	announcements *service.AnnouncementService
}

// NewAnnouncementHandler creates a new announcement handler
func NewAnnouncementHandler(announcements *service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

// List handles GET /api/announcements
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{"data": h.announcements.Active(r.Context())})
}

// Top handles GET /api/announcements/top; data is null when nothing is active
func (h *AnnouncementHandler) Top(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{"data": h.announcements.Top(r.Context())})
}

// Alert handles GET /api/alerts/{id}
func (h *AnnouncementHandler) Alert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.announcements.Alert(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to load alert", "Error fetching alert", err)
		return
	}
	if alert == nil {
		respondWithError(w, http.StatusNotFound, "Alert not found", "", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"data": alert})
}
