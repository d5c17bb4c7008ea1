package handlers

import (
	"net/http"

	"loveinaction/internal/models"
	"loveinaction/internal/service"
)

// CategoryHandler answers who the caller is to the sponsorship program
type CategoryHandler struct {
	categories *service.CategoryService
	sponsors   *service.SponsorService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories *service.CategoryService, sponsors *service.SponsorService) *CategoryHandler {
	return &CategoryHandler{categories: categories, sponsors: sponsors}
}

type categoryResponse struct {
	service.CategoryInfo
	Navigation  service.Navigation `json:"navigation"`
	RedirectURL string             `json:"redirectUrl,omitempty"`
}

// Category handles GET /api/me/category. An optional ?path= asks whether
// that page should redirect.
func (h *CategoryHandler) Category(w http.ResponseWriter, r *http.Request) {
	info := h.categories.Resolve(r.Context(), GetSessionFromContext(r.Context()))
	respondWithJSON(w, http.StatusOK, categoryResponse{
		CategoryInfo: info,
		Navigation:   service.NavigationFor(info),
		RedirectURL:  service.RedirectURL(info, r.URL.Query().Get("path")),
	})
}

// Sponsor handles GET /api/me/sponsor
func (h *CategoryHandler) Sponsor(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	sponsor, err := h.sponsors.FindByEmail(r.Context(), session.Email, "children", "sponsorship")
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to load sponsor profile", "Error fetching sponsor", err)
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		Sponsor *models.Sponsor       `json:"sponsor"`
		Status  service.SponsorStatus `json:"status"`
	}{sponsor, service.SponsorStatusInfo(sponsor)})
}

// AvailableChildren handles GET /api/children/available-count
func (h *CategoryHandler) AvailableChildren(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int{"count": h.sponsors.AvailableChildrenCount(r.Context())})
}
