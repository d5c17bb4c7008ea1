package handlers

import (
	"net/http"

	"loveinaction/internal/models"
	"loveinaction/internal/service"
)

// editableRequestFields are the fields a sponsor may change on their own request
var editableRequestFields = map[string]bool{
	"firstName": true, "lastName": true, "phone": true, "address": true,
	"city": true, "country": true, "monthlyContribution": true, "motivation": true,
	"preferredAge": true, "preferredGender": true, "hearAboutUs": true,
}

// RequestHandler serves the caller's legacy sponsorship requests
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

type requestView struct {
	models.SponsorshipRequest
	StatusDisplay models.StatusDisplay `json:"statusDisplay"`
}

// List handles GET /api/sponsorship-requests
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	requests, err := h.requests.ListByEmail(r.Context(), session.Email)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to load sponsorship requests", "Error listing sponsorship requests", err)
		return
	}

	views := make([]requestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, requestView{req, service.RequestStatusDisplay(req.Status)})
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"data": views})
}

// Create handles POST /api/sponsorship-requests
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req models.SponsorshipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	req.Email = session.Email

	created, err := h.requests.Create(r.Context(), req)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to submit sponsorship request", "Error creating sponsorship request", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Update handles PUT /api/sponsorship-requests/{id}
func (h *RequestHandler) Update(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	id := r.PathValue("id")

	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	updates := map[string]any{}
	for k, v := range body {
		if editableRequestFields[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		respondWithError(w, http.StatusBadRequest, "No editable fields in request", "", nil)
		return
	}

	owned, err := h.requests.ListByEmail(r.Context(), session.Email)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to load sponsorship requests", "Error listing sponsorship requests", err)
		return
	}
	found := false
	for _, req := range owned {
		if req.DocumentID == id {
			found = true
			break
		}
	}
	if !found {
		respondWithError(w, http.StatusNotFound, "Sponsorship request not found", "", nil)
		return
	}

	updated, err := h.requests.Update(r.Context(), id, updates)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to update sponsorship request", "Error updating sponsorship request", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"data": updated})
}
