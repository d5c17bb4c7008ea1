package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"loveinaction/internal/service"
	"loveinaction/internal/validation"
)

// SponsorshipHandler serves the confirmation link and sponsorship updates
type SponsorshipHandler struct {
	confirmations *service.ConfirmationService
	sponsorships  *service.SponsorshipService
	cmsConfigured bool
}

// NewSponsorshipHandler creates a new sponsorship handler
func NewSponsorshipHandler(confirmations *service.ConfirmationService, sponsorships *service.SponsorshipService, cmsConfigured bool) *SponsorshipHandler {
	return &SponsorshipHandler{
		confirmations: confirmations,
		sponsorships:  sponsorships,
		cmsConfigured: cmsConfigured,
	}
}

// Confirm handles GET /api/confirm-sponsorship?email=&token=
func (h *SponsorshipHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.confirmations.Confirm(r.Context(), q.Get("email"), q.Get("token"))
	if err != nil {
		var vErr validation.ValidationError
		switch {
		case errors.Is(err, service.ErrMissingConfirmParams):
			respondWithError(w, http.StatusBadRequest, "Invalid link - missing email or token", "", nil)
		case errors.As(err, &vErr):
			respondWithError(w, http.StatusBadRequest, vErr.Message, "", nil)
		case errors.Is(err, service.ErrInvalidConfirmToken):
			respondWithError(w, http.StatusUnauthorized, "Invalid token", "", nil)
		case errors.Is(err, service.ErrSponsorCreate):
			respondWithError(w, http.StatusInternalServerError, "Failed to create sponsor record", "Error confirming sponsorship", err)
		default:
			respondWithError(w, http.StatusInternalServerError, ErrServerProcessing, "Error confirming sponsorship", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  result.Status,
		"message": result.Message,
		"data":    result.Sponsor,
	})
}

// Update handles POST /api/update-sponsorship
func (h *SponsorshipHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSponsorshipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	if req.SponsorID == 0 || req.NumberOfChildren == 0 || req.SponsorEmail == "" {
		respondWithError(w, http.StatusBadRequest, "Missing required fields: sponsorId, numberOfChildren, or sponsorEmail", "", nil)
		return
	}
	if err := validation.ValidateChildCount(req.NumberOfChildren); err != nil {
		respondWithError(w, http.StatusBadRequest, "Number of children must be between 1 and 10", "", nil)
		return
	}
	if !h.cmsConfigured {
		respondWithError(w, http.StatusInternalServerError, ErrServerConfiguration, "", nil)
		return
	}

	sponsorship, err := h.sponsorships.Update(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSponsorshipUnavailable):
			respondWithError(w, http.StatusInternalServerError, "Failed to create or find sponsorship record", "Error updating sponsorship", err)
		case errors.Is(err, service.ErrSponsorshipUpdate):
			respondWithError(w, http.StatusInternalServerError, "Failed to update sponsorship request", "Error updating sponsorship", err)
		default:
			respondWithError(w, http.StatusInternalServerError, ErrServerProcessing, "Error updating sponsorship", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Successfully updated sponsorship request for %d children", req.NumberOfChildren),
		"data":    sponsorship,
	})
}
