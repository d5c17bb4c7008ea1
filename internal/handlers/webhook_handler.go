package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"loveinaction/internal/service"
)

// WebhookHandler proxies Zeffy donation webhooks to the CMS
type WebhookHandler struct {
	donations *service.DonationService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(donations *service.DonationService) *WebhookHandler {
	return &WebhookHandler{donations: donations}
}

// Zeffy handles POST /zeffy-webhook
func (h *WebhookHandler) Zeffy(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Proxy processing failed", "Error decoding Zeffy webhook", err)
		return
	}

	result, err := h.donations.Forward(r.Context(), body)
	if err != nil {
		if errors.Is(err, service.ErrForwardFailed) {
			log.Printf("Error forwarding donation: %v", err)
			respondWithJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Failed to forward to Strapi",
				"details": result.ForwardDetails,
			})
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Proxy processing failed", "Error forwarding donation", err)
		return
	}

	if result.Duplicate {
		respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "duplicate": true})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "strapi_response": result.CMSResponse})
}

// Health handles GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
