package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"loveinaction/internal/models"
	"loveinaction/internal/service"
)

// RepairRunLister reads the repair audit trail
type RepairRunLister interface {
	ListRecent(limit int) ([]models.RepairRun, error)
}

// AdminHandler handles the admin-key guarded maintenance routes
type AdminHandler struct {
	relations   *service.RelationService
	maintenance *service.MaintenanceService
	runs        RepairRunLister
}

// NewAdminHandler creates a new admin handler. runs may be nil.
func NewAdminHandler(relations *service.RelationService, maintenance *service.MaintenanceService, runs RepairRunLister) *AdminHandler {
	return &AdminHandler{
		relations:   relations,
		maintenance: maintenance,
		runs:        runs,
	}
}

// DetectOrphans handles GET /api/admin/fix-relations
func (h *AdminHandler) DetectOrphans(w http.ResponseWriter, r *http.Request) {
	log.Println("Starting orphaned sponsorship detection")

	result, err := h.relations.Detect(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Server error detecting orphaned sponsorships", "Error detecting orphaned sponsorships", err)
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.DetectResult
	}{true, result})
}

// RepairOrphans handles POST /api/admin/fix-relations
func (h *AdminHandler) RepairOrphans(w http.ResponseWriter, r *http.Request) {
	log.Println("Starting orphaned sponsorship repair")

	result, err := h.relations.Repair(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Server error repairing orphaned sponsorships", "Error repairing orphaned sponsorships", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Repair completed: %d successful, %d failed", result.RepairsSuccessful, result.RepairsFailed),
		"result":  result,
	})
}

// EnsureRelation handles POST /api/admin/ensure-bidirectional-relation
func (h *AdminHandler) EnsureRelation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SponsorshipID flexibleID `json:"sponsorshipId"`
		SponsorID     flexibleID `json:"sponsorId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	if req.SponsorshipID == "" || req.SponsorID == "" {
		respondWithError(w, http.StatusBadRequest, ErrMissingRelationParams, "", nil)
		return
	}

	result, err := h.relations.Ensure(r.Context(), string(req.SponsorshipID), string(req.SponsorID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			respondWithError(w, http.StatusNotFound, "Sponsorship or sponsor not found", "", nil)
		case errors.Is(err, service.ErrEnsureUpdate):
			respondWithError(w, http.StatusInternalServerError, "Failed to update bidirectional relations", "Error ensuring relation", err)
		default:
			respondWithError(w, http.StatusInternalServerError, "Server error ensuring bidirectional relation", "Error ensuring relation", err)
		}
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// RepairRuns handles GET /api/admin/repair-runs?limit=N
func (h *AdminHandler) RepairRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if h.runs == nil {
		respondWithJSON(w, http.StatusOK, map[string]any{"runs": []models.RepairRun{}})
		return
	}

	runs, err := h.runs.ListRecent(limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load repair runs", "Error listing repair runs", err)
		return
	}
	if runs == nil {
		runs = []models.RepairRun{}
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// Duplicates handles GET /api/admin/duplicates
func (h *AdminHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	dups, err := h.maintenance.CheckDuplicates(r.Context())
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to check duplicates", "Error checking duplicate children", err)
		return
	}
	if dups == nil {
		dups = []service.DuplicateGroup{}
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"duplicates": dups})
}

// Export handles GET /api/admin/export as a JSON download
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.maintenance.Export(r.Context(), &buf); err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to export records", "Error exporting records", err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=loveinaction_export_%s.json", timestamp))
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Error writing export: %v", err)
	}
}

// flexibleID accepts a JSON number or string
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "null" || s == "0" {
		s = ""
	}
	*f = flexibleID(s)
	return nil
}
