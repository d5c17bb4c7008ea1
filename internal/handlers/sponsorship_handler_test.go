package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"loveinaction/internal/service"
)

func newSponsorshipHandler(stub *stubCMS, cmsConfigured bool) *SponsorshipHandler {
	client := stub.client()
	sponsors := service.NewSponsorService(client)
	linker := service.NewRelationLinker(client, nil)
	email, _ := service.NewEmailService(context.Background(), service.EmailConfig{})
	confirmations := service.NewConfirmationService(client, sponsors, linker, email, []string{"SPONSOR_CONFIRM_2024"})
	return NewSponsorshipHandler(confirmations, service.NewSponsorshipService(client), cmsConfigured)
}

func TestConfirmSponsorshipErrors(t *testing.T) {
	stub := newStubCMS(t)
	h := newSponsorshipHandler(stub, true)

	tests := []struct {
		name    string
		query   string
		status  int
		message string
	}{
		{"missing token", "?email=a@example.com", http.StatusBadRequest, "Invalid link - missing email or token"},
		{"missing email", "?token=SPONSOR_CONFIRM_2024", http.StatusBadRequest, "Invalid link - missing email or token"},
		{"wrong token", "?email=a@example.com&token=guess", http.StatusUnauthorized, "Invalid token"},
		{"bad email", "?email=not-an-email&token=SPONSOR_CONFIRM_2024", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Confirm(rec, httptest.NewRequest(http.MethodGet, "/api/confirm-sponsorship"+tt.query, nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			body := decodeBody(t, rec)
			if tt.message != "" && body["error"] != tt.message {
				t.Fatalf("expected %q, got %v", tt.message, body["error"])
			}
		})
	}
}

func TestConfirmSponsorshipPendingProfile(t *testing.T) {
	stub := newStubCMS(t)
	stub.data("GET /api/sponsors", []map[string]any{
		{"id": 4, "documentId": "s4", "email": "a@example.com", "profileComplete": false},
	})
	h := newSponsorshipHandler(stub, true)

	rec := httptest.NewRecorder()
	h.Confirm(rec, httptest.NewRequest(http.MethodGet, "/api/confirm-sponsorship?email=a@example.com&token=SPONSOR_CONFIRM_2024", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != service.ConfirmProfilePending {
		t.Fatalf("expected profile-pending, got %v", body["status"])
	}
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body["success"])
	}
	if len(stub.requests(http.MethodPost, "/api/sponsors")) != 0 {
		t.Fatal("existing sponsor must not be recreated")
	}
}

func TestConfirmSponsorshipLookupFailure(t *testing.T) {
	stub := newStubCMS(t)
	stub.fail("GET /api/sponsors", http.StatusInternalServerError, "database down")
	h := newSponsorshipHandler(stub, true)

	rec := httptest.NewRecorder()
	h.Confirm(rec, httptest.NewRequest(http.MethodGet, "/api/confirm-sponsorship?email=a@example.com&token=SPONSOR_CONFIRM_2024", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != ErrServerProcessing {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestUpdateSponsorshipValidation(t *testing.T) {
	stub := newStubCMS(t)
	h := newSponsorshipHandler(stub, true)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing email", `{"sponsorId":1,"numberOfChildren":2}`, "Missing required fields: sponsorId, numberOfChildren, or sponsorEmail"},
		{"missing count", `{"sponsorId":1,"sponsorEmail":"a@example.com"}`, "Missing required fields: sponsorId, numberOfChildren, or sponsorEmail"},
		{"too many", `{"sponsorId":1,"numberOfChildren":11,"sponsorEmail":"a@example.com"}`, "Number of children must be between 1 and 10"},
		{"negative", `{"sponsorId":1,"numberOfChildren":-1,"sponsorEmail":"a@example.com"}`, "Number of children must be between 1 and 10"},
		{"not json", `{`, ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Update(rec, newJSONRequest(http.MethodPost, "/api/update-sponsorship", tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if body := decodeBody(t, rec); body["error"] != tt.message {
				t.Fatalf("expected %q, got %v", tt.message, body["error"])
			}
		})
	}
}

func TestUpdateSponsorshipWithoutSystemToken(t *testing.T) {
	h := newSponsorshipHandler(newStubCMS(t), false)

	rec := httptest.NewRecorder()
	h.Update(rec, newJSONRequest(http.MethodPost, "/api/update-sponsorship", `{"sponsorId":1,"numberOfChildren":2,"sponsorEmail":"a@example.com"}`))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestUpdateSponsorship(t *testing.T) {
	stub := newStubCMS(t)
	stub.data("GET /api/sponsorships", []map[string]any{
		{"id": 9, "documentId": "sp9", "sponsorshipStatus": "matched", "numberOfChildren": 1},
	})
	stub.data("PUT /api/sponsorships/sp9", map[string]any{
		"id": 9, "documentId": "sp9", "sponsorshipStatus": "submitted", "numberOfChildren": 3,
	})
	h := newSponsorshipHandler(stub, true)

	rec := httptest.NewRecorder()
	h.Update(rec, newJSONRequest(http.MethodPost, "/api/update-sponsorship", `{"sponsorId":4,"numberOfChildren":3,"sponsorEmail":"a@example.com"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["message"] != "Successfully updated sponsorship request for 3 children" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	puts := stub.requests(http.MethodPut, "/api/sponsorships/sp9")
	if len(puts) != 1 {
		t.Fatalf("expected one update, got %d", len(puts))
	}
	data := puts[0]["data"].(map[string]any)
	if data["sponsorshipStatus"] != "submitted" || data["numberOfChildren"] != float64(3) {
		t.Fatalf("unexpected update payload %v", data)
	}
}

func TestUpdateSponsorshipCreateFails(t *testing.T) {
	stub := newStubCMS(t)
	stub.data("GET /api/sponsorships", []any{})
	stub.fail("POST /api/sponsorships", http.StatusBadRequest, "sponsor is invalid")
	h := newSponsorshipHandler(stub, true)

	rec := httptest.NewRecorder()
	h.Update(rec, newJSONRequest(http.MethodPost, "/api/update-sponsorship", `{"sponsorId":4,"numberOfChildren":2,"sponsorEmail":"a@example.com"}`))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Failed to create or find sponsorship record" {
		t.Fatalf("unexpected error %v", body["error"])
	}
}
