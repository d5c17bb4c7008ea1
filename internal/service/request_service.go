package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"loveinaction/internal/cms"
	"loveinaction/internal/models"
)

// RequestService reads and writes legacy sponsorship requests
type RequestService struct {
	cms *cms.Client
}

// NewRequestService creates a new sponsorship request service
func NewRequestService(client *cms.Client) *RequestService {
	return &RequestService{cms: client}
}

// ListByEmail returns the requests submitted under email. A missing content
// type yields an empty list.
func (s *RequestService) ListByEmail(ctx context.Context, email string) ([]models.SponsorshipRequest, error) {
	var requests []models.SponsorshipRequest
	if err := s.cms.Find(ctx, "sponsorship-requests", cms.NewQuery().Eq("email", email), &requests); err != nil {
		if cms.IsNotFound(err) {
			log.Printf("Sponsorship requests API not available yet: %v", err)
			return []models.SponsorshipRequest{}, nil
		}
		return nil, fmt.Errorf("failed to fetch sponsorship requests: %w", err)
	}
	if requests == nil {
		requests = []models.SponsorshipRequest{}
	}
	return requests, nil
}

// Create submits a new request with status pending
func (s *RequestService) Create(ctx context.Context, req models.SponsorshipRequest) (*models.SponsorshipRequest, error) {
	req.ID = 0
	req.DocumentID = ""
	req.Status = models.StatusPending
	req.SubmittedAt = time.Now().UTC().Format(time.RFC3339)

	var created models.SponsorshipRequest
	if err := s.cms.Create(ctx, "sponsorship-requests", req, &created); err != nil {
		return nil, fmt.Errorf("failed to create sponsorship request: %w", err)
	}
	return &created, nil
}

// Update applies updates to the request identified by documentID
func (s *RequestService) Update(ctx context.Context, documentID string, updates map[string]any) (*models.SponsorshipRequest, error) {
	var updated models.SponsorshipRequest
	if err := s.cms.Update(ctx, "sponsorship-requests", documentID, updates, &updated); err != nil {
		return nil, fmt.Errorf("failed to update sponsorship request: %w", err)
	}
	return &updated, nil
}

// RequestStatusDisplay renders a request status for display
func RequestStatusDisplay(status string) models.StatusDisplay {
	switch strings.ToLower(status) {
	case models.StatusSubmitted:
		return models.StatusDisplay{
			Text:        "Email Confirmed",
			Color:       "cyan",
			Description: "Thank you for confirming your email. We're processing your sponsorship request.",
		}
	case models.StatusPending:
		return models.StatusDisplay{
			Text:        "Pending Review",
			Color:       "yellow",
			Description: "Your request is being reviewed by our team.",
		}
	case models.StatusMatched:
		return models.StatusDisplay{
			Text:        "Matched",
			Color:       "green",
			Description: "Congratulations! You've been matched with a child.",
		}
	case models.StatusRejected:
		return models.StatusDisplay{
			Text:        "Needs Attention",
			Color:       "red",
			Description: "Please contact us for more information about your request.",
		}
	default:
		return models.StatusDisplay{
			Text:        "Unknown",
			Color:       "gray",
			Description: "Status information unavailable.",
		}
	}
}
