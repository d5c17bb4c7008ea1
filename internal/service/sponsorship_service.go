package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"loveinaction/internal/cms"
	"loveinaction/internal/models"
	"loveinaction/internal/validation"
)

var (
	ErrMissingSponsorshipFields = errors.New("missing required fields: sponsorId, numberOfChildren, or sponsorEmail")
	ErrSponsorshipUnavailable   = errors.New("failed to create or find sponsorship record")
	ErrSponsorshipUpdate        = errors.New("failed to update sponsorship request")
)

// UpdateSponsorshipRequest asks for more children on an existing sponsor
type UpdateSponsorshipRequest struct {
	SponsorID        int64  `json:"sponsorId"`
	NumberOfChildren int    `json:"numberOfChildren"`
	SponsorEmail     string `json:"sponsorEmail"`
}

// SponsorshipService manages the sponsorship record of a sponsor
type SponsorshipService struct {
	cms *cms.Client
}

// NewSponsorshipService creates a new sponsorship service
func NewSponsorshipService(client *cms.Client) *SponsorshipService {
	return &SponsorshipService{cms: client}
}

// Update resubmits the sponsor's sponsorship for req.NumberOfChildren
// children, creating the record when the sponsor has none.
func (s *SponsorshipService) Update(ctx context.Context, req UpdateSponsorshipRequest) (*models.Sponsorship, error) {
	if req.SponsorID == 0 || req.NumberOfChildren == 0 || req.SponsorEmail == "" {
		return nil, ErrMissingSponsorshipFields
	}
	if err := validation.ValidateChildCount(req.NumberOfChildren); err != nil {
		return nil, err
	}

	sponsorship, err := s.FindBySponsor(ctx, req.SponsorID)
	if err != nil {
		log.Printf("Error finding sponsorship for sponsor %d: %v", req.SponsorID, err)
	}
	if sponsorship == nil {
		sponsorship, err = s.create(ctx, req.SponsorID)
		if err != nil {
			log.Printf("Error creating sponsorship for sponsor %d: %v", req.SponsorID, err)
			return nil, ErrSponsorshipUnavailable
		}
	}

	var updated models.Sponsorship
	err = s.cms.Update(ctx, "sponsorships", sponsorship.DocumentID, map[string]any{
		"sponsorshipStatus": models.StatusSubmitted,
		"numberOfChildren":  req.NumberOfChildren,
	}, &updated)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSponsorshipUpdate, err)
	}
	return &updated, nil
}

// FindBySponsor returns the sponsorship whose sponsor has sponsorID, or nil
func (s *SponsorshipService) FindBySponsor(ctx context.Context, sponsorID int64) (*models.Sponsorship, error) {
	var sponsorships []models.Sponsorship
	q := cms.NewQuery().Filter(sponsorID, "sponsor", "id", "$eq").Populate("sponsor")
	if err := s.cms.Find(ctx, "sponsorships", q, &sponsorships); err != nil {
		return nil, fmt.Errorf("failed to fetch sponsorship records: %w", err)
	}
	if len(sponsorships) == 0 {
		return nil, nil
	}
	return &sponsorships[0], nil
}

func (s *SponsorshipService) create(ctx context.Context, sponsorID int64) (*models.Sponsorship, error) {
	var sponsorship models.Sponsorship
	err := s.cms.Create(ctx, "sponsorships", map[string]any{
		"sponsorshipStatus": models.StatusSubmitted,
		"numberOfChildren":  1,
		"sponsor":           sponsorID,
	}, &sponsorship)
	if err != nil {
		return nil, err
	}
	return &sponsorship, nil
}
