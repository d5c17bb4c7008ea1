package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"loveinaction/internal/cms"
	"loveinaction/internal/models"
	"loveinaction/internal/validation"
)

var (
	ErrMissingConfirmParams = errors.New("invalid link - missing email or token")
	ErrInvalidConfirmToken  = errors.New("invalid token")
	ErrSponsorCreate        = errors.New("failed to create sponsor record")
)

// Confirmation outcomes
const (
	ConfirmExistingSponsor = "existing-sponsor"
	ConfirmConfirmed       = "confirmed"
	ConfirmProfileComplete = "profile-complete"
	ConfirmProfilePending  = "profile-pending"
)

// ConfirmResult is the answer to a confirmation link
type ConfirmResult struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Sponsor *models.Sponsor `json:"data"`
}

// ConfirmationService handles the email confirmation link sent after a donation
type ConfirmationService struct {
	cms      *cms.Client
	sponsors *SponsorService
	linker   *RelationLinker
	email    *EmailService
	tokens   []string
}

// NewConfirmationService creates a new confirmation service
func NewConfirmationService(client *cms.Client, sponsors *SponsorService, linker *RelationLinker, email *EmailService, tokens []string) *ConfirmationService {
	return &ConfirmationService{
		cms:      client,
		sponsors: sponsors,
		linker:   linker,
		email:    email,
		tokens:   tokens,
	}
}

// Confirm validates the link and makes sure a sponsor with a submitted
// sponsorship exists for email. Confirming twice returns the existing record.
func (s *ConfirmationService) Confirm(ctx context.Context, email, token string) (*ConfirmResult, error) {
	if email == "" || token == "" {
		return nil, ErrMissingConfirmParams
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if !slices.Contains(s.tokens, token) {
		return nil, ErrInvalidConfirmToken
	}

	existing, err := s.sponsors.FindByEmail(ctx, email, "children", "sponsorship")
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.confirmExisting(ctx, existing)
	}

	sponsor, err := s.createMinimalSponsor(ctx, email)
	if err != nil {
		return nil, err
	}
	s.sendConfirmation(ctx, sponsor)
	return &ConfirmResult{
		Status:  ConfirmConfirmed,
		Message: "Sponsorship request created successfully",
		Sponsor: sponsor,
	}, nil
}

func (s *ConfirmationService) confirmExisting(ctx context.Context, sponsor *models.Sponsor) (*ConfirmResult, error) {
	if !sponsor.ProfileComplete {
		return &ConfirmResult{Status: ConfirmProfilePending, Message: "Your profile is being processed", Sponsor: sponsor}, nil
	}
	if sponsor.AssignedChild() != nil {
		return &ConfirmResult{Status: ConfirmExistingSponsor, Message: "You already have an assigned child", Sponsor: sponsor}, nil
	}

	// Profile completed by automation before the link was clicked
	if sponsor.Sponsorship == nil {
		if err := s.createSponsorshipFor(ctx, sponsor); err != nil {
			log.Printf("Failed to create sponsorship record for existing sponsor %s: %v", sponsor.Email, err)
		} else {
			updated, err := s.sponsors.FindByEmail(ctx, sponsor.Email, "children", "sponsorship")
			if err != nil || updated == nil {
				updated = sponsor
			}
			s.sendConfirmation(ctx, updated)
			return &ConfirmResult{Status: ConfirmConfirmed, Message: "Sponsorship request created successfully", Sponsor: updated}, nil
		}
	}

	return &ConfirmResult{Status: ConfirmProfileComplete, Message: "Your profile is complete and under review", Sponsor: sponsor}, nil
}

// createSponsorshipFor adds a submitted sponsorship to an existing sponsor and
// requires the back-relation to verify.
func (s *ConfirmationService) createSponsorshipFor(ctx context.Context, sponsor *models.Sponsor) error {
	sponsorship, err := s.createSponsorship(ctx, sponsor.ID)
	if err != nil {
		return err
	}
	if _, err := s.linker.Link(ctx, sponsor.DocumentID, sponsorship, true); err != nil {
		log.Printf("Orphaned sponsorship %d (%s) for sponsor %s needs repair", sponsorship.ID, sponsorship.DocumentID, sponsor.DocumentID)
		return err
	}
	return nil
}

// createMinimalSponsor creates a placeholder sponsor plus its sponsorship.
// The sponsor is deleted again when the sponsorship cannot be created.
func (s *ConfirmationService) createMinimalSponsor(ctx context.Context, email string) (*models.Sponsor, error) {
	var sponsor models.Sponsor
	err := s.cms.Create(ctx, "sponsors", map[string]any{
		"email":           email,
		"profileComplete": false,
		"firstName":       "",
		"lastName":        "",
	}, &sponsor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSponsorCreate, err)
	}

	sponsorship, err := s.createSponsorship(ctx, sponsor.ID)
	if err != nil {
		log.Printf("Failed to create sponsorship for %s, deleting sponsor %s: %v", email, sponsor.DocumentID, err)
		if delErr := s.cms.Delete(ctx, "sponsors", sponsor.DocumentID); delErr != nil {
			log.Printf("Failed to delete incomplete sponsor record %s: %v", sponsor.DocumentID, delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrSponsorCreate, err)
	}

	link, err := s.linker.Link(ctx, sponsor.DocumentID, sponsorship, false)
	if err != nil {
		log.Printf("Orphaned sponsorship %d (%s) for sponsor %s needs repair: %v", sponsorship.ID, sponsorship.DocumentID, sponsor.DocumentID, err)
		return &sponsor, nil
	}
	if link.Verified {
		sponsor.Sponsorship = sponsorship
	}
	return &sponsor, nil
}

func (s *ConfirmationService) createSponsorship(ctx context.Context, sponsorID int64) (*models.Sponsorship, error) {
	var sponsorship models.Sponsorship
	err := s.cms.Create(ctx, "sponsorships", map[string]any{
		"sponsorshipStatus": models.StatusSubmitted,
		"numberOfChildren":  1,
		"sponsor":           sponsorID,
	}, &sponsorship)
	if err != nil {
		return nil, fmt.Errorf("failed to create sponsorship: %w", err)
	}
	return &sponsorship, nil
}

func (s *ConfirmationService) sendConfirmation(ctx context.Context, sponsor *models.Sponsor) {
	if err := s.email.SendSponsorshipConfirmation(ctx, sponsor.Email, sponsor.FullName()); err != nil {
		log.Printf("Error sending confirmation email to %s: %v", sponsor.Email, err)
	}
}
