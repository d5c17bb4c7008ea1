package service

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"loveinaction/internal/cms"
	"loveinaction/internal/models"
)

// SponsorService reads sponsor and child records
type SponsorService struct {
	cms *cms.Client
}

// NewSponsorService creates a new sponsor service
func NewSponsorService(client *cms.Client) *SponsorService {
	return &SponsorService{cms: client}
}

// FindByEmail returns the sponsor registered under email, or nil when there
// is none. A content type that does not exist yet also yields nil.
func (s *SponsorService) FindByEmail(ctx context.Context, email string, populate ...string) (*models.Sponsor, error) {
	q := cms.NewQuery().Eq("email", email)
	if len(populate) > 0 {
		q.Populate(populate...)
	}

	var sponsors []models.Sponsor
	if err := s.cms.Find(ctx, "sponsors", q, &sponsors); err != nil {
		if cms.IsNotFound(err) {
			log.Printf("Sponsors API not available yet: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch sponsor profile: %w", err)
	}
	if len(sponsors) == 0 {
		return nil, nil
	}
	return &sponsors[0], nil
}

// AssignedChildrenCount counts children linked to sponsorID. Two server-side
// filters are tried before falling back to filtering a full listing; the
// first non-empty result wins.
func (s *SponsorService) AssignedChildrenCount(ctx context.Context, sponsorID int64) int {
	id := strconv.FormatInt(sponsorID, 10)
	attempts := []struct {
		name       string
		query      *cms.Query
		clientSide bool
	}{
		{"filter by sponsor id", cms.NewQuery().Filter(id, "sponsor").Populate("sponsor"), false},
		{"simple sponsor filter", cms.NewQuery().Eq("sponsor", id).Populate("sponsor"), false},
		{"all children", cms.NewQuery().Populate("sponsor").PageSize(100), true},
	}

	for _, attempt := range attempts {
		var children []models.Child
		if err := s.cms.Find(ctx, "children", attempt.query, &children); err != nil {
			log.Printf("Children count attempt %q failed: %v", attempt.name, err)
			continue
		}
		count := len(children)
		if attempt.clientSide {
			count = 0
			for i := range children {
				if children[i].SponsorID() == sponsorID {
					count++
				}
			}
		}
		if count > 0 {
			return count
		}
	}
	return 0
}

// AvailableChildrenCount counts children with no sponsor. When the CMS
// cannot be read it answers 1 so sponsor options stay visible.
func (s *SponsorService) AvailableChildrenCount(ctx context.Context) int {
	var children []models.Child
	q := cms.NewQuery().Populate("sponsor").PageSize(100)
	if err := s.cms.Find(ctx, "children", q, &children); err != nil {
		log.Printf("Error fetching available children count: %v", err)
		return 1
	}
	available := 0
	for i := range children {
		if children[i].IsAvailable() {
			available++
		}
	}
	return available
}

// SponsorStatus is the display state of a sponsor profile
type SponsorStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	HasChild  bool   `json:"hasChild"`
	ChildName string `json:"childName,omitempty"`
}

// SponsorStatusInfo derives the profile status shown to a sponsor
func SponsorStatusInfo(sponsor *models.Sponsor) SponsorStatus {
	if sponsor == nil {
		return SponsorStatus{Status: "none", Message: "No sponsorship found"}
	}

	if child := sponsor.AssignedChild(); child != nil {
		return SponsorStatus{
			Status:    "matched",
			Message:   "You are sponsoring " + child.DisplayName(),
			HasChild:  true,
			ChildName: child.DisplayName(),
		}
	}

	if !sponsor.ProfileComplete {
		return SponsorStatus{Status: "processing", Message: "Your profile is being processed"}
	}

	switch sponsor.SponsorshipStatus {
	case models.LegacyStatusRequestSubmitted, models.StatusPending:
		return SponsorStatus{Status: "pending", Message: "Your sponsorship is under review"}
	case models.StatusMatched:
		return SponsorStatus{Status: "matched-no-child", Message: "Match approved - child assignment pending"}
	default:
		return SponsorStatus{Status: "unknown", Message: "Status unknown"}
	}
}
