package service

import (
	"context"
	"log"

	"loveinaction/internal/models"
)

// Category decides which calls to action a visitor sees
type Category string

const (
	CategoryPublic  Category = "PUBLIC"
	CategoryUser    Category = "USER"
	CategorySponsor Category = "SPONSOR"
)

// CategoryInput is everything categorization depends on
type CategoryInput struct {
	Authenticated         bool
	HasProfile            bool
	AssignedChildrenCount int
	PendingRequestsCount  int
}

// CategoryInfo is the categorization result
type CategoryInfo struct {
	Category              Category `json:"category"`
	HasProfile            bool     `json:"hasProfile"`
	HasAssignedChildren   bool     `json:"hasAssignedChildren"`
	HasPendingRequests    bool     `json:"hasPendingRequests"`
	AssignedChildrenCount int      `json:"assignedChildrenCount"`
	PendingRequestsCount  int      `json:"pendingRequestsCount"`
}

// Categorize is SPONSOR iff there are assigned children or pending requests,
// USER when a sponsor profile exists and PUBLIC otherwise.
func Categorize(in CategoryInput) CategoryInfo {
	if !in.Authenticated {
		return CategoryInfo{Category: CategoryPublic}
	}

	info := CategoryInfo{
		Category:              CategoryPublic,
		HasProfile:            in.HasProfile,
		HasAssignedChildren:   in.AssignedChildrenCount > 0,
		HasPendingRequests:    in.PendingRequestsCount > 0,
		AssignedChildrenCount: in.AssignedChildrenCount,
		PendingRequestsCount:  in.PendingRequestsCount,
	}
	switch {
	case info.HasAssignedChildren || info.HasPendingRequests:
		info.Category = CategorySponsor
	case info.HasProfile:
		info.Category = CategoryUser
	}
	return info
}

// PendingRequests counts the sponsor's open request: a profile with no child
// whose sponsorship awaits a match or whose profile is still incomplete.
func PendingRequests(sponsor *models.Sponsor) int {
	if sponsor == nil || sponsor.AssignedChild() != nil {
		return 0
	}
	if sponsor.Sponsorship.IsActive() || !sponsor.ProfileComplete {
		return 1
	}
	return 0
}

// Navigation is the header button configuration for a category
type Navigation struct {
	ShowLoginButton           bool   `json:"showLoginButton"`
	ShowSponsorButton         bool   `json:"showSponsorButton"`
	ShowMyChildrenButton      bool   `json:"showMyChildrenButton"`
	ShowCompleteProfileButton bool   `json:"showCompleteProfileButton"`
	LoginButtonText           string `json:"loginButtonText"`
	LoginButtonHref           string `json:"loginButtonHref"`
	SponsorButtonText         string `json:"sponsorButtonText"`
	SponsorButtonHref         string `json:"sponsorButtonHref"`
	MyChildrenButtonHref      string `json:"myChildrenButtonHref"`
	CompleteProfileButtonHref string `json:"completeProfileButtonHref"`
}

// NavigationFor returns the buttons to render for info's category
func NavigationFor(info CategoryInfo) Navigation {
	nav := Navigation{
		ShowSponsorButton:         true,
		ShowMyChildrenButton:      true,
		LoginButtonText:           "Login",
		LoginButtonHref:           "/login",
		SponsorButtonText:         "Sponsor a Child",
		SponsorButtonHref:         "/sponsor-a-child",
		MyChildrenButtonHref:      "/child-profile",
		CompleteProfileButtonHref: "/complete-profile",
	}
	switch info.Category {
	case CategoryPublic:
		nav.SponsorButtonHref = "/register"
	case CategorySponsor:
		nav.ShowSponsorButton = false
	}
	return nav
}

// ShouldRedirectFromSponsorPage reports whether a sponsor already has a
// child or a request in flight
func ShouldRedirectFromSponsorPage(info CategoryInfo) bool {
	return info.Category == CategorySponsor && (info.HasAssignedChildren || info.HasPendingRequests)
}

// RedirectURL returns where to send the caller instead of path, or ""
func RedirectURL(info CategoryInfo, path string) string {
	if path == "/sponsor-a-child" && ShouldRedirectFromSponsorPage(info) {
		return "/child-profile"
	}
	return ""
}

// CategoryService resolves the category of a session
type CategoryService struct {
	sponsors *SponsorService
}

// NewCategoryService creates a new category service
func NewCategoryService(sponsors *SponsorService) *CategoryService {
	return &CategoryService{sponsors: sponsors}
}

// Resolve categorizes the caller behind session, which may be nil. The CMS
// calls run in sequence; any failure degrades an authenticated caller to USER.
func (s *CategoryService) Resolve(ctx context.Context, session *models.Session) CategoryInfo {
	if session == nil {
		return Categorize(CategoryInput{})
	}

	sponsor, err := s.sponsors.FindByEmail(ctx, session.Email, "children", "sponsorship")
	if err != nil {
		log.Printf("Error determining user category for %s: %v", session.Email, err)
		return CategoryInfo{Category: CategoryUser}
	}

	in := CategoryInput{
		Authenticated:        true,
		HasProfile:           sponsor != nil,
		PendingRequestsCount: PendingRequests(sponsor),
	}
	if sponsor != nil {
		in.AssignedChildrenCount = s.sponsors.AssignedChildrenCount(ctx, sponsor.ID)
	}
	return Categorize(in)
}
