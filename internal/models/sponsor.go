package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Sponsorship statuses
const (
	StatusSubmitted = "submitted"
	StatusPending   = "pending"
	StatusMatched   = "matched"
	StatusRejected  = "rejected"

	// LegacyStatusRequestSubmitted is the sponsor-level status used before
	// sponsorship records existed.
	LegacyStatusRequestSubmitted = "request_submitted"
)

// Sponsor is a donor record tied to a user account by email
type Sponsor struct {
	ID                  int64        `json:"id"`
	DocumentID          string       `json:"documentId"`
	FirstName           string       `json:"firstName,omitempty"`
	LastName            string       `json:"lastName,omitempty"`
	Email               string       `json:"email"`
	Phone               string       `json:"phone,omitempty"`
	Address             string       `json:"address,omitempty"`
	City                string       `json:"city,omitempty"`
	Country             string       `json:"country,omitempty"`
	MonthlyContribution float64      `json:"monthlyContribution,omitempty"`
	Motivation          string       `json:"motivation,omitempty"`
	SponsorshipStatus   string       `json:"sponsorshipStatus,omitempty"`
	ProfileComplete     bool         `json:"profileComplete"`
	PreferredAge        string       `json:"preferredAge,omitempty"`
	PreferredGender     string       `json:"preferredGender,omitempty"`
	HearAboutUs         string       `json:"hearAboutUs,omitempty"`
	Notes               string       `json:"notes,omitempty"`
	Sponsorship         *Sponsorship `json:"sponsorship,omitempty"`
	Children            []Child      `json:"children,omitempty"`
	CreatedAt           string       `json:"createdAt,omitempty"`
	UpdatedAt           string       `json:"updatedAt,omitempty"`
}

// AssignedChild returns the first linked child, or nil
func (s *Sponsor) AssignedChild() *Child {
	if s == nil || len(s.Children) == 0 {
		return nil
	}
	return &s.Children[0]
}

// HasSponsorship reports whether the sponsor side of the relation resolves
func (s *Sponsor) HasSponsorship() bool {
	return s != nil && s.Sponsorship != nil && s.Sponsorship.ID != 0
}

// FullName joins first and last name
func (s *Sponsor) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Sponsorship tracks match status between a sponsor and assigned children
type Sponsorship struct {
	ID                int64    `json:"id"`
	DocumentID        string   `json:"documentId"`
	SponsorshipStatus string   `json:"sponsorshipStatus"`
	NumberOfChildren  int      `json:"numberOfChildren"`
	Sponsor           *Sponsor `json:"sponsor,omitempty"`
}

// IsActive reports whether the sponsorship still awaits a match
func (s *Sponsorship) IsActive() bool {
	if s == nil {
		return false
	}
	return s.SponsorshipStatus == StatusSubmitted || s.SponsorshipStatus == StatusPending
}

// SponsorRef is a relation to a sponsor that the CMS returns either as an
// embedded object or as a bare id.
type SponsorRef struct {
	ID      int64
	Sponsor *Sponsor
}

// UnmarshalJSON accepts null, a number, a numeric string or an object
func (r *SponsorRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = SponsorRef{}
		return nil
	}

	switch data[0] {
	case '{':
		var s Sponsor
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = SponsorRef{ID: s.ID, Sponsor: &s}
		return nil
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		id, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			// documentId strings carry no numeric id
			*r = SponsorRef{Sponsor: &Sponsor{DocumentID: str}}
			return nil
		}
		*r = SponsorRef{ID: id}
		return nil
	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = SponsorRef{ID: id}
		return nil
	}
}

// MarshalJSON writes the embedded sponsor when known, else the id
func (r SponsorRef) MarshalJSON() ([]byte, error) {
	if r.Sponsor != nil {
		return json.Marshal(r.Sponsor)
	}
	if r.ID == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// IsSet reports whether the relation points anywhere
func (r *SponsorRef) IsSet() bool {
	return r != nil && (r.ID != 0 || r.Sponsor != nil)
}
