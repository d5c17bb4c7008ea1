package models

// SponsorshipRequest is the legacy application record awaiting conversion
// into a Sponsor and Sponsorship pair.
type SponsorshipRequest struct {
	ID                  int64   `json:"id,omitempty"`
	DocumentID          string  `json:"documentId,omitempty"`
	FirstName           string  `json:"firstName,omitempty"`
	LastName            string  `json:"lastName,omitempty"`
	Email               string  `json:"email"`
	Phone               string  `json:"phone,omitempty"`
	Address             string  `json:"address,omitempty"`
	City                string  `json:"city,omitempty"`
	Country             string  `json:"country,omitempty"`
	MonthlyContribution float64 `json:"monthlyContribution,omitempty"`
	Motivation          string  `json:"motivation,omitempty"`
	Status              string  `json:"status,omitempty"`
	SubmittedAt         string  `json:"submittedAt,omitempty"`
	ProcessedAt         string  `json:"processedAt,omitempty"`
	ProcessedBy         string  `json:"processedBy,omitempty"`
	PreferredAge        string  `json:"preferredAge,omitempty"`
	PreferredGender     string  `json:"preferredGender,omitempty"`
	HearAboutUs         string  `json:"hearAboutUs,omitempty"`
	Notes               string  `json:"notes,omitempty"`
}

// StatusDisplay is the human readable rendering of a request status
type StatusDisplay struct {
	Text        string `json:"text"`
	Color       string `json:"color"`
	Description string `json:"description"`
}
