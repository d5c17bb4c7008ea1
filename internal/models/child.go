package models

// Child is a sponsee profile
type Child struct {
	ID         int64       `json:"id"`
	DocumentID string      `json:"documentId"`
	FullName   string      `json:"fullName"`
	FirstName  string      `json:"firstName,omitempty"`
	LastName   string      `json:"lastName,omitempty"`
	Age        int         `json:"age,omitempty"`
	Gender     string      `json:"gender,omitempty"`
	School     string      `json:"school,omitempty"`
	Grade      string      `json:"grade,omitempty"`
	Family     string      `json:"family,omitempty"`
	Location   string      `json:"location,omitempty"`
	Bio        string      `json:"bio,omitempty"`
	Images     []Media     `json:"images,omitempty"`
	Sponsor    *SponsorRef `json:"sponsor,omitempty"`
	CreatedAt  string      `json:"createdAt,omitempty"`
}

// DisplayName falls back to first/last name for records without fullName
func (c *Child) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	if c.FirstName == "" {
		return c.LastName
	}
	return c.FirstName + " " + c.LastName
}

// SponsorID returns the id of the linked sponsor, or 0
func (c *Child) SponsorID() int64 {
	if c.Sponsor == nil {
		return 0
	}
	if c.Sponsor.ID != 0 {
		return c.Sponsor.ID
	}
	if c.Sponsor.Sponsor != nil {
		return c.Sponsor.Sponsor.ID
	}
	return 0
}

// IsAvailable reports whether no sponsor is linked
func (c *Child) IsAvailable() bool {
	return !c.Sponsor.IsSet()
}

// Media is an uploaded file in the CMS media library
type Media struct {
	ID              int64   `json:"id"`
	DocumentID      string  `json:"documentId,omitempty"`
	Name            string  `json:"name"`
	AlternativeText string  `json:"alternativeText,omitempty"`
	URL             string  `json:"url"`
	Mime            string  `json:"mime,omitempty"`
	Size            float64 `json:"size,omitempty"`
}
