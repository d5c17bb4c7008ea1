package models

// Announcement is site-wide banner content, sourced from CMS alerts
type Announcement struct {
	ID         int64  `json:"id"`
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Link       string `json:"link,omitempty"`
	LinkText   string `json:"linkText,omitempty"`
	IsActive   bool   `json:"isActive"`
	Type       string `json:"type,omitempty"`
	Priority   int    `json:"priority"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}
