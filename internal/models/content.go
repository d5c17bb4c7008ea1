package models

// Blog is a news post; Content holds Markdown
type Blog struct {
	ID          int64  `json:"id"`
	DocumentID  string `json:"documentId"`
	Heading     string `json:"Heading"`
	Summary     string `json:"summary,omitempty"`
	Content     string `json:"content,omitempty"`
	Author      string `json:"author,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
	Cover       *Media `json:"cover,omitempty"`
	ContentHTML string `json:"contentHtml,omitempty"`
}

// Event is a scheduled fundraising or community event
type Event struct {
	ID          int64  `json:"id"`
	DocumentID  string `json:"documentId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location,omitempty"`
	Featured    bool   `json:"featured"`
	Image       *Media `json:"image,omitempty"`
}

// Cause is a fundraising goal
type Cause struct {
	ID           int64   `json:"id"`
	DocumentID   string  `json:"documentId"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	GoalAmount   float64 `json:"goalAmount,omitempty"`
	RaisedAmount float64 `json:"raisedAmount,omitempty"`
	Category     string  `json:"category,omitempty"`
	CauseStatus  string  `json:"causeStatus,omitempty"`
	Featured     bool    `json:"featured"`
	Image        *Media  `json:"image,omitempty"`
}

// Progress returns the percentage raised, capped at 100
func (c *Cause) Progress() int {
	if c.GoalAmount <= 0 {
		return 0
	}
	p := int(c.RaisedAmount/c.GoalAmount*100 + 0.5)
	if p > 100 {
		return 100
	}
	return p
}

// Service is a program the organization runs
type Service struct {
	ID          int64  `json:"id"`
	DocumentID  string `json:"documentId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
	HasDetails  bool   `json:"hasDetails"`
}

// Stat is an impact figure shown on the home page
type Stat struct {
	ID          int64   `json:"id"`
	DocumentID  string  `json:"documentId"`
	Label       string  `json:"label"`
	Value       float64 `json:"value"`
	Description string  `json:"description,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// Link is a navigation, call-to-action or social link
type Link struct {
	ID         int64  `json:"id"`
	DocumentID string `json:"documentId"`
	Label      string `json:"label"`
	URL        string `json:"url"`
	Type       string `json:"type"`
	Platform   string `json:"platform,omitempty"`
	Icon       string `json:"icon,omitempty"`
	IsExternal bool   `json:"isExternal"`
}
