package models

import "time"

// User represents a CMS users-permissions account
type User struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"documentId,omitempty"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Confirmed  bool      `json:"confirmed"`
	Blocked    bool      `json:"blocked"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// AuthUser is a CMS user with the sponsor record matched by email.
// A nil Sponsor means "registered but not yet sponsoring".
type AuthUser struct {
	User
	Sponsor *Sponsor `json:"sponsor"`
}

// HasProfile reports whether a sponsor record is attached
func (u *AuthUser) HasProfile() bool {
	return u != nil && u.Sponsor != nil
}

// Session represents an authenticated session holding the CMS token server side
type Session struct {
	ID        string
	CMSToken  string
	UserID    int64
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
