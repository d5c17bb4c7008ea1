package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"loveinaction/internal/cms"
	"loveinaction/internal/models"
	"loveinaction/internal/security"
	"loveinaction/internal/validation"
)

var (
	ErrMissingCredentials = errors.New("identifier and password are required")
	ErrInvalidCredentials = errors.New("invalid identifier or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// SessionStore persists sessions holding CMS tokens
type SessionStore interface {
	CreateSession(session *models.Session) error
	GetSession(sessionID string) (*models.Session, error)
	DeleteSession(sessionID string) error
	DeleteExpiredSessions() (int64, error)
}

// RegisterResult is a registration outcome. Session is nil when the CMS
// requires the address to be confirmed first.
type RegisterResult struct {
	Session                   *models.Session
	User                      *models.AuthUser
	EmailConfirmationRequired bool
}

// AuthService logs users in against the CMS and keeps their tokens server side
type AuthService struct {
	cms             *cms.Client
	sponsors        *SponsorService
	sessions        SessionStore
	sessionDuration time.Duration
	now             func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(client *cms.Client, sponsors *SponsorService, sessions SessionStore, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		cms:             client.Anonymous(),
		sponsors:        sponsors,
		sessions:        sessions,
		sessionDuration: sessionDuration,
		now:             time.Now,
	}
}

// Login authenticates with the CMS and opens a session
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.Session, *models.AuthUser, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, nil, ErrMissingCredentials
	}

	resp, err := s.cms.Login(ctx, identifier, password)
	if err != nil {
		if cms.StatusCode(err) == http.StatusBadRequest {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to login: %w", err)
	}

	session, err := s.startSession(resp)
	if err != nil {
		return nil, nil, err
	}
	return session, s.withSponsor(ctx, &resp.User), nil
}

// Register creates a CMS account. When the CMS issues a token right away the
// user is logged in as well.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*RegisterResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	resp, err := s.cms.Register(ctx, strings.TrimSpace(username), strings.TrimSpace(email), password)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	user := s.withSponsor(ctx, &resp.User)
	if resp.JWT == "" {
		return &RegisterResult{User: user, EmailConfirmationRequired: true}, nil
	}

	session, err := s.startSession(resp)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Session: session, User: user}, nil
}

// Session returns a live session without contacting the CMS
func (s *AuthService) Session(sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !s.now().Before(session.ExpiresAt) {
		_ = s.sessions.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Me re-validates the session's token against the CMS. A token the CMS no
// longer accepts ends the session.
func (s *AuthService) Me(ctx context.Context, sessionID string) (*models.Session, *models.AuthUser, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.cms.WithToken(session.CMSToken).Me(ctx)
	if err != nil {
		status := cms.StatusCode(err)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			log.Printf("CMS rejected token for session of %s, logging out", session.Email)
			_ = s.sessions.DeleteSession(sessionID)
			return nil, nil, ErrSessionExpired
		}
		return nil, nil, fmt.Errorf("failed to validate session: %w", err)
	}

	return session, s.withSponsor(ctx, user), nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.sessions.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// ForgotPassword asks the CMS to email a reset code
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	if err := s.cms.ForgotPassword(ctx, strings.TrimSpace(email)); err != nil {
		return fmt.Errorf("failed to request password reset: %w", err)
	}
	return nil
}

// ResetPassword sets a new password with the emailed code and logs the user in
func (s *AuthService) ResetPassword(ctx context.Context, code, password, confirmation string) (*models.Session, *models.AuthUser, error) {
	if code == "" {
		return nil, nil, validation.ValidationError{Field: "code", Message: "Reset code is required"}
	}
	if err := validation.ValidatePasswordConfirmation(password, confirmation); err != nil {
		return nil, nil, err
	}

	resp, err := s.cms.ResetPassword(ctx, code, password, confirmation)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reset password: %w", err)
	}
	if resp.JWT == "" {
		return nil, &models.AuthUser{User: resp.User}, nil
	}

	session, err := s.startSession(resp)
	if err != nil {
		return nil, nil, err
	}
	return session, s.withSponsor(ctx, &resp.User), nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions()
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

func (s *AuthService) startSession(resp *cms.AuthResponse) (*models.Session, error) {
	now := s.now()
	session := &models.Session{
		ID:        security.GenerateSessionID(),
		CMSToken:  resp.JWT,
		UserID:    resp.User.ID,
		Email:     resp.User.Email,
		ExpiresAt: security.SessionExpiry(resp.JWT, now, s.sessionDuration),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// withSponsor attaches the sponsor profile registered under the user's email.
// A failed lookup leaves the user without a profile.
func (s *AuthService) withSponsor(ctx context.Context, user *models.User) *models.AuthUser {
	authUser := &models.AuthUser{User: *user}
	if user.Email == "" || s.sponsors == nil {
		return authUser
	}
	sponsor, err := s.sponsors.FindByEmail(ctx, user.Email, "sponsorship", "children")
	if err != nil {
		log.Printf("Error fetching sponsor for %s: %v", user.Email, err)
		return authUser
	}
	authUser.Sponsor = sponsor
	return authUser
}
