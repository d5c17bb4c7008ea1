package repository

import (
	"database/sql"
	"fmt"
	"time"

	"loveinaction/internal/database"
	"loveinaction/internal/models"
)

// SessionRepository handles database operations for sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession stores a new session holding the CMS token
func (r *SessionRepository) CreateSession(session *models.Session) error {
	query := `
		INSERT INTO sessions (id, cms_token, user_id, email, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(query, session.ID, session.CMSToken, session.UserID, session.Email,
		session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(sessionID string) (*models.Session, error) {
	query := `
		SELECT id, cms_token, user_id, email, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.CMSToken,
		&session.UserID,
		&session.Email,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session from the database
func (r *SessionRepository) DeleteSession(sessionID string) error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and reports how many went
func (r *SessionRepository) DeleteExpiredSessions() (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
