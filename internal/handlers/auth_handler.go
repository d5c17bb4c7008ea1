package handlers

import (
	"errors"
	"log"
	"net/http"

	"loveinaction/internal/cms"
	"loveinaction/internal/models"
	"loveinaction/internal/security"
	"loveinaction/internal/service"
	"loveinaction/internal/validation"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, csrf *security.CSRFGenerator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		csrf:        csrf,
	}
}

type authResponse struct {
	User       *models.AuthUser `json:"user"`
	HasProfile bool             `json:"hasProfile"`
	CSRFToken  string           `json:"csrfToken,omitempty"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Identifier, req.Password)
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		respondWithError(w, http.StatusBadRequest, "Email and password are required", "", nil)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password", "", nil)
		return
	case err != nil:
		respondWithError(w, http.StatusBadGateway, "Login failed", "Error logging in", err)
		return
	}

	h.startSession(w, r, session, user, http.StatusOK)
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	result, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondWithAuthError(w, err, "Registration failed", "Error registering user")
		return
	}

	if result.EmailConfirmationRequired {
		respondWithJSON(w, http.StatusOK, map[string]any{
			"emailConfirmationRequired": true,
			"user":                      result.User,
		})
		return
	}
	h.startSession(w, r, result.Session, result.User, http.StatusCreated)
}

// Me handles GET /api/auth/me, re-validating the session's CMS token
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := security.SessionIDFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrSessionRequired, "", nil)
		return
	}

	session, user, err := h.authService.Me(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrSessionExpired) {
			security.ClearSessionCookie(w, r)
			respondWithError(w, http.StatusUnauthorized, ErrSessionRequired, "", nil)
			return
		}
		respondWithError(w, http.StatusBadGateway, "Failed to load user", "Error validating session", err)
		return
	}

	token, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error generating CSRF token", err)
		return
	}
	respondWithJSON(w, http.StatusOK, authResponse{User: user, HasProfile: user.HasProfile(), CSRFToken: token})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := security.SessionIDFromRequest(r); ok {
		if err := h.authService.Logout(sessionID); err != nil {
			log.Printf("Error logging out: %v", err)
		}
	}
	security.ClearSessionCookie(w, r)
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		var vErr validation.ValidationError
		if errors.As(err, &vErr) {
			respondWithError(w, http.StatusBadRequest, vErr.Message, "", nil)
			return
		}
		// Unknown addresses are not revealed
		log.Printf("Error requesting password reset: %v", err)
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code                 string `json:"code"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"passwordConfirmation"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	session, user, err := h.authService.ResetPassword(r.Context(), req.Code, req.Password, req.PasswordConfirmation)
	if err != nil {
		h.respondWithAuthError(w, err, "Password reset failed", "Error resetting password")
		return
	}
	if session == nil {
		respondWithJSON(w, http.StatusOK, authResponse{User: user})
		return
	}
	h.startSession(w, r, session, user, http.StatusOK)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, session *models.Session, user *models.AuthUser, status int) {
	token, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error generating CSRF token", err)
		return
	}
	security.SetSessionCookie(w, r, session.ID, session.ExpiresAt)
	respondWithJSON(w, status, authResponse{User: user, HasProfile: user.HasProfile(), CSRFToken: token})
}

// respondWithAuthError maps validation failures and CMS rejections to 400
func (h *AuthHandler) respondWithAuthError(w http.ResponseWriter, err error, userMsg, logMsg string) {
	var vErr validation.ValidationError
	if errors.As(err, &vErr) {
		respondWithError(w, http.StatusBadRequest, vErr.Message, "", nil)
		return
	}
	var apiErr *cms.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && apiErr.Message != "" {
		respondWithError(w, http.StatusBadRequest, apiErr.Message, logMsg, err)
		return
	}
	respondWithError(w, http.StatusBadGateway, userMsg, logMsg, err)
}
