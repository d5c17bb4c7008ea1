package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"loveinaction/internal/models"
)

// AuthResponse is returned by the users-permissions auth endpoints.
// JWT is empty when registration awaits email confirmation.
type AuthResponse struct {
	JWT  string      `json:"jwt"`
	User models.User `json:"user"`
}

func (c *Client) authCall(ctx context.Context, path string, body any) (*AuthResponse, error) {
	raw, err := c.Raw(ctx, http.MethodPost, path, nil, body, nil)
	if err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	return &resp, nil
}

// Login exchanges credentials for a JWT
func (c *Client) Login(ctx context.Context, identifier, password string) (*AuthResponse, error) {
	return c.authCall(ctx, "/api/auth/local", map[string]string{
		"identifier": identifier,
		"password":   password,
	})
}

// Register creates a users-permissions account
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	return c.authCall(ctx, "/api/auth/local/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
}

// Me returns the user owning the client's token
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	raw, err := c.Raw(ctx, http.MethodGet, "/api/users/me", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// ForgotPassword asks the CMS to email a reset code
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.Raw(ctx, http.MethodPost, "/api/auth/forgot-password", nil, map[string]string{"email": email}, nil)
	return err
}

// ResetPassword sets a new password using the emailed code
func (c *Client) ResetPassword(ctx context.Context, code, password, confirmation string) (*AuthResponse, error) {
	return c.authCall(ctx, "/api/auth/reset-password", map[string]string{
		"code":                 code,
		"password":             password,
		"passwordConfirmation": confirmation,
	})
}
