package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
)

// CSRFHeader carries the token on session-authenticated writes
const CSRFHeader = "X-CSRF-Token"

var ErrNoSession = errors.New("session ID is required")

// CSRFGenerator issues per-session tokens for the sponsorship request forms.
// A token is an HMAC of the session id under a key derived from
// SESSION_SECRET, so any replica can check a token another one issued.
type CSRFGenerator struct {
	key []byte
}

// NewCSRFGenerator derives the CSRF key from secret. An empty secret gets a
// random key, valid only for this process.
func NewCSRFGenerator(secret string) *CSRFGenerator {
	if secret == "" {
		log.Println("Warning: SESSION_SECRET is empty, CSRF tokens will not survive a restart")
		random := make([]byte, 32)
		rand.Read(random)
		return &CSRFGenerator{key: random}
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("loveinaction/csrf"))
	return &CSRFGenerator{key: mac.Sum(nil)}
}

// GenerateToken returns the CSRF token for sessionID
func (g *CSRFGenerator) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}
	return base64.RawURLEncoding.EncodeToString(g.sum(sessionID)), nil
}

// ValidateToken reports whether token is the CSRF token for sessionID
func (g *CSRFGenerator) ValidateToken(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(g.sum(sessionID), raw)
}

// ValidateRequest checks the X-CSRF-Token header of r against sessionID
func (g *CSRFGenerator) ValidateRequest(r *http.Request, sessionID string) bool {
	return g.ValidateToken(sessionID, r.Header.Get(CSRFHeader))
}

func (g *CSRFGenerator) sum(sessionID string) []byte {
	mac := hmac.New(sha256.New, g.key)
	mac.Write([]byte(sessionID))
	return mac.Sum(nil)
}
