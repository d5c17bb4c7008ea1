package security

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName holds the opaque session id; the CMS JWT never leaves the server
const SessionCookieName = "session_id"

// GenerateSessionID returns a random v4 UUID
func GenerateSessionID() string {
	return uuid.New().String()
}

// SessionIDFromRequest returns the session id carried by the cookie. Values
// that are not UUIDs are rejected before any store lookup.
func SessionIDFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// IsSecureRequest reports whether the client reached us over HTTPS, directly
// or through the TLS-terminating proxy in front of the API.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return r.URL.Scheme == "https"
}

// SetSessionCookie issues the HttpOnly session cookie until expires
func SetSessionCookie(w http.ResponseWriter, r *http.Request, id string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie
func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}
