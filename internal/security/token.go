package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a CMS-issued JWT without verifying the
// signature. The CMS remains the authority on validity; this only bounds how
// long a local session may outlive the token.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// SessionExpiry returns min(token exp, now+maxAge)
func SessionExpiry(token string, now time.Time, maxAge time.Duration) time.Time {
	expires := now.Add(maxAge)
	if exp, ok := TokenExpiry(token); ok && exp.Before(expires) {
		return exp
	}
	return expires
}
