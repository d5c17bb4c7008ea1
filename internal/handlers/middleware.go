package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"loveinaction/internal/metrics"
	"loveinaction/internal/models"
	"loveinaction/internal/security"
	"loveinaction/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "session"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService   *service.AuthService
	csrf          *security.CSRFGenerator
	limiter       *security.RateLimiter
	adminKey      *security.AdminKey
	cmsConfigured bool
}

// NewMiddleware creates a new middleware instance. cmsConfigured reports
// whether a system CMS token is available for admin operations.
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, limiter *security.RateLimiter, adminKey *security.AdminKey, cmsConfigured bool) *Middleware {
	return &Middleware{
		authService:   authService,
		csrf:          csrf,
		limiter:       limiter,
		adminKey:      adminKey,
		cmsConfigured: cmsConfigured,
	}
}

// RequireSession is middleware that requires a valid session
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := security.SessionIDFromRequest(r)
		if !ok {
			if _, err := r.Cookie(security.SessionCookieName); err == nil {
				security.ClearSessionCookie(w, r)
			}
			respondWithError(w, http.StatusUnauthorized, ErrSessionRequired, "", nil)
			return
		}

		session, err := m.authService.Session(sessionID)
		if err != nil {
			if !errors.Is(err, service.ErrSessionNotFound) && !errors.Is(err, service.ErrSessionExpired) {
				log.Printf("Error loading session: %v", err)
			}
			security.ClearSessionCookie(w, r)
			respondWithError(w, http.StatusUnauthorized, ErrSessionRequired, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next(w, r.WithContext(ctx))
	}
}

// OptionalSession attaches the session when the cookie names a live one
func (m *Middleware) OptionalSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID, ok := security.SessionIDFromRequest(r); ok {
			if session, err := m.authService.Session(sessionID); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), SessionContextKey, session))
			}
		}
		next(w, r)
	}
}

// CSRFProtect validates the X-CSRF-Token header against the session.
// Must run inside RequireSession.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := GetSessionFromContext(r.Context())
		if session == nil || !m.csrf.ValidateRequest(r, session.ID) {
			respondWithError(w, http.StatusForbidden, ErrInvalidCSRFToken, "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			log.Printf("Rate limit exceeded for %s on %s", ip, r.URL.Path)
			respondWithError(w, http.StatusTooManyRequests, ErrRateLimited, "", nil)
			return
		}
		next(w, r)
	}
}

// RequireAdminKey accepts the repair key from ?key=, the X-Admin-Key header
// or an adminKey field in a JSON body.
func (m *Middleware) RequireAdminKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.cmsConfigured {
			respondWithError(w, http.StatusInternalServerError, ErrServerConfiguration, "STRAPI_API_TOKEN is not set", errors.New("missing system token"))
			return
		}

		key := r.URL.Query().Get("key")
		if key == "" {
			key = r.Header.Get("X-Admin-Key")
		}
		if key == "" && r.Body != nil && r.Method != http.MethodGet {
			key = adminKeyFromBody(w, r)
		}

		if !m.adminKey.Configured() || !m.adminKey.Verify(key) {
			log.Printf("Rejected admin request from %s to %s", security.GetClientIP(r), r.URL.Path)
			respondWithError(w, http.StatusUnauthorized, ErrInvalidAdminKey, "", nil)
			return
		}
		next(w, r)
	}
}

// adminKeyFromBody peeks at the JSON body and restores it for the handler
func adminKeyFromBody(w http.ResponseWriter, r *http.Request) string {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		AdminKey string `json:"adminKey"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.AdminKey
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// Instrument records request counts and latency by matched route pattern
func Instrument(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, rec.status, time.Since(start))
	})
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext retrieves the session from the request context
func GetSessionFromContext(ctx context.Context) *models.Session {
	session, ok := ctx.Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}
