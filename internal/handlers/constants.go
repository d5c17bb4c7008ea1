package handlers

const (
	ErrInvalidJSON           = "Invalid request body"
	ErrInternalServerError   = "Internal server error"
	ErrServerConfiguration   = "Server configuration error"
	ErrInvalidAdminKey       = "Unauthorized - Invalid admin key"
	ErrServerProcessing      = "Server error processing request"
	ErrRateLimited           = "Too many requests, please try again later"
	ErrInvalidCSRFToken      = "Invalid CSRF token"
	ErrSessionRequired       = "Authentication required"
	ErrMissingRelationParams = "Missing sponsorshipId or sponsorId"
)
