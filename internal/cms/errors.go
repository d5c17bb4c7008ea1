package cms

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTimeout is returned when a CMS call exceeds the client timeout
	ErrTimeout = errors.New("cms request timed out")
	// ErrNoToken is returned by operations that need the system API token
	ErrNoToken = errors.New("cms api token not configured")
)

// APIError is a non-2xx response from the CMS
type APIError struct {
	Status  int
	Message string
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cms: status %d: %s", e.Status, e.Message)
}

// newAPIError extracts the message from Strapi's {error:{message}} envelope
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(body)}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Message = envelope.Error.Message
		if apiErr.Message == "" {
			apiErr.Message = envelope.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether err means the record or content type is absent.
// Strapi answers 400 for filters on a content type that does not exist yet,
// so both 404 and 400 count.
func IsNotFound(err error) bool {
	status := StatusCode(err)
	return status == http.StatusNotFound || status == http.StatusBadRequest
}
