// Package validation checks user input before it is sent to the CMS.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MinPasswordLength matches the CMS users-permissions default
const MinPasswordLength = 6

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "Invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// ValidatePasswordConfirmation checks a password and its repetition
func ValidatePasswordConfirmation(password, confirmation string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if password != confirmation {
		return ValidationError{Field: "passwordConfirmation", Message: "passwords do not match"}
	}
	return nil
}

// ValidateUsername checks if a username is valid
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if len(username) < 3 {
		return ValidationError{Field: "username", Message: "username must be at least 3 characters"}
	}
	return nil
}

// ValidateChildCount checks the number of children a sponsor asks for
func ValidateChildCount(n int) error {
	if n < 1 || n > 10 {
		return ValidationError{Field: "numberOfChildren", Message: "Number of children must be between 1 and 10"}
	}
	return nil
}
