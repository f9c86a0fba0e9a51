// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the shortest accepted password in bytes.
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit; longer inputs are rejected
	// instead of being silently truncated.
	MaxPasswordLength = 72

	MinHandleLength = 3
	MaxHandleLength = 30

	// MaxBodyLength caps post and comment bodies, counted in runes.
	MaxBodyLength = 10000
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidatePassword checks if a password meets length requirements
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLength)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password must not be blank")
	}
	return nil
}

// ValidateHandle checks if a handle meets requirements
func ValidateHandle(handle string) error {
	if len(handle) < MinHandleLength {
		return fmt.Errorf("handle must be at least %d characters long", MinHandleLength)
	}

	if len(handle) > MaxHandleLength {
		return fmt.Errorf("handle must not exceed %d characters", MaxHandleLength)
	}

	if !handlePattern.MatchString(handle) {
		return fmt.Errorf("handle can only contain letters, numbers, underscores, and hyphens")
	}

	// Cannot start or end with underscore/hyphen
	if handle[0] == '_' || handle[0] == '-' || handle[len(handle)-1] == '_' || handle[len(handle)-1] == '-' {
		return fmt.Errorf("handle cannot start or end with underscore or hyphen")
	}

	return nil
}

// ValidateBody checks a post or comment body. field names the input in the
// returned message.
func ValidateBody(field, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return fmt.Errorf("%s must not exceed %d characters", field, MaxBodyLength)
	}
	return nil
}
