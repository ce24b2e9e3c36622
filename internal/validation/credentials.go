// Package validation contains input validation helpers shared by handlers
// and services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	passwordMinLength = 12
	passwordMaxLength = 128
	emailMaxLength    = 254
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{1,48}[a-zA-Z0-9]$`)
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidatePassword enforces the password policy: 12-128 characters with at
// least one upper, one lower, one digit and one special character.
func ValidatePassword(password string) error {
	length := len([]rune(password))
	if length < passwordMinLength {
		return fmt.Errorf("password must be at least %d characters", passwordMinLength)
	}
	if length > passwordMaxLength {
		return fmt.Errorf("password must be at most %d characters", passwordMaxLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return fmt.Errorf("password must contain upper and lower case letters, a digit and a special character")
	}
	return nil
}

// ValidateUsername enforces username format: 3-50 characters, alphanumeric
// with internal underscores or hyphens.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-50 characters, alphanumeric with internal underscores or hyphens")
	}
	return nil
}

// ValidateEmail performs a light-weight format and length check.
func ValidateEmail(email string) error {
	if len(email) > emailMaxLength {
		return fmt.Errorf("email must be at most %d characters", emailMaxLength)
	}
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
