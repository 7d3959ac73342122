// Package sanitize cleans and validates registrant-supplied input before it
// reaches the database. Uses bluemonday to strip any HTML from plain-text
// fields (script tags, event handlers, javascript: URLs) so stored values
// are safe to render anywhere.
package sanitize

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/varekai/roster/internal/apperror"
)

// policy is the singleton bluemonday policy for plain-text fields: strip
// everything. Initialized once via sync.Once for thread-safe lazy init.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strip-all policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// emailPattern is the registration-form email check. Deliberately simple:
// the authoritative validation is the confirmation the user can log in.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// nonDigits matches everything that isn't 0-9, for phone normalization.
var nonDigits = regexp.MustCompile(`\D`)

// String strips HTML, trims whitespace, and enforces a maximum length.
// maxLength <= 0 means unlimited.
func String(value string, maxLength int) (string, error) {
	// bluemonday entity-escapes remaining text; undo that so "O'Brien"
	// round-trips instead of becoming "O&#39;Brien". Trim after stripping
	// since removed markup can leave whitespace behind.
	cleaned := html.UnescapeString(getPolicy().Sanitize(value))
	cleaned = strings.TrimSpace(cleaned)

	if maxLength > 0 && len(cleaned) > maxLength {
		return "", apperror.NewValidation(
			fmt.Sprintf("input too long; maximum length is %d characters", maxLength))
	}
	return cleaned, nil
}

// Email sanitizes and validates an email address, returning it lowercased.
func Email(email string) (string, error) {
	if email == "" {
		return "", apperror.NewValidation("email is required")
	}

	cleaned, err := String(email, 255)
	if err != nil {
		return "", err
	}

	if !emailPattern.MatchString(cleaned) {
		return "", apperror.NewValidation("invalid email format")
	}
	return strings.ToLower(cleaned), nil
}

// Phone normalizes a phone number to bare digits and requires exactly ten
// of them (US-style numbers, matching the registration form).
func Phone(phone string) (string, error) {
	if phone == "" {
		return "", apperror.NewValidation("phone number is required")
	}

	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) != 10 {
		return "", apperror.NewValidation("phone number must be exactly 10 digits")
	}
	return digits, nil
}

// Age parses and validates an age value. Registrants must be adults and
// the upper bound catches typos.
func Age(age string) (int, error) {
	cleaned := strings.TrimSpace(age)
	if cleaned == "" {
		return 0, apperror.NewValidation("age is required")
	}

	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, apperror.NewValidation("age must be a valid number")
	}
	if n < 18 {
		return 0, apperror.NewValidation("age must be 18 or older")
	}
	if n > 120 {
		return 0, apperror.NewValidation("age must be a reasonable number")
	}
	return n, nil
}
