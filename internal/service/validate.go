package service

import (
	"strings"
	"unicode/utf8"

	"storefront/internal/apperr"
	"storefront/internal/validation"
)

var (
	errInvalidEmail         = apperr.Validation("Provide a valid email address")
	errPasswordTooShort     = apperr.Validation("Password must be at least 6 characters long")
	errInvalidPhone         = apperr.Validation("Invalid phone number format, must be in E.164 format")
	errFirstNameRequired    = apperr.Validation("First name is required")
	errLastNameRequired     = apperr.Validation("Last name is required")
	errRefreshTokenRequired = apperr.Validation("Refresh token required")
)

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < validation.MinPasswordLength {
		return errPasswordTooShort
	}
	return nil
}

// validateProfile checks the fields shared by registration and user
// management.
func validateProfile(firstName, lastName, email string, phone *string) error {
	if strings.TrimSpace(firstName) == "" {
		return errFirstNameRequired
	}
	if strings.TrimSpace(lastName) == "" {
		return errLastNameRequired
	}
	if !validation.IsEmail(email) {
		return errInvalidEmail
	}
	if phone != nil && !validation.IsPhone(*phone) {
		return errInvalidPhone
	}
	return nil
}
