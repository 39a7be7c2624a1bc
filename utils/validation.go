package utils

import (
	"regexp"
	"strings"

	"contactdesk/apperrors"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// A deliberately simple address shape: something@something.something.
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	// Indonesian mobile numbers: 08..., 628... or +628...
	phoneRegex = regexp.MustCompile(`^(\+62|62|0)8[1-9][0-9]{6,10}$`)
)

// ValidateUsername checks if the username meets format requirements.
func ValidateUsername(username string) *apperrors.AppError {
	if len(username) < 3 {
		return apperrors.NewValidationError("Username must be at least 3 characters long")
	}

	if len(username) > 30 {
		return apperrors.NewValidationError("Username cannot exceed 30 characters")
	}

	if !usernameRegex.MatchString(username) {
		return apperrors.NewValidationError("Username can only contain letters, numbers, underscores, and hyphens")
	}

	return nil
}

// ValidateContactName requires a non-empty name after trimming.
func ValidateContactName(name string) *apperrors.AppError {
	if strings.TrimSpace(name) == "" {
		return apperrors.NewValidationError("Name is required")
	}
	return nil
}

// ValidateEmail checks the optional email field. Empty is allowed.
func ValidateEmail(email string) *apperrors.AppError {
	if email == "" {
		return nil
	}
	if !emailRegex.MatchString(email) {
		return apperrors.NewValidationError("Email address is not valid")
	}
	return nil
}

// ValidatePhone checks the optional phone field against the mobile-number
// pattern. Empty is allowed.
func ValidatePhone(phone string) *apperrors.AppError {
	if phone == "" {
		return nil
	}
	if !phoneRegex.MatchString(phone) {
		return apperrors.NewValidationError("Phone number is not a valid mobile number")
	}
	return nil
}
