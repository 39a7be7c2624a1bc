package utils

import (
	"contactdesk/apperrors"

	"golang.org/x/crypto/bcrypt"
)

// ValidatePasswordStrength enforces the minimum password policy.
func ValidatePasswordStrength(password string) *apperrors.AppError {
	if len(password) < 8 {
		return apperrors.NewValidationError("Password must be at least 8 characters long")
	}
	return nil
}

// HashPassword returns the bcrypt hash of a password. The plaintext is
// never stored.
func HashPassword(password string) (string, *apperrors.AppError) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.NewInternalError("Failed to hash password").WithInternal(err)
	}
	return string(hashed), nil
}

// VerifyPassword compares a bcrypt hash against a plaintext candidate.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
