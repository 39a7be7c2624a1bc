package logger

import (
	"contactdesk/apperrors"
)

// LogAppError logs an AppError with its structured context. Used for
// failures that are swallowed rather than surfaced, such as icon file
// cleanup after a contact delete.
func LogAppError(err error, level Level) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		WithFields(appErr.LogFields()).log(level, "%s", appErr.Message)
	} else {
		WithError(err).log(level, "Unstructured error occurred")
	}
}
