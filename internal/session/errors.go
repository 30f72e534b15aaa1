package session

import "codeberg.org/aulin/anesctl/internal/errors"

const (
	// Validation Errors
	ErrFieldMissing    = errors.ErrFieldMissing
	ErrFieldOutOfRange = errors.ErrFieldOutOfRange
	ErrUnknownField    = errors.ErrUnknownField
	ErrInvalidValue    = errors.ErrorCode("session_invalid_value")

	// Lifecycle Errors
	ErrAlreadyRunning = errors.ErrSessionRunning
)
