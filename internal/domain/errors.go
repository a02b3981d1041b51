package domain

import "errors"

// Domain errors
var (
	// Validation
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInvalidDate            = errors.New("invalid date, expected YYYY-MM-DD")
	ErrDateOverrideNotAllowed = errors.New("date override is not allowed in this environment")

	// Not found or expired
	ErrRoundNotFound   = errors.New("round expired or invalid")
	ErrSessionNotFound = errors.New("session not found")

	// Forbidden
	ErrForbidden = errors.New("round belongs to another player")

	// Order conflicts
	ErrOrderConflict = errors.New("round does not match session progress")
	ErrRunComplete   = errors.New("run already complete")

	// Configuration
	ErrCatalogTooSmall  = errors.New("catalog has fewer usable units than questions per run")
	ErrPuzzleIncomplete = errors.New("daily puzzle is incomplete")

	ErrInternalError = errors.New("internal server error")
)

// IsValidationError reports whether err was caused by malformed caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrDateOverrideNotAllowed)
}

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRoundNotFound) || errors.Is(err, ErrSessionNotFound)
}

// IsForbiddenError checks if an error is an ownership violation
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsConflictError reports whether the caller must re-fetch state before retrying
func IsConflictError(err error) bool {
	return errors.Is(err, ErrOrderConflict) || errors.Is(err, ErrRunComplete)
}

// IsConfigurationError reports errors that are fatal to the daily cycle
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrCatalogTooSmall) || errors.Is(err, ErrPuzzleIncomplete)
}
