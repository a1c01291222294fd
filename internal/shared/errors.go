package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input rejected by domain rules.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a request that conflicts with current state.
	ErrConflict = errors.New("conflict")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
)

// UserSafeMessage returns an error message suitable for API clients.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrIdempotencyConflict):
		return err.Error()
	default:
		return "internal error"
	}
}
