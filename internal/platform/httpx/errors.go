package httpx

import (
	"errors"
	"net/http"

	"github.com/cropledger/cropledger/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	Problem(w, status, titleFor(err, status), shared.UserSafeMessage(err))
}

// StatusFor returns the status code RespondError would use for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrDuplicate),
		errors.Is(err, shared.ErrIdempotencyConflict),
		errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func titleFor(err error, status int) string {
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		return "Duplicate"
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return "Already Processed"
	case status == http.StatusBadRequest:
		return "Validation Failed"
	case status == http.StatusInternalServerError:
		return "Internal Error"
	}
	return http.StatusText(status)
}
