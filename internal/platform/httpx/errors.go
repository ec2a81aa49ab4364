// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// StatusFor returns the HTTP status an error kind is reported with.
func StatusFor(err error) int {
	switch shared.Kind(err) {
	case shared.ErrNotFound:
		return http.StatusNotFound
	case shared.ErrConflict:
		return http.StatusConflict
	case shared.ErrValidation, shared.ErrInvalidToken:
		return http.StatusBadRequest
	case shared.ErrForbidden:
		return http.StatusForbidden
	case shared.ErrUnauthorized, shared.ErrInvalidCredentials, shared.ErrPendingActivation:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Storage failures are reported without detail.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		Problem(w, status, "Internal Error", "")
		return
	}
	Problem(w, status, titleFor(err), err.Error())
}

func titleFor(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return "Not Found"
	case errors.Is(err, shared.ErrConflict):
		return "Conflict"
	case errors.Is(err, shared.ErrValidation):
		return "Validation Failed"
	case errors.Is(err, shared.ErrInvalidToken):
		return "Invalid Token"
	case errors.Is(err, shared.ErrForbidden):
		return "Forbidden"
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "Invalid Credentials"
	case errors.Is(err, shared.ErrPendingActivation):
		return "Pending Activation"
	default:
		return "Unauthorized"
	}
}
