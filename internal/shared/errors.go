package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPendingActivation indicates the account has no password yet.
	ErrPendingActivation = errors.New("account pending activation")
	// ErrInvalidToken indicates an invitation token that is unknown or already consumed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden indicates an authorization denial.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates a malformed or incomplete request payload.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
	// ErrStorage indicates an unexpected persistence failure.
	ErrStorage = errors.New("storage error")
	// ErrUnauthorized indicates a missing, expired or malformed session token.
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	// ErrAlreadyRegistered is returned when inviting an identity that already has a password.
	ErrAlreadyRegistered = fmt.Errorf("%w: user already registered", ErrConflict)
	// ErrInvitationExpired is returned when an invitation is redeemed after its window.
	ErrInvitationExpired = fmt.Errorf("%w: invitation expired", ErrInvalidToken)
)

// Kind returns the taxonomy sentinel err belongs to, or ErrStorage for anything unrecognised.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrInvalidCredentials,
		ErrPendingActivation,
		ErrInvalidToken,
		ErrForbidden,
		ErrValidation,
		ErrConflict,
		ErrUnauthorized,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrStorage
}

// Validationf builds an ErrValidation with a formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
