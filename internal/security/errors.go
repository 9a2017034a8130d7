package security

import (
	"errors"
	"net/http"
)

var (
	// ErrTokenAbsent means no candidate token was found in any configured source.
	ErrTokenAbsent = errors.New("authentication token required")
	// ErrTokenMalformed means the token could not be parsed as a signed token.
	ErrTokenMalformed = errors.New("token is malformed")
	// ErrInvalidSignature means the token signature does not match the signing key.
	ErrInvalidSignature = errors.New("token signature is invalid")
	// ErrTokenExpired means the token expiry is in the past.
	ErrTokenExpired = errors.New("token has expired")
	// ErrConfigurationMissing means required security configuration is absent or unusable.
	ErrConfigurationMissing = errors.New("security configuration is missing")
	// ErrWeakSigningKey means the decoded signing secret is too short for HMAC-SHA256.
	ErrWeakSigningKey = errors.New("signing key must be at least 256 bits")
	// ErrUnexpectedFailure covers anything else that goes wrong while filtering a request.
	ErrUnexpectedFailure = errors.New("unexpected authentication failure")
)

// IsVerificationError reports whether err is one of the token verification failures.
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrTokenExpired)
}

// StatusFor maps an authentication error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrTokenAbsent), IsVerificationError(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
