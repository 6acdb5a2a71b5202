package session

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeNetworkFailure     = "NETWORK_FAILURE"
	textCodeTokenRejected      = "TOKEN_REJECTED"
	textCodeServerFailure      = "SERVER_FAILURE"
	textCodeInvalidTransition  = "INVALID_SESSION_TRANSITION"
)

// ErrInvalidCredentials is returned when the gateway rejects a login attempt.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNetwork is returned when the gateway could not be reached at all.
var ErrNetwork = goerrors.New("identity service unreachable", goerrors.CategoryOperation).
	WithTextCode(textCodeNetworkFailure)

// ErrTokenRejected is returned when a stored token is expired or invalid.
var ErrTokenRejected = goerrors.New("session token rejected", goerrors.CategoryAuthz).
	WithTextCode(textCodeTokenRejected).
	WithCode(goerrors.CodeUnauthorized)

// ErrServer is returned for unclassified identity service failures.
var ErrServer = goerrors.New("identity service error", goerrors.CategoryInternal).
	WithTextCode(textCodeServerFailure).
	WithCode(goerrors.CodeInternal)

// ErrInvalidTransition is returned when a requested session state change is
// not in the transition table.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// IsCredentialsError reports whether err classifies as rejected credentials.
func IsCredentialsError(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsNetworkError reports whether err classifies as a transport failure.
func IsNetworkError(err error) bool {
	return hasTextCode(err, textCodeNetworkFailure)
}

// IsTokenRejectedError reports whether err classifies as an expired or
// invalid token.
func IsTokenRejectedError(err error) bool {
	return hasTextCode(err, textCodeTokenRejected)
}

// IsValidationError reports whether err carries field validation failures.
// Validation errors are synchronous and never reach the gateway.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryValidation ||
			richErr.Category == goerrors.CategoryBadInput
	}
	return false
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// displayMessage normalizes a gateway-origin error into the string surfaced
// through Session.Err. Presentation never sees the raw error.
func displayMessage(err error) string {
	if err == nil {
		return ""
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	return err.Error()
}
