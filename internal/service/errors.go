package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check them with errors.Is; the API layer maps them to status codes.
var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrInactiveUser is returned by Login for a deactivated account.
	ErrInactiveUser = errors.New("user account is inactive")
)
