// Package common defines the sentinel errors shared by the service and
// transport layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// request validation
	ErrValidation = errors.New("missing required fields")

	// registration / login
	ErrDuplicateUser      = errors.New("user exists")
	ErrNotFound           = errors.New("invalid credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// refresh
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")

	// OTP
	ErrProvider           = errors.New("verification provider error")
	ErrVerificationFailed = errors.New("Invalid OTP")

	ErrConfiguration = errors.New("server misconfigured")
	ErrInternal      = errors.New("internal error")
)
