package auth

import "errors"

var (
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidCredentials is returned when a username or password is missing or malformed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityNotFound signals that no identity matches the lookup.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrUnauthorized represents a missing or unknown key or admin token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRegistrationDisabled is returned when self-registration is switched off.
	ErrRegistrationDisabled = errors.New("registration disabled")
)
