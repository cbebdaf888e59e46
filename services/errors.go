package services

import "errors"

var (
	// ErrQueryRequired is returned for a search without query text.
	ErrQueryRequired = errors.New("query is required")
	// ErrCredentialRequired means the user has no stored LLM API key.
	ErrCredentialRequired = errors.New("LLM API key not configured")
	ErrInvalidLogin       = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
	// ErrForbidden is returned when a user touches a session or collection they do not own.
	ErrForbidden      = errors.New("forbidden")
	ErrExportDisabled = errors.New("export storage not configured")
)
