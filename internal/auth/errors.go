package auth

import (
	"errors"
	"net/http"
)

// ProviderError is an auth failure whose message is shown to the user verbatim
type ProviderError struct {
	Status  int    // HTTP status to answer with
	Message string // User-facing message
}

func (e *ProviderError) Error() string { return e.Message }

// Auth failures surfaced to users
var (
	ErrMissingCredentials = &ProviderError{Status: http.StatusBadRequest, Message: "Email and password are required"}
	ErrUserExists         = &ProviderError{Status: http.StatusUnprocessableEntity, Message: "User already registered"}
	ErrInvalidCredentials = &ProviderError{Status: http.StatusBadRequest, Message: "Invalid login credentials"}
	ErrUnknownProvider    = &ProviderError{Status: http.StatusBadRequest, Message: "Unsupported provider: provider is not enabled"}
	ErrRedirectNotAllowed = &ProviderError{Status: http.StatusBadRequest, Message: "Redirect URL is not allowed"}
	ErrInvalidState       = &ProviderError{Status: http.StatusBadRequest, Message: "OAuth state is invalid or expired"}
	ErrEmailNotVerified   = &ProviderError{Status: http.StatusForbidden, Message: "Email not verified"}
)

// Session failures
var (
	ErrSessionRevoked = errors.New("session revoked")
	ErrStateNotFound  = errors.New("oauth state not found")
)
