package auth

import "context"

// OAuthUserInfo is the identity an OAuth provider vouches for
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool // Provider has confirmed the user owns Email
	Name           string
	Provider       string
}

// OAuthProvider is a delegated sign-in strategy
type OAuthProvider interface {
	// GetLoginURL builds the provider's authorization URL for state
	GetLoginURL(state string) string
	// ExchangeCode trades an authorization code for the user's identity
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}
