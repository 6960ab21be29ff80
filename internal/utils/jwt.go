package utils

import (
	"errors" // Error values
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/google/uuid"       // Session identifiers
)

// JWT Claims
type Claims struct {
	UserID               string `json:"user_id"`  // Custom claim for user ID
	Email                string `json:"email"`    // Email of the signed-in user
	Provider             string `json:"provider"` // email or google
	jwt.RegisteredClaims        // Standard JWT claims; ID holds the session id
}

// SessionID returns the session identifier carried in the jti claim
func (c *Claims) SessionID() string {
	return c.ID
}

// GenerateJWT creates a JWT token for a user; it returns the signed token
// together with the claims that were signed.
func GenerateJWT(userID, email, provider, secret string, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	// Set token claims
	claims := &Claims{
		UserID:   userID,   // Custom claim for user ID
		Email:    email,    // Email claim
		Provider: provider, // Provider claim
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),                 // Session id, used for sign-out
			Subject:   userID,                           // Subject is the user
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	signed, err := token.SignedString([]byte(secret))          // Sign the token with the secret
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.UserID == "" {
			return nil, errors.New("token has no user") // Reject tokens without identity
		}
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}
