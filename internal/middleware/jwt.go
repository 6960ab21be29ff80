package middleware

import (
	"context"                // Context for revocation lookups
	"money42/internal/utils" // JWT claims
	"net/http"               // HTTP status codes
	"strings"                // String manipulation

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by JWTAuthMiddleware
const (
	UserIDKey = "userID" // Authenticated user ID
	ClaimsKey = "claims" // Parsed *utils.Claims
	TokenKey  = "token"  // Raw bearer token
)

// Authenticator validates bearer tokens
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*utils.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization") // Get Authorization header
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true // Extract the token string
}

// JWTAuthMiddleware validates JWT tokens and extracts user information
func JWTAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := BearerToken(c)
		// Check if the Authorization header is present and properly formatted
		if !ok {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := auth.Authenticate(c.Request.Context(), tokenStr) // Parse the token and check revocation
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Set(ClaimsKey, claims)        // Store claims for sign-out
		c.Set(TokenKey, tokenStr)       // Store raw token for session lookups
		c.Next()                        // Proceed to the next handler
	}
}

// UserID returns the authenticated user ID set by JWTAuthMiddleware
func UserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
