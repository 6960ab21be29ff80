package api

import (
	"context"                     // Context for service calls
	"errors"                      // Error matching
	"money42/internal/auth"       // Auth service and sessions
	"money42/internal/middleware" // Context keys
	"money42/internal/utils"      // JWT claims
	"net/http"                    // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// AuthService is the auth behaviour the handlers need
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*auth.Session, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, claims *utils.Claims) error
	CurrentSession(ctx context.Context, token string) (*auth.Session, error)
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	CompleteOAuth(ctx context.Context, provider, code, state string) (*auth.Session, string, error)
}

// CredentialsRequest is the body of sign-up and sign-in
type CredentialsRequest struct {
	Email    string `json:"email"`    // Email address
	Password string `json:"password"` // Plain password
}

// writeAuthError answers with the provider message verbatim, or a generic 500
func writeAuthError(c *gin.Context, err error) {
	var perr *auth.ProviderError
	if errors.As(err, &perr) {
		c.JSON(perr.Status, gin.H{"error": perr.Message}) // Provider message as-is
		return
	}
	logrus.WithError(err).Error("Auth request failed") // Log internal failure
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
}

// SignUpHandler registers an email/password user and returns a session
func SignUpHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CredentialsRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		session, err := svc.SignUp(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			writeAuthError(c, err) // No session on failure
			return
		}
		c.JSON(http.StatusCreated, session) // Return the new session
	}
}

// LoginHandler authenticates a user and returns a session
func LoginHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CredentialsRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		session, err := svc.SignIn(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			writeAuthError(c, err)
			return
		}
		c.JSON(http.StatusOK, session) // Return the session
	}
}

// LogoutHandler revokes the caller's session
func LogoutHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(middleware.ClaimsKey) // Claims set by JWT middleware
		claims, ok := v.(*utils.Claims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if err := svc.SignOut(c.Request.Context(), claims); err != nil {
			writeAuthError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
	}
}

// SessionHandler returns the session behind the bearer token
func SessionHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetString(middleware.TokenKey) // Raw token set by JWT middleware
		session, err := svc.CurrentSession(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

// OAuthStartHandler redirects the browser to the provider's consent page
func OAuthStartHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")      // Provider name from path
		redirectTo := c.Query("redirect_to") // Where to deliver the session
		target, err := svc.SignInWithOAuth(c.Request.Context(), provider, redirectTo)
		if err != nil {
			writeAuthError(c, err)
			return
		}
		c.Redirect(http.StatusFound, target) // Hand over to the provider
	}
}

// OAuthCallbackHandler finishes the provider round trip and redirects to the
// client with the session in the query string
func OAuthCallbackHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reason := c.Query("error"); reason != "" {
			// User declined consent or the provider failed
			c.JSON(http.StatusBadRequest, gin.H{"error": "OAuth sign-in failed: " + reason})
			return
		}
		session, redirectTo, err := svc.CompleteOAuth(c.Request.Context(), c.Param("provider"), c.Query("code"), c.Query("state"))
		if err != nil {
			writeAuthError(c, err)
			return
		}
		target, err := auth.CallbackURL(redirectTo, session)
		if err != nil {
			writeAuthError(c, err)
			return
		}
		c.Redirect(http.StatusFound, target) // Back to the client
	}
}
