package middleware

import (
	"context"                 // Context for the role lookup
	"money42/internal/domain" // Importing domain models
	"net/http"                // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserLookup finds users by ID
type UserLookup interface {
	UserByID(ctx context.Context, id string) (*domain.User, error)
}

// AdminOnlyMiddleware checks the user's role from the database on each request
func AdminOnlyMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := UserID(c) // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := users.UserByID(c.Request.Context(), userID) // Fetch user from database
		if err != nil {
			// If user not found or any error, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// Check if user role is admin
		if user.Role != domain.RoleAdmin {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
