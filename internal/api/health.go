package api

import (
	"context"  // Context for checks
	"net/http" // HTTP status codes
	"time"     // Check timeout

	"github.com/gin-gonic/gin" // Gin web framework
)

// Check probes one dependency
type Check func(ctx context.Context) error

// HealthHandler runs every check and reports 503 when any fails
func HealthHandler(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error() // Failure reason
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
	}
}
