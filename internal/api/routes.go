package api

import (
	"money42/internal/middleware" // Custom package for middleware
	"net/http"                    // HTTP handler for metrics
	"time"                        // Cache lifetimes

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// AuthAPI is the auth service as seen by handlers and the JWT middleware
type AuthAPI interface {
	AuthService
	middleware.Authenticator
}

// Deps holds everything the HTTP surface is built from
type Deps struct {
	Auth          AuthAPI                 // Sign-up, sign-in, sessions
	Wallet        WalletService           // Balance and redemption
	Admin         AdminStore              // Code and profile management
	Users         middleware.UserLookup   // Role lookups for admin routes
	Redis         redis.Cmdable           // Admin list cache; nil disables caching
	AdminCacheTTL time.Duration           // Lifetime of cached admin lists
	RedeemLimiter *middleware.RateLimiter // Per-user redeem limiter; nil disables limiting
	Metrics       http.Handler            // Served on /metrics when set
	Health        map[string]Check        // Probes behind /healthz
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	requireUser := middleware.JWTAuthMiddleware(d.Auth) // Bearer token check

	// Auth routes
	authGroup := r.Group("/auth")
	authGroup.POST("/signup", SignUpHandler(d.Auth))                         // Registration endpoint
	authGroup.POST("/login", LoginHandler(d.Auth))                           // Login endpoint
	authGroup.POST("/logout", requireUser, LogoutHandler(d.Auth))            // Sign-out endpoint
	authGroup.GET("/session", requireUser, SessionHandler(d.Auth))           // Current session endpoint
	authGroup.GET("/oauth/:provider", OAuthStartHandler(d.Auth))             // OAuth start endpoint
	authGroup.GET("/oauth/:provider/callback", OAuthCallbackHandler(d.Auth)) // OAuth callback endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(requireUser)
	walletGroup.GET("", GetBalanceHandler(d.Wallet)) // Balance endpoint
	redeem := []gin.HandlerFunc{RedeemHandler(d.Wallet)}
	if d.RedeemLimiter != nil {
		redeem = append([]gin.HandlerFunc{d.RedeemLimiter.Middleware()}, redeem...) // Throttle guesses
	}
	walletGroup.POST("/redeem", redeem...)                                   // Redeem endpoint
	walletGroup.GET("/transactions", GetTransactionHistoryHandler(d.Wallet)) // Transaction history endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(requireUser, middleware.AdminOnlyMiddleware(d.Users))
	adminGroup.POST("/codes", IssueCodesHandler(d.Admin))                               // Issue codes endpoint
	adminGroup.GET("/codes", ListCodesHandler(d.Admin))                                 // List codes endpoint
	adminGroup.GET("/profiles", ListProfilesHandler(d.Admin, d.Redis, d.AdminCacheTTL)) // List profiles endpoint

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics)) // Prometheus scrape endpoint
	}
	r.GET("/healthz", HealthHandler(d.Health)) // Liveness and dependency checks
}
