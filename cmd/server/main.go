package main

import (
	"context"                     // context package is needed for Redis operations
	"errors"                      // Error matching on shutdown
	"money42/internal/api"        // Custom package for API handlers
	"money42/internal/auth"       // Custom package for sign-in and sessions
	"money42/internal/config"     // Custom package for configuration
	"money42/internal/db"         // Custom package for database setup
	"money42/internal/domain"     // Provider names
	"money42/internal/metrics"    // Custom package for Prometheus metrics
	"money42/internal/middleware" // Custom package for middleware
	"money42/internal/store"      // Custom package for persistence
	"money42/internal/wallet"     // Custom package for redemption
	"net/http"                    // HTTP server
	"os/signal"                   // Graceful shutdown on signals
	"syscall"                     // SIGTERM
	"time"                        // Timeouts

	"github.com/gin-gonic/gin"                                  // Gin web framework
	"github.com/prometheus/client_golang/prometheus"            // Prometheus registry
	"github.com/prometheus/client_golang/prometheus/collectors" // Runtime collectors
	"github.com/redis/go-redis/v9"                              // Redis client
	"github.com/sirupsen/logrus"                                // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	}
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	// Connect to the database
	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Metrics registry with Go runtime and process collectors
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(reg)

	st := store.New(gdb) // Persistence layer

	// Auth service with optional Google sign-in
	authSvc := auth.NewService(st, auth.NewRedisSessionStore(redisClient), auth.Config{
		JWTSecret:        cfg.JWTSecret,        // Token signing key
		TokenTTL:         cfg.TokenTTL,         // Token lifetime
		AllowedRedirects: cfg.AllowedRedirects, // OAuth redirect allow-list
	})
	authSvc.SetMetrics(recorder)
	if cfg.GoogleEnabled() {
		authSvc.RegisterProvider(domain.ProviderGoogle, auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}))
		logrus.Info("Google sign-in enabled")
	}

	// Wallet service with balance cache
	walletSvc := wallet.NewService(st,
		wallet.WithCache(redisClient, cfg.BalanceCacheTTL),
		wallet.WithMetrics(recorder),
	)

	limiter := middleware.NewRateLimiter(cfg.RedeemPerMinute, cfg.RedeemBurst) // Per-user redeem limit
	defer limiter.Stop()

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	api.RegisterRoutes(r, api.Deps{
		Auth:          authSvc,
		Wallet:        walletSvc,
		Admin:         st,
		Users:         st,
		Redis:         redisClient,
		AdminCacheTTL: 60 * time.Second,
		RedeemLimiter: limiter,
		Metrics:       metrics.Handler(reg),
		Health: map[string]api.Check{
			"db":    func(ctx context.Context) error { return db.Ping(ctx, gdb) },
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done() // Wait for a shutdown signal
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
	_ = redisClient.Close()
}
