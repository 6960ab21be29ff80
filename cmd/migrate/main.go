package main

import (
	"context"                 // Context for the role update
	"flag"                    // Command-line flags
	"money42/internal/config" // Custom import path (Config)
	"money42/internal/db"     // Custom import path (Database)
	"money42/internal/domain" // Roles
	"money42/internal/store"  // Role updates

	"github.com/sirupsen/logrus" // Logging library
)

// Main entry point for migration
func main() {
	admin := flag.String("admin", "", "promote the user with this email to admin after migrating")
	flag.Parse()

	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())      // Create or update all tables

	if *admin == "" {
		return
	}
	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	if err := store.New(gdb).SetRole(context.Background(), *admin, domain.RoleAdmin); err != nil {
		logrus.Fatalf("failed to promote %s: %v", *admin, err)
	}
	logrus.Infof("%s is now an admin", *admin)
}
