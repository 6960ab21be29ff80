package domain

import "time"

// Auth providers a user can sign in with
const (
	ProviderEmail  = "email"  // Email and password
	ProviderGoogle = "google" // Delegated Google OAuth
)

// Roles a user can hold
const (
	RoleUser  = "user"  // Regular wallet user
	RoleAdmin = "admin" // May issue and inspect transaction codes
)

// User Model
type User struct {
	ID             string    `gorm:"primaryKey;size:36"`             // UUID
	Email          string    `gorm:"uniqueIndex;size:255;not null"`  // Unique, lower-cased email
	Password       string    `gorm:"size:255" json:"-"`              // bcrypt hash, empty for OAuth users
	Provider       string    `gorm:"size:32;not null;default:email"` // email or google
	ProviderUserID string    `gorm:"size:255;index"`                 // Subject at the OAuth provider
	Role           string    `gorm:"size:16;default:user"`           // Role: user or admin
	CreatedAt      time.Time // Set on insert
}
