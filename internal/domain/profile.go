package domain

import "time"

// Profile Model, the account row holding a user's balance
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`     // Same UUID as the owning User
	Balance   int64     `gorm:"not null;default:0" json:"balance"` // Whole yen, never negative
	CreatedAt time.Time `json:"created_at"`                       // Set on insert
	UpdatedAt time.Time `json:"updated_at"`                       // Touched on every balance change
}

// TableName pins the table to "profiles"
func (Profile) TableName() string { return "profiles" }
