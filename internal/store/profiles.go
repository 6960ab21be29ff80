package store

import (
	"context"
	"time"

	"money42/internal/domain"

	"gorm.io/gorm/clause"
)

// GetProfile selects the profile row of a user
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// EnsureProfile inserts a zero-balance profile unless one exists, then returns it
func (s *Store) EnsureProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p := domain.Profile{ID: userID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&p).Error; err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// ProfileSummary is a profile joined with its owner's email
type ProfileSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListProfiles pages through all profiles, most recently changed first
func (s *Store) ListProfiles(ctx context.Context, page, pageSize int) ([]ProfileSummary, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Profile{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []ProfileSummary
	err := s.db.WithContext(ctx).
		Table("profiles").
		Select("profiles.id, users.email, profiles.balance, profiles.updated_at").
		Joins("LEFT JOIN users ON users.id = profiles.id").
		Order("profiles.updated_at desc").
		Offset(offset).
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
