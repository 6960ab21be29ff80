package store

import (
	"context"
	"errors"
	"strings"

	"money42/internal/domain"

	"gorm.io/gorm"
)

// CreateUser inserts the user together with a zero-balance profile, so every
// account starts with a profile row.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(u.Email)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrEmailTaken
		}
		if err := tx.Create(u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrEmailTaken
			}
			return err
		}
		return tx.Create(&domain.Profile{ID: u.ID}).Error
	})
}

// UserByID selects a user by primary key
func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UserByEmail selects a user by email, case-insensitively
func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UserByProvider selects a user by OAuth provider and subject
func (s *Store) UserByProvider(ctx context.Context, provider, subject string) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, subject).
		First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// SetRole changes the role of the user with the given email
func (s *Store) SetRole(ctx context.Context, email, role string) error {
	res := s.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("email = ?", strings.ToLower(email)).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
