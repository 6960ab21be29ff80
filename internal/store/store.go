// Package store holds the GORM-backed tables of the wallet: users,
// profiles, transaction codes and the redemption ledger.
package store

import (
	"errors"

	"money42/internal/domain"

	"gorm.io/gorm"
)

// Store wraps a GORM connection
type Store struct {
	db *gorm.DB
}

// New creates a Store
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for health checks
func (s *Store) DB() *gorm.DB {
	return s.db
}

// notFound maps gorm's not-found error onto domain.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// pageBounds normalises 1-based page numbers and caps page sizes at 100
func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
