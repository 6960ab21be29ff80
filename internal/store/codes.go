package store

import (
	"context"
	"errors"

	"money42/internal/domain"

	"gorm.io/gorm"
)

// CreateCodes inserts a batch of codes; the batch is all-or-nothing
func (s *Store) CreateCodes(ctx context.Context, codes []domain.TransactionCode) error {
	if len(codes) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&codes).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrCodeExists
	}
	return err
}

// ListCodes pages through codes, newest first; used filters on is_used when set
func (s *Store) ListCodes(ctx context.Context, used *bool, page, pageSize int) ([]domain.TransactionCode, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	query := s.db.WithContext(ctx).Model(&domain.TransactionCode{})
	if used != nil {
		query = query.Where("is_used = ?", *used)
	}
	query = query.Session(&gorm.Session{}) // safe to reuse for count and find
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var codes []domain.TransactionCode
	if err := query.Order("id desc").Offset(offset).Limit(limit).Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}
