package store

import (
	"context"

	"money42/internal/domain"

	"gorm.io/gorm"
)

// ListTransactions pages through a profile's ledger, newest first
func (s *Store) ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]domain.Transaction, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	query := s.db.WithContext(ctx).Model(&domain.Transaction{}).Where("profile_id = ?", userID).Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.Transaction
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}
