package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"money42/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Redeem consumes an unused code for userID and applies it to the profile
// balance in one database transaction. The profile row is locked for the
// duration and the code is flipped with a conditional update, so a code
// credits at most one balance even under concurrent redemptions.
//
// It returns domain.ErrInvalidCode when the code is unknown, already used or
// lost a race, and domain.ErrInsufficientBalance when a withdrawal would take
// the balance below zero. Nothing is written in either case.
func (s *Store) Redeem(ctx context.Context, userID, code string) (*domain.Transaction, error) {
	var entry domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tc domain.TransactionCode
		if err := tx.Where("code = ? AND is_used = ?", code, false).First(&tc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInvalidCode
			}
			// a failed lookup reads the same as a missing code to the user
			return fmt.Errorf("%w: lookup: %v", domain.ErrInvalidCode, err)
		}

		p, err := lockProfile(tx, userID)
		if err != nil {
			return err
		}

		balance := p.Balance + tc.Delta()
		if balance < 0 {
			return domain.ErrInsufficientBalance
		}

		res := tx.Model(&domain.TransactionCode{}).
			Where("id = ? AND is_used = ?", tc.ID, false).
			Updates(map[string]any{"is_used": true, "used_by": userID, "used_at": time.Now()})
		if res.Error != nil {
			return fmt.Errorf("consume code: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrInvalidCode
		}

		if err := tx.Model(&domain.Profile{}).Where("id = ?", userID).Update("balance", balance).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		entry = domain.Transaction{
			ProfileID:    userID,
			CodeID:       tc.ID,
			Code:         tc.Code,
			Type:         tc.Type,
			Amount:       tc.Amount,
			BalanceAfter: balance,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("write ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// lockProfile selects the profile FOR UPDATE, creating it first when missing.
// A concurrent creator wins silently and the row is then locked like any other.
func lockProfile(tx *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lock profile: %w", err)
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&domain.Profile{ID: userID}).Error; err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	p = domain.Profile{}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, fmt.Errorf("lock profile: %w", err)
	}
	return &p, nil
}
