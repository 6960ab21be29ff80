package domain

import "time"

// CodeType says which way a transaction code moves the balance
type CodeType string

// Supported code types
const (
	CodeDeposit  CodeType = "deposit"  // Adds Amount to the balance
	CodeWithdraw CodeType = "withdraw" // Subtracts Amount from the balance
)

// Valid reports whether t is a known code type
func (t CodeType) Valid() bool {
	return t == CodeDeposit || t == CodeWithdraw
}

// TransactionCode Model, a one-time code issued out-of-band
type TransactionCode struct {
	ID        uint       `gorm:"primaryKey" json:"id"`                       // Primary key
	Code      string     `gorm:"uniqueIndex;size:64;not null" json:"code"`   // The string a user types in
	Type      CodeType   `gorm:"size:16;not null" json:"type"`               // deposit or withdraw
	Amount    int64      `gorm:"not null" json:"amount"`                     // Positive yen amount
	IsUsed    bool       `gorm:"not null;default:false;index" json:"is_used"` // Flips false to true exactly once
	UsedBy    *string    `gorm:"size:36" json:"used_by"`                     // Profile that consumed the code
	UsedAt    *time.Time `json:"used_at"`                                    // When it was consumed
	CreatedAt time.Time  `json:"created_at"`                                 // Set on insert
}

// TableName pins the table to "transaction_codes"
func (TransactionCode) TableName() string { return "transaction_codes" }

// Delta is the signed balance change the code applies
func (c TransactionCode) Delta() int64 {
	if c.Type == CodeDeposit {
		return c.Amount
	}
	return -c.Amount
}
