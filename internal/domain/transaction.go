package domain

// Transaction Model, one ledger row per successful redemption
type Transaction struct {
	ID           uint     `gorm:"primaryKey" json:"id"`                      // Primary key
	ProfileID    string   `gorm:"size:36;index;not null" json:"profile_id"` // Profile whose balance moved
	CodeID       uint     `gorm:"uniqueIndex;not null" json:"code_id"`      // Redeemed code, at most one ledger row each
	Code         string   `gorm:"size:64;not null" json:"code"`             // Code string, denormalised for history
	Type         CodeType `gorm:"size:16;not null" json:"type"`             // deposit or withdraw
	Amount       int64    `gorm:"not null" json:"amount"`                   // Unsigned amount of the code
	BalanceAfter int64    `gorm:"not null" json:"balance_after"`            // Balance right after the redemption
	CreatedAt    int64    `gorm:"autoCreateTime:milli" json:"created_at"`   // Timestamp of creation in milliseconds
}
