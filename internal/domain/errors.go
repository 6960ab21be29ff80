package domain

import "errors"

// Sentinel errors shared by the store, the wallet service and the handlers.
// The messages of the redemption errors are shown to users as-is.
var (
	ErrNotFound            = errors.New("record not found")
	ErrEmptyCode           = errors.New("empty code")
	ErrInvalidCode         = errors.New("invalid or used code")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRedeemFailed        = errors.New("redemption failed, please try again")
	ErrCodeExists          = errors.New("code already exists")
	ErrEmailTaken          = errors.New("email already registered")
)
