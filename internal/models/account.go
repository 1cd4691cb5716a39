package models

import "time"

// Account represents a money account (bank card, cash, e-wallet...).
// Current balance is never stored: it is always derived as
// InitialBalanceCent + sum(entry amounts), see store.AccountBalance.
type Account struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             uint   `gorm:"index;not null"`
	Name               string `gorm:"size:64;not null"`
	Type               string `gorm:"size:32;not null"` // classification key, e.g. account_bank
	Currency           string `gorm:"size:8;default:CNY"`
	InitialBalanceCent int64  `gorm:"not null;default:0"`
	IsLiability        bool   `gorm:"not null;default:false"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
