package models

import "time"

// Budget is a monthly spending limit for one expense category.
type Budget struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	CategoryKey string `gorm:"size:64;not null"`
	LimitCent   int64  `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
