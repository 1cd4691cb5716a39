package database

import (
	"fmt"

	"pocket-ledger/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.LedgerEntry{},
		&models.DebtRecord{},
		&models.RecurringRule{},
		&models.Budget{},
		&models.Preference{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
